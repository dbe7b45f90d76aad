// Package tui provides the interactive terminal chat interface for askdb.
// The interface is split across files:
//   - model.go: model types, Init, Update loop
//   - commands.go: background tea commands and slash command handling
//   - view.go: rendering functions
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/askdb/askdb/internal/chat"
	"github.com/askdb/askdb/internal/client"
	"github.com/askdb/askdb/internal/domain"
	"github.com/askdb/askdb/internal/history"
)

// InputMode determines how typed input is interpreted.
type InputMode int

const (
	InputModeChat   InputMode = iota // normal chat input
	InputModeSQL                     // editing a proposed statement
	InputModeUpload                  // entering a file path to upload
)

const inputPlaceholder = "Ask about your data... (Enter to send, /help for commands)"

// Model is the bubbletea model for the chat interface.
type Model struct {
	// UI components
	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	styles   Styles
	renderer *glamour.TermRenderer

	// Conversation state machines
	ctrl     *chat.Controller
	log      *chat.Log
	hydrator *history.Hydrator
	agent    client.Agent

	// Approval gates keyed by the message that proposed the statement.
	// activeGate is the one the gate keybindings act on.
	gates      map[string]*chat.Gate
	activeGate string

	// Most recent resolved result set, the target of export commands.
	lastRows domain.RowSet

	inputMode  InputMode
	savedInput string // chat draft preserved while editing SQL

	exportDir string

	isLoading bool
	status    string // one-line footer flash
	width     int
	height    int
	ready     bool
}

// Messages for tea updates
type (
	hydrateMsg []domain.Message

	turnResultMsg struct {
		req  chat.SubmitRequest
		resp *domain.TurnResponse
		err  error
	}

	execResultMsg struct {
		req    chat.ExecutionRequest
		result *domain.ExecuteResult
		err    error
	}

	uploadResultMsg struct {
		result *domain.UploadResult
		err    error
	}

	statusFlashMsg string
)

// New builds the chat model around an already-hydratable conversation.
func New(ctrl *chat.Controller, l *chat.Log, hydrator *history.Hydrator, agent client.Agent, exportDir string) Model {
	ta := textarea.New()
	ta.Placeholder = inputPlaceholder
	ta.Focus()
	ta.Prompt = "┃ "
	ta.CharLimit = 2000
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(76),
	)

	return Model{
		textarea:  ta,
		spinner:   sp,
		styles:    DefaultStyles(),
		renderer:  renderer,
		ctrl:      ctrl,
		log:       l,
		hydrator:  hydrator,
		agent:     agent,
		gates:     make(map[string]*chat.Gate),
		exportDir: exportDir,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.hydrateCmd(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEsc:
			if m.inputMode != InputModeChat {
				return m.exitInputMode(), nil
			}
			return m, tea.Quit
		case tea.KeyEnter:
			if msg.Alt {
				break // newline
			}
			switch m.inputMode {
			case InputModeSQL:
				return m.finishSQLEdit(), nil
			case InputModeUpload:
				return m.handleUploadPath()
			default:
				if !m.isLoading {
					return m.handleSubmit()
				}
				return m, nil
			}
		}

		if m.inputMode == InputModeChat {
			switch msg.String() {
			case "ctrl+n":
				return m.handleReset()
			case "ctrl+e":
				return m.startSQLEdit(), nil
			case "ctrl+r":
				return m.handleRun()
			case "ctrl+y":
				return m, m.copySQLCmd()
			case "ctrl+o":
				return m.startUploadPrompt(), nil
			}
		}

		m.textarea, tiCmd = m.textarea.Update(msg)

	case tea.WindowSizeMsg:
		m = m.resize(msg)

	case spinner.TickMsg:
		m.spinner, spCmd = m.spinner.Update(msg)
		if m.executing() {
			m = m.refreshViewport()
		}

	case hydrateMsg:
		if len(msg) > 0 {
			m.log.Restore(msg)
			m = m.refreshViewport()
		}

	case turnResultMsg:
		m.isLoading = false
		if appended := m.ctrl.ResolveSubmit(msg.req, msg.resp, msg.err); appended != nil && appended.RequiresApproval {
			m.gates[appended.ID] = chat.NewGate(appended.ID, appended.ProposedSQL)
			m.activeGate = appended.ID
		}
		m = m.refreshViewport()

	case execResultMsg:
		if g, ok := m.gates[msg.req.MessageID]; ok {
			if res := g.ResolveExecute(msg.req, msg.result, msg.err); res != nil {
				if appended := m.ctrl.ResolveGate(*res); appended != nil {
					m.lastRows = appended.Result
				}
			}
		}
		m = m.refreshViewport()

	case uploadResultMsg:
		m.isLoading = false
		if msg.err != nil {
			m.status = m.styles.Error.Render("Upload failed: " + msg.err.Error())
		} else {
			m.status = m.styles.Success.Render(msg.result.Message)
		}
		m = m.refreshViewport()

	case statusFlashMsg:
		m.status = string(msg)
	}

	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

// handleSubmit sends the chat input as a turn, or dispatches a slash command.
func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textarea.Value())
	if input == "" {
		return m, nil
	}

	if strings.HasPrefix(input, "/") {
		m.textarea.Reset()
		return m.handleCommand(input)
	}

	req, ok := m.ctrl.BeginSubmit(input)
	if !ok {
		return m, nil
	}

	m.textarea.Reset()
	m.status = ""
	m.isLoading = true
	m = m.refreshViewport()

	return m, tea.Batch(m.spinner.Tick, m.submitCmd(req))
}

// handleRun executes the active gate's working statement.
func (m Model) handleRun() (tea.Model, tea.Cmd) {
	g, ok := m.gates[m.activeGate]
	if !ok {
		return m, nil
	}
	req, ok := g.BeginExecute(m.ctrl.Session())
	if !ok {
		return m, nil
	}
	m = m.refreshViewport()
	return m, tea.Batch(m.spinner.Tick, m.executeCmd(req))
}

func (m Model) handleReset() (tea.Model, tea.Cmd) {
	m.ctrl.Reset()
	m.gates = make(map[string]*chat.Gate)
	m.activeGate = ""
	m.lastRows = nil
	m.isLoading = false
	m.status = m.styles.Muted.Render("Started a new conversation.")
	m = m.refreshViewport()
	return m, nil
}

// startSQLEdit moves the active gate's working copy into the textarea.
func (m Model) startSQLEdit() Model {
	g, ok := m.gates[m.activeGate]
	if !ok {
		return m
	}
	if g.State() != chat.Proposed && g.State() != chat.ResolvedFailure {
		return m
	}
	g.ToggleEdit()
	if g.State() != chat.Editing {
		return m
	}

	m.inputMode = InputModeSQL
	m.savedInput = m.textarea.Value()
	m.textarea.SetValue(g.WorkingSQL())
	m.textarea.Placeholder = "Edit SQL... (Enter to save, Esc to cancel)"
	m.textarea.CursorEnd()
	return m
}

// finishSQLEdit saves the textarea back into the gate's working copy.
func (m Model) finishSQLEdit() Model {
	if g, ok := m.gates[m.activeGate]; ok {
		g.SetWorkingSQL(strings.TrimSpace(m.textarea.Value()))
		g.ToggleEdit()
	}
	return m.exitInputMode().refreshViewport()
}

// exitInputMode restores the chat draft without saving anything.
func (m Model) exitInputMode() Model {
	if m.inputMode == InputModeSQL {
		if g, ok := m.gates[m.activeGate]; ok && g.State() == chat.Editing {
			g.ToggleEdit()
		}
	}
	m.inputMode = InputModeChat
	m.textarea.SetValue(m.savedInput)
	m.textarea.Placeholder = inputPlaceholder
	m.savedInput = ""
	return m
}

func (m Model) startUploadPrompt() Model {
	m.inputMode = InputModeUpload
	m.savedInput = m.textarea.Value()
	m.textarea.SetValue("")
	m.textarea.Placeholder = "Path to a .csv or .xlsx file... (Enter to upload, Esc to cancel)"
	return m
}

func (m Model) handleUploadPath() (tea.Model, tea.Cmd) {
	path := strings.TrimSpace(m.textarea.Value())
	m = m.exitInputMode()
	if path == "" {
		return m, nil
	}
	m.isLoading = true
	return m, tea.Batch(m.spinner.Tick, m.uploadCmd(path))
}

func (m Model) resize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height

	headerHeight := 2
	footerHeight := 2
	inputHeight := 5

	chatWidth := msg.Width - 2
	if chatWidth < 1 {
		chatWidth = 1
	}
	chatHeight := msg.Height - headerHeight - footerHeight - inputHeight
	if chatHeight < 1 {
		chatHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(chatWidth, chatHeight)
		m.ready = true
	} else {
		m.viewport.Width = chatWidth
		m.viewport.Height = chatHeight
	}
	m.textarea.SetWidth(chatWidth - 4)

	m.renderer, _ = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(chatWidth-4),
	)

	return m.refreshViewport()
}

// executing reports whether any gate has a request in flight.
func (m Model) executing() bool {
	for _, g := range m.gates {
		if g.State() == chat.Executing {
			return true
		}
	}
	return false
}

func (m Model) refreshViewport() Model {
	if !m.ready {
		return m
	}
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
	return m
}

func flash(s string) tea.Cmd {
	return func() tea.Msg { return statusFlashMsg(s) }
}

func shortSession(token string) string {
	if len(token) <= 12 {
		return token
	}
	return token[:12] + "…"
}
