package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/askdb/askdb/internal/chat"
	"github.com/askdb/askdb/internal/domain"
	"github.com/askdb/askdb/internal/export"
)

func (m Model) hydrateCmd() tea.Cmd {
	session := m.ctrl.Session()
	return func() tea.Msg {
		return hydrateMsg(m.hydrator.Hydrate(context.Background(), session))
	}
}

func (m Model) submitCmd(req chat.SubmitRequest) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.agent.SubmitTurn(context.Background(), req.Query, req.Session)
		return turnResultMsg{req: req, resp: resp, err: err}
	}
}

func (m Model) executeCmd(req chat.ExecutionRequest) tea.Cmd {
	return func() tea.Msg {
		result, err := m.agent.ExecuteSQL(context.Background(), req.SQL, req.Session)
		return execResultMsg{req: req, result: result, err: err}
	}
}

func (m Model) uploadCmd(path string) tea.Cmd {
	session := m.ctrl.Session()
	return func() tea.Msg {
		result, err := m.agent.UploadFile(context.Background(), path, session)
		return uploadResultMsg{result: result, err: err}
	}
}

func (m Model) copySQLCmd() tea.Cmd {
	g, ok := m.gates[m.activeGate]
	if !ok {
		return nil
	}
	sql := g.WorkingSQL()
	return func() tea.Msg {
		if err := clipboard.WriteAll(sql); err != nil {
			return statusFlashMsg(m.styles.Error.Render("Clipboard unavailable: " + err.Error()))
		}
		return statusFlashMsg(m.styles.Success.Render("SQL copied to clipboard."))
	}
}

// handleCommand dispatches slash commands typed into the chat input.
func (m Model) handleCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	cmd := parts[0]
	args := parts[1:]

	switch cmd {
	case "/help":
		m.log.Append(domain.Message{
			ID:        domain.NewMessageID(),
			Role:      domain.RoleAssistant,
			Content:   helpText,
			CreatedAt: time.Now(),
		})
		return m.refreshViewport(), nil

	case "/reset", "/new":
		return m.handleReset()

	case "/upload":
		if len(args) == 0 {
			return m.startUploadPrompt(), nil
		}
		m.isLoading = true
		return m, tea.Batch(m.spinner.Tick, m.uploadCmd(strings.Join(args, " ")))

	case "/export":
		format := "csv"
		if len(args) > 0 {
			format = strings.ToLower(args[0])
		}
		return m, m.exportCmd(format)

	case "/copy":
		return m, m.copyResultsCmd()

	case "/status":
		return m, m.statusCmd()

	case "/delete":
		return m, m.deleteDatabaseCmd()

	case "/quit", "/exit":
		return m, tea.Quit

	default:
		return m, flash(m.styles.Error.Render("Unknown command: " + cmd + " (try /help)"))
	}
}

// exportCmd writes the last result set to a timestamped file in the export
// directory.
func (m Model) exportCmd(format string) tea.Cmd {
	rows := m.lastRows
	dir := m.exportDir
	styles := m.styles
	return func() tea.Msg {
		name := fmt.Sprintf("askdb_results_%s.%s", time.Now().Format("20060102_150405"), format)
		path := filepath.Join(dir, name)

		var err error
		switch format {
		case "csv":
			err = export.WriteCSV(rows, path)
		case "json":
			err = export.WriteJSON(rows, path)
		case "xlsx":
			err = export.WriteXLSX(rows, path)
		default:
			return statusFlashMsg(styles.Error.Render("Unknown format: " + format + " (csv, json, xlsx)"))
		}

		switch {
		case errors.Is(err, export.ErrNoData):
			return statusFlashMsg(styles.Muted.Render("No results to export yet."))
		case err != nil:
			return statusFlashMsg(styles.Error.Render("Export failed: " + err.Error()))
		}
		return statusFlashMsg(styles.Success.Render("Saved " + path))
	}
}

// copyResultsCmd puts the last result set on the clipboard as TSV, ready to
// paste into a spreadsheet.
func (m Model) copyResultsCmd() tea.Cmd {
	rows := m.lastRows
	styles := m.styles
	return func() tea.Msg {
		switch err := export.CopyToClipboard(rows); {
		case errors.Is(err, export.ErrNoData):
			return statusFlashMsg(styles.Muted.Render("No results to copy yet."))
		case err != nil:
			return statusFlashMsg(styles.Error.Render("Clipboard unavailable: " + err.Error()))
		}
		return statusFlashMsg(styles.Success.Render("Results copied to clipboard."))
	}
}

func (m Model) statusCmd() tea.Cmd {
	session := m.ctrl.Session()
	styles := m.styles
	agent := m.agent
	return func() tea.Msg {
		status, err := agent.DatabaseStatus(context.Background(), session)
		if err != nil {
			return statusFlashMsg(styles.Error.Render("Status check failed: " + err.Error()))
		}
		if !status.HasDatabase {
			return statusFlashMsg(styles.Muted.Render("No data loaded. Use /upload <path> to load a file."))
		}
		meta := status.Metadata
		if meta == nil {
			return statusFlashMsg(styles.Success.Render("Data loaded, but table details are unavailable."))
		}
		return statusFlashMsg(styles.Success.Render(fmt.Sprintf(
			"Table %q: %d row(s), %d column(s) (from %s)",
			meta.TableName, meta.RowCount, meta.ColumnCount, meta.OriginalFilename)))
	}
}

func (m Model) deleteDatabaseCmd() tea.Cmd {
	session := m.ctrl.Session()
	styles := m.styles
	agent := m.agent
	return func() tea.Msg {
		if err := agent.DeleteDatabase(context.Background(), session); err != nil {
			return statusFlashMsg(styles.Error.Render("Delete failed: " + err.Error()))
		}
		return statusFlashMsg(styles.Success.Render("Uploaded data deleted."))
	}
}

const helpText = `**Commands**

- ` + "`/upload <path>`" + ` load a CSV or Excel file (or Ctrl+O)
- ` + "`/export csv|json|xlsx`" + ` save the last results to a file
- ` + "`/copy`" + ` copy the last results to the clipboard as TSV
- ` + "`/status`" + ` show what data is loaded
- ` + "`/delete`" + ` remove the uploaded data
- ` + "`/reset`" + ` start a new conversation (or Ctrl+N)
- ` + "`/quit`" + ` exit

**When SQL is proposed**

- ` + "`Ctrl+R`" + ` run it
- ` + "`Ctrl+E`" + ` edit it before running
- ` + "`Ctrl+Y`" + ` copy it to the clipboard`
