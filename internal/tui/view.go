package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/askdb/askdb/internal/chat"
	"github.com/askdb/askdb/internal/domain"
	"github.com/askdb/askdb/internal/export"
)

const (
	chartBarWidth  = 30
	resultPreviewN = 10
	cellPreviewMax = 24
)

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	title := m.styles.Header.Render(" askdb ")
	session := m.styles.Muted.Render("session " + shortSession(m.ctrl.Session()))

	var status string
	if m.isLoading {
		status = lipgloss.JoinHorizontal(lipgloss.Center, m.spinner.View(), " ", m.styles.Badge.Render("Thinking..."))
	} else {
		status = m.styles.Success.Render("Ready")
	}

	return lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", status, "  ", session) + "\n"
}

func (m Model) renderInput() string {
	style := m.styles.InputBox
	if m.inputMode == InputModeSQL {
		style = m.styles.SQLEdit
	}
	return style.Render(m.textarea.View())
}

func (m Model) renderFooter() string {
	if m.status != "" {
		return m.status
	}

	hotkeys := "Enter: send | Ctrl+O: upload | Ctrl+N: new chat | /help | Ctrl+C: quit"
	if g, ok := m.gates[m.activeGate]; ok && g.State() != chat.Executing {
		hotkeys = "Ctrl+R: run SQL | Ctrl+E: edit | Ctrl+Y: copy SQL | " + hotkeys
	}
	return m.styles.Muted.Render(hotkeys)
}

func (m Model) renderHistory() string {
	var sb strings.Builder

	for _, msg := range m.log.Messages() {
		switch msg.Role {
		case domain.RoleUser:
			sb.WriteString(m.styles.UserLabel.Render("You") + "\n")
			sb.WriteString(m.styles.UserInput.Render(msg.Content))
			sb.WriteString("\n")

		default:
			sb.WriteString(m.styles.BotLabel.Render("askdb") + "\n")
			sb.WriteString(m.safeRenderMarkdown(msg.Content))

			if len(msg.ChartData) > 0 {
				sb.WriteString(m.renderChart(msg.ChartData))
			}
			if len(msg.Result) > 0 {
				sb.WriteString(m.renderResultPreview(msg.Result))
			}
			if g, ok := m.gates[msg.ID]; ok {
				sb.WriteString(m.renderGate(g))
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// safeRenderMarkdown renders markdown with panic recovery; glamour can choke
// on partial or odd input.
func (m Model) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()

	if m.renderer != nil && content != "" {
		if rendered, err := m.renderer.Render(content); err == nil {
			return rendered
		}
	}
	return content
}

// renderGate draws the approval panel under the message that proposed the
// statement.
func (m Model) renderGate(g *chat.Gate) string {
	var body strings.Builder
	body.WriteString(m.styles.Badge.Render("Proposed SQL") + "\n")
	body.WriteString(g.WorkingSQL() + "\n")

	switch g.State() {
	case chat.Executing:
		body.WriteString(m.styles.Muted.Render(m.spinner.View() + " Running..."))
	case chat.Editing:
		body.WriteString(m.styles.Muted.Render("Editing below. Enter saves, Esc cancels."))
	case chat.ResolvedSuccess:
		_, n := g.Result()
		body.WriteString(m.styles.Success.Render(fmt.Sprintf("Executed. %d row(s) returned.", n)))
	case chat.ResolvedFailure:
		body.WriteString(m.styles.Error.Render("Failed: "+g.ErrorText()) + "\n")
		body.WriteString(m.styles.Muted.Render("Ctrl+E to edit, Ctrl+R to retry."))
	default:
		body.WriteString(m.styles.Muted.Render("Ctrl+R to run, Ctrl+E to edit, Ctrl+Y to copy."))
	}

	return "\n" + m.styles.SQLPanel.Render(body.String()) + "\n"
}

// renderChart draws chart points as a horizontal bar list. Bars scale by
// absolute value so negative points still get a bar.
func (m Model) renderChart(points []domain.ChartPoint) string {
	max := 0.0
	for _, p := range points {
		if v := math.Abs(p.Value); v > max {
			max = v
		}
	}
	if max == 0 {
		max = 1
	}

	labelWidth := 0
	for _, p := range points {
		if len(p.Category) > labelWidth {
			labelWidth = len(p.Category)
		}
	}

	var sb strings.Builder
	sb.WriteString("\n")
	for _, p := range points {
		width := int(math.Abs(p.Value) / max * chartBarWidth)
		if width < 1 && p.Value != 0 {
			width = 1
		}
		bar := m.styles.Bar.Render(strings.Repeat("█", width))
		sb.WriteString(fmt.Sprintf("  %-*s %s %s\n",
			labelWidth, p.Category, bar, m.styles.Muted.Render(formatChartValue(p.Value))))
	}
	return sb.String()
}

// renderResultPreview shows the first rows of a result set as an aligned
// text table. Full data is available through /export and /copy.
func (m Model) renderResultPreview(rows domain.RowSet) string {
	cols := export.Columns(rows)
	if len(cols) == 0 {
		return ""
	}

	shown := rows
	if len(shown) > resultPreviewN {
		shown = shown[:resultPreviewN]
	}

	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = len(c)
	}
	cells := make([][]string, len(shown))
	for r, row := range shown {
		cells[r] = make([]string, len(cols))
		for i, c := range cols {
			s := previewCell(row[c])
			cells[r][i] = s
			if len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}

	var sb strings.Builder
	sb.WriteString("\n  ")
	for i, c := range cols {
		sb.WriteString(m.styles.Badge.Render(pad(c, widths[i])) + "  ")
	}
	sb.WriteString("\n")
	for _, row := range cells {
		sb.WriteString("  ")
		for i, cell := range row {
			sb.WriteString(pad(cell, widths[i]) + "  ")
		}
		sb.WriteString("\n")
	}
	if len(rows) > resultPreviewN {
		sb.WriteString(m.styles.Muted.Render(fmt.Sprintf("  ... %d more row(s), /export or /copy for all\n", len(rows)-resultPreviewN)))
	}
	return sb.String()
}

func previewCell(v any) string {
	s := fmt.Sprintf("%v", v)
	if v == nil {
		s = ""
	}
	if len(s) > cellPreviewMax {
		s = s[:cellPreviewMax-1] + "…"
	}
	return s
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func formatChartValue(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
