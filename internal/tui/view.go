package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"tasksync/internal/grouping"
	"tasksync/internal/model"
	"tasksync/internal/statusutil"
)

const (
	defaultWidth   = 100
	minColumnWidth = 18
	maxColumnWidth = 36
)

func (m boardModel) contentWidth() int {
	if m.width > 0 {
		return m.width
	}
	return defaultWidth
}

func (m boardModel) View() string {
	if m.mode == modeDetail {
		return m.detail + "\n" + styleMuted().Render("esc back")
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n\n")

	v := m.engine().View()
	if v.ViewMode == model.ViewModeKanban {
		b.WriteString(m.kanbanView())
	} else {
		b.WriteString(m.listView())
	}
	b.WriteString("\n")

	if m.mode == modeAdd {
		b.WriteString("\n")
		b.WriteString(m.input.View())
	}
	if m.flash != "" {
		b.WriteString("\n")
		b.WriteString(styleFlashError().Render(m.flash))
	}
	b.WriteString("\n")
	b.WriteString(m.helpView())
	return b.String()
}

func (m boardModel) headerView() string {
	v := m.engine().View()
	parts := []string{
		styleHeader().Render("tasksync"),
		styleMuted().Render("group by " + string(v.GroupBy)),
		styleMuted().Render(string(v.ViewMode)),
	}
	if m.engine().Syncing() {
		parts = append(parts, m.spin.View()+" saving")
	}
	return strings.Join(parts, "  ")
}

func (m boardModel) helpView() string {
	bindings := m.keys.boardHelp()
	if m.mode == modeDrag {
		bindings = m.keys.dragHelp()
	}
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return styleMuted().Render(strings.Join(parts, " • "))
}

func (m boardModel) columnWidth() int {
	n := len(m.proj.Groups)
	if n == 0 {
		return maxColumnWidth
	}
	w := m.contentWidth()/n - 4
	if w < minColumnWidth {
		w = minColumnWidth
	}
	if w > maxColumnWidth {
		w = maxColumnWidth
	}
	return w
}

func (m boardModel) kanbanView() string {
	w := m.columnWidth()
	cols := make([]string, 0, len(m.proj.Groups))
	for i, g := range m.proj.Groups {
		active := i == m.col || (m.mode == modeDrag && i == m.dropCol)
		body := m.columnBody(i, g, w)
		cols = append(cols, styleColumn(active).Width(w).Render(body))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (m boardModel) listView() string {
	w := m.contentWidth() - 2
	sections := make([]string, 0, len(m.proj.Groups))
	for i, g := range m.proj.Groups {
		sections = append(sections, m.columnBody(i, g, w))
	}
	return strings.Join(sections, "\n\n")
}

func (m boardModel) columnBody(col int, g grouping.Group, w int) string {
	lines := []string{groupColor(g.Color).Render(truncate(fmt.Sprintf("%s (%d)", g.Title, len(g.Tasks)), w))}
	dragging := m.mode == modeDrag && col == m.dropCol
	for row, t := range g.Tasks {
		if dragging && row == m.dropRow {
			lines = append(lines, styleDropMarker().Render(truncate("▸ drop here", w)))
		}
		lines = append(lines, m.cardLines(t, w, col == m.col && row == m.row)...)
	}
	if dragging && m.dropRow >= len(g.Tasks) {
		lines = append(lines, styleDropMarker().Render(truncate("▸ drop here", w)))
	}
	if len(g.Tasks) == 0 && !dragging {
		lines = append(lines, styleMuted().Render("(empty)"))
	}
	return strings.Join(lines, "\n")
}

func (m boardModel) cardLines(t model.Task, w int, selected bool) []string {
	check := "[ ]"
	if t.Completed {
		check = "[x]"
	}
	title := truncate(check+" "+t.Title, w)
	if selected {
		title = styleSelected().Render(title)
	}
	return []string{title, styleMuted().Render(truncate("    "+cardMeta(t, m.proj.GroupBy), w))}
}

// cardMeta lists the attributes the current grouping does not already show.
func cardMeta(t model.Task, groupBy model.GroupBy) string {
	var parts []string
	if groupBy != model.GroupByStatus {
		parts = append(parts, statusutil.Label(statusutil.NormalizeStatus(t.Status)))
	}
	if groupBy != model.GroupByPriority {
		parts = append(parts, string(statusutil.NormalizePriority(t.Priority)))
	}
	if groupBy != model.GroupByAssignee && t.Assignee != nil {
		parts = append(parts, "@"+t.Assignee.Name)
	}
	if t.DueDate != "" {
		parts = append(parts, "due "+t.DueDate)
	}
	return strings.Join(parts, " · ")
}

func truncate(s string, w int) string {
	if w <= 0 {
		return ""
	}
	return xansi.Truncate(s, w, "…")
}

