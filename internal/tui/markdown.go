package tui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"tasksync/internal/model"
	"tasksync/internal/statusutil"
)

// StylePlain renders markdown without colors, for piping.
const StylePlain = "notty"

var (
	mdRendererMu sync.Mutex
	// Renderers are cached by style and wrap width. WithAutoStyle can block on
	// terminal queries, so a fixed style is always used.
	mdRenderers = map[string]*glamour.TermRenderer{}
)

func markdownRenderer(style string, width int) (*glamour.TermRenderer, error) {
	if width < 20 {
		width = 20
	}
	key := fmt.Sprintf("%s:%d", style, width)

	mdRendererMu.Lock()
	defer mdRendererMu.Unlock()
	if r := mdRenderers[key]; r != nil {
		return r, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	mdRenderers[key] = r
	return r, nil
}

// boardStyle follows the board's light/dark decision.
func boardStyle() string {
	if dark, ok := themeFromEnv(); ok && !dark {
		return "light"
	}
	return "dark"
}

// TaskMarkdown is the detail view of t as markdown.
func TaskMarkdown(t model.Task) string {
	var b strings.Builder
	title := strings.TrimSpace(t.Title)
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	check := " "
	if t.Completed {
		check = "x"
	}
	fmt.Fprintf(&b, "- [%s] **Status:** %s\n", check, statusutil.Label(statusutil.NormalizeStatus(t.Status)))
	fmt.Fprintf(&b, "- **Priority:** %s\n", statusutil.NormalizePriority(t.Priority))
	if t.Assignee != nil {
		fmt.Fprintf(&b, "- **Assignee:** %s\n", t.Assignee.Name)
	} else {
		b.WriteString("- **Assignee:** unassigned\n")
	}
	if t.DueDate != "" {
		fmt.Fprintf(&b, "- **Due:** %s\n", t.DueDate)
	}
	if t.Group != nil {
		name := t.Group.Name
		if name == "" {
			name = t.Group.ID
		}
		fmt.Fprintf(&b, "- **Group:** %s\n", name)
	}
	if len(t.Tags) > 0 {
		tags := make([]string, 0, len(t.Tags))
		for _, tag := range t.Tags {
			tags = append(tags, "`"+tag+"`")
		}
		fmt.Fprintf(&b, "- **Tags:** %s\n", strings.Join(tags, " "))
	}
	fmt.Fprintf(&b, "\n`%s`\n", t.ID)
	return b.String()
}

// RenderTaskDetail renders t's detail view with glamour. style is a glamour
// standard style name; empty picks the board's theme.
func RenderTaskDetail(t model.Task, width int, style string) (string, error) {
	if strings.TrimSpace(style) == "" {
		style = boardStyle()
	}
	r, err := markdownRenderer(style, width)
	if err != nil {
		return "", err
	}
	return r.Render(TaskMarkdown(t))
}
