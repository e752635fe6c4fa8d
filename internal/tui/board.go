// Package tui is the interactive task board: grouped columns with keyboard
// drag-and-drop over the optimistic engine.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"tasksync/internal/mutate"
)

// Board connects an engine to the running program.
type Board struct {
	engine  *mutate.Engine
	notices chan mutate.Notice
}

func NewBoard(e *mutate.Engine) *Board {
	return &Board{engine: e, notices: make(chan mutate.Notice, 16)}
}

func (b *Board) SetEngine(e *mutate.Engine) { b.engine = e }

// Notifier forwards rollback notices to the board. Notices arriving while the
// buffer is full are dropped.
func (b *Board) Notifier() mutate.Notifier {
	return mutate.NotifierFunc(func(n mutate.Notice) {
		select {
		case b.notices <- n:
		default:
		}
	})
}

func Run(ctx context.Context, b *Board) error {
	applyThemePreference()
	applyColorProfilePreference()
	_, err := tea.NewProgram(newModel(ctx, b), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
