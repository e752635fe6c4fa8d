package cli

import (
	"github.com/spf13/cobra"

	"tasksync/internal/tui"
)

func runTUI(cmd *cobra.Command, app *App) error {
	b, err := openBackend(cmd.Context(), app)
	if err != nil {
		return writeErr(cmd, err)
	}
	s := &session{backend: b}
	board := tui.NewBoard(nil)
	if err := s.init(cmd.Context(), app, board.Notifier()); err != nil {
		_ = b.Close()
		return writeErr(cmd, err)
	}
	defer func() { _ = s.Close() }()
	board.SetEngine(s.engine)
	return tui.Run(cmd.Context(), board)
}
