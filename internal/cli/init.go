package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"tasksync/internal/gateway"
)

func newInitCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the workspace store",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = b.Close() }()

			order, err := b.LoadGroupOrder(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			data := map[string]any{
				"driver":     app.cfg.Store.Driver,
				"groupOrder": order,
			}
			if app.cfg.Store.Driver == "sqlite" {
				data["dir"] = app.cfg.Store.Dir
				data["sqlitePath"] = filepath.Join(app.cfg.Store.Dir, gateway.SQLiteFile)
			}
			return writeOut(cmd, app, data)
		},
	}
}
