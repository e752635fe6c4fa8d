package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tasksync/internal/config"
	"tasksync/internal/format"
	"tasksync/internal/logger"
	"tasksync/internal/model"
)

type App struct {
	ConfigPath string
	Dir        string
	DSN        string
	GroupBy    string
	SortBy     string
	ViewMode   string
	Tab        string
	Member     string
	PrettyJSON bool
	Format     string

	cfg *config.Config
	log *slog.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "tasksync",
		Short:        "Optimistic task board (CLI + TUI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive board
  tasksync

  # Scriptable commands
  tasksync tasks list --group-by priority
  tasksync tasks add "Write release notes" --group review
  tasksync tasks drag <task-id> done

  # Direct task lookup (shortcut for: tasksync tasks show <task-id>)
  tasksync 3f1c2a9e-5b7d-4c8e-9f10-2a3b4c5d6e7f
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive board.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := app.load(cmd); err != nil {
			return writeErr(cmd, err)
		}
		return nil
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&app.ConfigPath, "config", envOr("TASKSYNC_CONFIG", config.DefaultConfigFile), "Path to YAML config")
	pf.StringVar(&app.Dir, "dir", "", "Workspace dir for the sqlite store (overrides config)")
	pf.StringVar(&app.DSN, "dsn", "", "Postgres DSN (selects the postgres store)")
	pf.StringVar(&app.GroupBy, "group-by", "", "Grouping (status|priority|assignee|custom-group|due-date-bucket)")
	pf.StringVar(&app.SortBy, "sort-by", "", "Within-group sort in list mode (status|priority|assignee)")
	pf.StringVar(&app.ViewMode, "view", "", "View mode (list|kanban)")
	pf.StringVar(&app.Tab, "tab", "", "Context tab (all|mine|team)")
	pf.StringVar(&app.Member, "member", "", "Current member id for the mine/team tabs")
	pf.BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print output")
	pf.StringVar(&app.Format, "format", envOr("TASKSYNC_FORMAT", "json"), "Output format (json|edn)")

	cmd.AddCommand(newInitCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newGroupsCmd(app))
	cmd.AddCommand(newMembersCmd(app))

	return cmd
}

// load resolves configuration: defaults < YAML < env < flags.
func (app *App) load(cmd *cobra.Command) error {
	cfg, err := config.LoadFrom(app.ConfigPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("dir") {
		cfg.Store.Driver = "sqlite"
		cfg.Store.Dir = app.Dir
	}
	if flags.Changed("dsn") {
		cfg.Store.Driver = "postgres"
		cfg.Store.DSN = app.DSN
	}
	if flags.Changed("group-by") {
		cfg.View.GroupBy = app.GroupBy
	}
	if flags.Changed("sort-by") {
		cfg.View.SortBy = app.SortBy
	}
	if flags.Changed("view") {
		cfg.View.ViewMode = app.ViewMode
	}
	if flags.Changed("tab") {
		cfg.View.Tab = app.Tab
	}
	if flags.Changed("member") {
		cfg.Member = app.Member
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	app.cfg = cfg
	app.log = logger.NewWithWriter(cfg.Logging, cmd.ErrOrStderr())
	slog.SetDefault(app.log)
	return nil
}

func (app *App) view() model.View {
	return model.View{
		GroupBy:  model.GroupBy(app.cfg.View.GroupBy),
		ViewMode: model.ViewMode(app.cfg.View.ViewMode),
		SortBy:   model.SortBy(app.cfg.View.SortBy),
		Tab:      model.ContextTab(app.cfg.View.Tab),
	}
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), format.Envelope{Data: v}, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
