package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"tasksync/internal/drag"
	"tasksync/internal/gateway"
	"tasksync/internal/model"
	"tasksync/internal/mutate"
	"tasksync/internal/statusutil"
	"tasksync/internal/tui"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Task commands",
	}

	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksShowCmd(app))
	cmd.AddCommand(newTasksAddCmd(app))
	cmd.AddCommand(newTasksToggleCmd(app))
	cmd.AddCommand(newTasksEditCmd(app))
	cmd.AddCommand(newTasksDragCmd(app))
	cmd.AddCommand(newTasksClearGroupCmd(app))

	return cmd
}

func newTasksListCmd(app *App) *cobra.Command {
	var search string
	var hideEmpty bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks grouped by the current view",
		RunE: func(cmd *cobra.Command, args []string) error {
			if hideEmpty {
				app.cfg.View.IncludeEmpty = false
			}
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = s.Close() }()

			v := s.engine.View()
			v.Search = search
			s.engine.SetView(v)
			p := s.engine.Projection()
			return writeOut(cmd, app, map[string]any{
				"groupBy":  p.GroupBy,
				"viewMode": v.ViewMode,
				"tab":      v.Tab,
				"groups":   p.Groups,
			})
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Case-insensitive match on title, tags and assignee")
	cmd.Flags().BoolVar(&hideEmpty, "hide-empty", false, "Omit groups without tasks")
	return cmd
}

func newTasksShowCmd(app *App) *cobra.Command {
	var render bool
	var width int
	var style string

	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = s.Close() }()

			t, err := s.engine.OnTaskClick(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if render {
				out, err := tui.RenderTaskDetail(t, width, style)
				if err != nil {
					return writeErr(cmd, err)
				}
				_, err = cmd.OutOrStdout().Write([]byte(out))
				return err
			}
			return writeOut(cmd, app, t)
		},
	}
	cmd.Flags().BoolVar(&render, "render", false, "Render as formatted markdown instead of data")
	cmd.Flags().IntVar(&width, "width", 80, "Wrap width for --render")
	cmd.Flags().StringVar(&style, "style", tui.StylePlain, "Markdown style for --render (notty|ascii|dark|light)")
	return cmd
}

func newTasksAddCmd(app *App) *cobra.Command {
	var groupKey string
	var status string
	var priority string
	var assignee string
	var due string
	var tags []string
	var group string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task (optionally into a group of the current view)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = s.Close() }()

			in := mutate.AddContext{GroupKey: groupKey, DueDate: due, Tags: tags}
			if strings.TrimSpace(status) != "" {
				st, ok := statusutil.ParseLabel(status)
				if !ok {
					return writeErr(cmd, errors.New("unknown status: "+status))
				}
				in.Status = st
			}
			if strings.TrimSpace(priority) != "" {
				p, err := statusutil.ParsePriority(priority)
				if err != nil {
					return writeErr(cmd, err)
				}
				in.Priority = p
			}
			if strings.TrimSpace(assignee) != "" {
				a, err := resolveAssignee(s, assignee)
				if err != nil {
					return writeErr(cmd, err)
				}
				in.Assignee = a
			}
			if strings.TrimSpace(group) != "" {
				ref, err := resolveGroup(s, group)
				if err != nil {
					return writeErr(cmd, err)
				}
				in.Group = ref
			}

			res, err := s.engine.OnAddTask(cmd.Context(), strings.Join(args, " "), in)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := s.settle(cmd.Context(), res); err != nil {
				return writeErr(cmd, err)
			}
			t, _ := s.engine.Collection().Get(res.Pending.TaskID())
			return writeOut(cmd, app, t)
		},
	}
	cmd.Flags().StringVar(&groupKey, "group", "", "Group key under the current grouping (e.g. done, urgent, unassigned)")
	cmd.Flags().StringVar(&status, "status", "", "Status label")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority (low|medium|high|urgent)")
	cmd.Flags().StringVar(&assignee, "assignee", "", "Member name or email")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().StringVar(&group, "custom-group", "", "Custom group id")
	return cmd
}

func newTasksToggleCmd(app *App) *cobra.Command {
	var undo bool

	cmd := &cobra.Command{
		Use:   "toggle <task-id>",
		Short: "Mark a task done (or not started with --undo)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = s.Close() }()

			res, err := s.engine.OnToggleComplete(cmd.Context(), args[0], !undo)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeTaskResult(cmd, app, s, res)
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "Mark as not started")
	return cmd
}

func newTasksEditCmd(app *App) *cobra.Command {
	var title string
	var status string
	var priority string
	var due string
	var assignee string
	var unassign bool

	cmd := &cobra.Command{
		Use:   "edit <task-id>",
		Short: "Edit task fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = s.Close() }()

			flags := cmd.Flags()
			p := gateway.Patch{ID: args[0]}
			if flags.Changed("title") {
				p.Title = &title
			}
			if flags.Changed("status") {
				st, ok := statusutil.ParseLabel(status)
				if !ok {
					return writeErr(cmd, errors.New("unknown status: "+status))
				}
				p.Status = &st
			}
			if flags.Changed("priority") {
				pr := model.Priority(priority)
				p.Priority = &pr
			}
			if flags.Changed("due") {
				p.DueDate = &due
			}
			switch {
			case unassign:
				p.ClearAssignee = true
			case flags.Changed("assignee"):
				a, err := resolveAssignee(s, assignee)
				if err != nil {
					return writeErr(cmd, err)
				}
				p.Assignee = a
				p.ClearAssignee = a == nil
			}

			res, err := s.engine.EditTask(cmd.Context(), p)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeTaskResult(cmd, app, s, res)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&status, "status", "", "Status label")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority (low|medium|high|urgent)")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD, empty clears)")
	cmd.Flags().StringVar(&assignee, "assignee", "", "Member name or email")
	cmd.Flags().BoolVar(&unassign, "unassign", false, "Clear the assignee")
	return cmd
}

func newTasksDragCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drag <task-id> <group-key|task-id>",
		Short: "Drop a task on a group or before another task in the current view",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = s.Close() }()

			if err := s.engine.OnDragStart(args[0]); err != nil {
				return writeErr(cmd, err)
			}
			over := mutate.ParseDropTarget(s.engine.View().GroupBy, args[1])
			res, err := s.engine.OnDragEnd(cmd.Context(), over)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeTaskResult(cmd, app, s, res)
		},
	}
	return cmd
}

func newTasksClearGroupCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear-group <group-key>",
		Short: "Archive every task in a group of the current view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = s.Close() }()

			key := mutate.ParseDropTarget(s.engine.View().GroupBy, args[0])
			before := s.engine.Collection().Len()
			res, err := s.engine.ClearGroup(cmd.Context(), key)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := s.settle(cmd.Context(), res); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"group":    key,
				"archived": before - s.engine.Collection().Len(),
			})
		},
	}
	return cmd
}

// writeTaskResult waits for res and prints the transaction with the task's
// settled state.
func writeTaskResult(cmd *cobra.Command, app *App, s *session, res mutate.Result) error {
	if err := s.settle(cmd.Context(), res); err != nil {
		return writeErr(cmd, err)
	}
	out := map[string]any{"changed": res.Changed}
	if !res.Transaction.IsNoOp() {
		out["transaction"] = res.Transaction
	} else if res.Transaction.Reason != "" {
		out["reason"] = res.Transaction.Reason
	}
	if t, ok := s.engine.Collection().Get(res.TaskID); ok {
		out["task"] = t
	}
	return writeOut(cmd, app, out)
}

func resolveAssignee(s *session, key string) (*model.Assignee, error) {
	c, reason := drag.Resolver{Members: s.engine.Members()}.ChangeFor(model.GroupByAssignee, key)
	if c == nil {
		return nil, errors.New(reason + ": " + key)
	}
	return c.Assignee, nil
}

func resolveGroup(s *session, id string) (*model.GroupRef, error) {
	c, reason := drag.Resolver{Groups: s.engine.Groups()}.ChangeFor(model.GroupByCustomGroup, id)
	if c == nil {
		return nil, errors.New(reason + ": " + id)
	}
	return c.Group, nil
}
