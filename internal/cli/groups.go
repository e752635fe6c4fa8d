package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"tasksync/internal/gateway"
	"tasksync/internal/model"
)

func newGroupsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Custom group commands",
	}

	cmd.AddCommand(newGroupsListCmd(app))
	cmd.AddCommand(newGroupsAddCmd(app))
	cmd.AddCommand(newGroupsRenameCmd(app))
	cmd.AddCommand(newGroupsColorCmd(app))
	cmd.AddCommand(newGroupsDeleteCmd(app))
	cmd.AddCommand(newGroupsReorderCmd(app))

	return cmd
}

func newGroupsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List custom groups in display order",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = b.Close() }()

			groups, err := b.ListGroups(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			order, err := b.LoadGroupOrder(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"order":  order,
				"groups": groups,
			})
		},
	}
}

func newGroupsAddCmd(app *App) *cobra.Command {
	var color string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a custom group",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = b.Close() }()

			g, err := b.CreateGroup(cmd.Context(), strings.Join(args, " "), color)
			if err != nil {
				return writeErr(cmd, err)
			}
			order, err := b.LoadGroupOrder(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := b.SaveGroupOrder(cmd.Context(), append(order, g.ID)); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, g)
		},
	}
	cmd.Flags().StringVar(&color, "color", "", "Display color (e.g. #22c55e)")
	return cmd
}

func newGroupsRenameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <group-id> <name>",
		Short: "Rename a custom group",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(strings.Join(args[1:], " "))
			return updateGroup(cmd, app, args[0], func(g *model.Group) { g.Name = name })
		},
	}
}

func newGroupsColorCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "color <group-id> <color>",
		Short: "Change a custom group's color",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			color := strings.TrimSpace(args[1])
			return updateGroup(cmd, app, args[0], func(g *model.Group) { g.Color = color })
		},
	}
}

func updateGroup(cmd *cobra.Command, app *App, id string, edit func(*model.Group)) error {
	id = strings.TrimSpace(id)
	if id == model.InboxKey {
		return writeErr(cmd, gateway.ErrInboxImmutable)
	}
	b, err := openBackend(cmd.Context(), app)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer func() { _ = b.Close() }()

	groups, err := b.ListGroups(cmd.Context())
	if err != nil {
		return writeErr(cmd, err)
	}
	for _, g := range groups {
		if g.ID != id {
			continue
		}
		edit(&g)
		if err := b.UpdateGroup(cmd.Context(), g); err != nil {
			return writeErr(cmd, err)
		}
		return writeOut(cmd, app, g)
	}
	return writeErr(cmd, gateway.NotFoundError{Kind: "group", ID: id})
}

func newGroupsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <group-id>",
		Short: "Delete a custom group; its tasks move to the inbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = b.Close() }()

			id := strings.TrimSpace(args[0])
			if err := b.DeleteGroup(cmd.Context(), id); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"deleted": id})
		},
	}
}

func newGroupsReorderCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <group-id> <over-group-id>",
		Short: "Drop a custom group onto another group's slot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = s.Close() }()

			v := s.engine.View()
			v.GroupBy = model.GroupByCustomGroup
			s.engine.SetView(v)
			if err := s.engine.OnDragStart(args[0]); err != nil {
				return writeErr(cmd, err)
			}
			res, err := s.engine.OnDragEnd(cmd.Context(), args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := s.settle(cmd.Context(), res); err != nil {
				return writeErr(cmd, err)
			}
			out := map[string]any{
				"changed": res.Changed,
				"order":   s.engine.GroupOrder(),
			}
			if res.Transaction.Reason != "" {
				out["reason"] = res.Transaction.Reason
			}
			return writeOut(cmd, app, out)
		},
	}
}
