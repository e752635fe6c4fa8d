package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"tasksync/internal/model"
)

func newMembersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Workspace member commands",
	}
	cmd.AddCommand(newMembersListCmd(app))
	cmd.AddCommand(newMembersAddCmd(app))
	return cmd
}

func newMembersListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List members",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = b.Close() }()

			members, err := b.ListMembers(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, members)
		},
	}
}

func newMembersAddCmd(app *App) *cobra.Command {
	var email string
	var id string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add or update a member (assignee groups resolve by name or email)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = b.Close() }()

			m, err := b.UpsertMember(cmd.Context(), model.Member{
				ID:    strings.TrimSpace(id),
				Name:  strings.Join(args, " "),
				Email: strings.TrimSpace(email),
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, m)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&id, "id", "", "Member id (generated when empty)")
	return cmd
}
