package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/balkashynov/defectctl/internal/parser"
	"github.com/balkashynov/defectctl/internal/session"
)

var userCmd = &cobra.Command{
	Use:     "user",
	Aliases: []string{"users"},
	Short:   "Manage users (managers only)",
}

var userListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List users",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser(session.ManageUsers...)
		if err != nil {
			return err
		}
		users, err := a.api.Users(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing users: %w", err)
		}

		return render(cmd.OutOrStdout(), users, func() {
			rows := make([][]string, 0, len(users))
			for _, u := range users {
				rows = append(rows, []string{
					strconv.Itoa(u.ID),
					u.Username,
					u.Email,
					roleBadge(u.Role),
					strconv.FormatBool(u.IsActive),
				})
			}
			printTable(cmd.OutOrStdout(), []string{"ID", "USERNAME", "EMAIL", "ROLE", "ACTIVE"}, rows)
		})
	},
}

var userRoleCmd = &cobra.Command{
	Use:   "role [user-id] [manager|engineer|observer]",
	Short: "Change a user's role",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser(session.ManageUsers...)
		if err != nil {
			return err
		}
		id, err := parseID(args[0], "user")
		if err != nil {
			return err
		}
		role, err := parser.ParseRole(args[1])
		if err != nil {
			return err
		}
		u, err := a.api.UpdateUserRole(cmd.Context(), id, role)
		if err != nil {
			return fmt.Errorf("changing role of user %d: %w", id, err)
		}

		if err := render(cmd.OutOrStdout(), u, func() {
			success(cmd.OutOrStdout(), "%s is now %s", u.Username, u.Role)
		}); err != nil {
			return err
		}
		// changing your own role invalidates what the session knows about you
		if me := a.session.Snapshot().User; me != nil && me.ID == u.ID {
			return a.session.Refresh(cmd.Context())
		}
		return nil
	},
}

func init() {
	userCmd.AddCommand(userListCmd, userRoleCmd)
}
