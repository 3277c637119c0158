package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/balkashynov/defectctl/internal/models"
	"github.com/balkashynov/defectctl/internal/tui"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the backend",
	Long: `Sign in and keep the session for later commands.

Without --password an interactive form is shown.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")

		var user *models.User
		if password != "" {
			if username == "" {
				return errors.New("--username is required with --password")
			}
			user, err = a.session.Login(cmd.Context(), username, password)
		} else {
			user, err = tui.RunAuthTUI(cmd.Context(), a.session, tui.ModeLogin, username)
		}
		if errors.Is(err, tui.ErrCancelled) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		return render(cmd.OutOrStdout(), user, func() {
			success(cmd.OutOrStdout(), "Signed in as %s (%s)", user.Username, user.Role)
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		a.session.Logout()
		success(cmd.OutOrStdout(), "Signed out")
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Long: `Create an account. New accounts start as observers; a manager can change the role later.

Without all of --username, --email and --password an interactive form is shown.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		in := models.RegisterInput{}
		in.Username, _ = cmd.Flags().GetString("username")
		in.Email, _ = cmd.Flags().GetString("email")
		in.Password, _ = cmd.Flags().GetString("password")

		var user *models.User
		if in.Username != "" && in.Email != "" && in.Password != "" {
			user, err = a.session.Register(cmd.Context(), in)
		} else {
			user, err = tui.RunAuthTUI(cmd.Context(), a.session, tui.ModeRegister, in.Username)
		}
		if errors.Is(err, tui.ErrCancelled) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}

		return render(cmd.OutOrStdout(), user, func() {
			success(cmd.OutOrStdout(), "Registered %s as %s", user.Username, user.Role)
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser()
		if err != nil {
			return err
		}
		if err := a.session.Refresh(cmd.Context()); err != nil {
			return err
		}

		user := a.session.Snapshot().User
		if user == nil {
			return errors.New("session ended")
		}
		return render(cmd.OutOrStdout(), user, func() {
			w := cmd.OutOrStdout()
			printFields(w,
				"ID", fmt.Sprint(user.ID),
				"Username", user.Username,
				"Email", user.Email,
				"Role", roleBadge(user.Role),
				"Active", fmt.Sprint(user.IsActive),
			)
		})
	},
}

func init() {
	loginCmd.Flags().StringP("username", "u", "", "Username")
	loginCmd.Flags().StringP("password", "p", "", "Password (skips the form)")

	registerCmd.Flags().StringP("username", "u", "", "Username")
	registerCmd.Flags().StringP("email", "e", "", "Email address")
	registerCmd.Flags().StringP("password", "p", "", "Password")
}
