package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/balkashynov/defectctl/internal/models"
	"github.com/balkashynov/defectctl/internal/session"
)

var projectCmd = &cobra.Command{
	Use:     "project",
	Aliases: []string{"projects", "p"},
	Short:   "Manage projects",
}

var projectListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List projects",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser()
		if err != nil {
			return err
		}
		projects, err := a.api.Projects(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing projects: %w", err)
		}

		return render(cmd.OutOrStdout(), projects, func() {
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects yet. Use 'defectctl project add \"Title\"' to create one.")
				return
			}
			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				rows = append(rows, []string{
					strconv.Itoa(p.ID),
					truncate(p.Title, 30),
					truncate(deref(p.Description), 40),
					strconv.Itoa(p.OwnerID),
					p.CreatedAt.Display(),
				})
			}
			printTable(cmd.OutOrStdout(), []string{"ID", "TITLE", "DESCRIPTION", "OWNER", "CREATED"}, rows)
		})
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show [project-id]",
	Short: "Show a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser()
		if err != nil {
			return err
		}
		id, err := parseID(args[0], "project")
		if err != nil {
			return err
		}
		p, err := a.api.Project(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("fetching project %d: %w", id, err)
		}

		return render(cmd.OutOrStdout(), p, func() {
			printFields(cmd.OutOrStdout(),
				"ID", strconv.Itoa(p.ID),
				"Title", p.Title,
				"Description", deref(p.Description),
				"Owner", strconv.Itoa(p.OwnerID),
				"Created", p.CreatedAt.Display(),
			)
		})
	},
}

var projectAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Create a project owned by you",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser()
		if err != nil {
			return err
		}
		in := models.ProjectInput{
			Title:       args[0],
			Description: optionalString(cmd, "description"),
		}
		owner := a.session.Snapshot().User.ID
		p, err := a.api.CreateProject(cmd.Context(), owner, in)
		if err != nil {
			return fmt.Errorf("creating project: %w", err)
		}

		if err := render(cmd.OutOrStdout(), p, func() {
			success(cmd.OutOrStdout(), "Created project #%d: %s", p.ID, p.Title)
		}); err != nil {
			return err
		}
		a.nav.Navigate(session.ProjectRoute(p.ID))
		return nil
	},
}

var projectEditCmd = &cobra.Command{
	Use:   "edit [project-id]",
	Short: "Change a project's title or description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser()
		if err != nil {
			return err
		}
		id, err := parseID(args[0], "project")
		if err != nil {
			return err
		}

		title := optionalString(cmd, "title")
		description := optionalString(cmd, "description")
		if title == nil && description == nil {
			return errors.New("nothing to change: pass --title or --description")
		}

		// the backend replaces the whole project, so start from what it has now
		existing, err := a.api.Project(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("fetching project %d: %w", id, err)
		}
		in := models.ProjectInput{Title: existing.Title, Description: existing.Description}
		if title != nil {
			in.Title = *title
		}
		if description != nil {
			in.Description = description
		}

		p, err := a.api.UpdateProject(cmd.Context(), id, in)
		if err != nil {
			return fmt.Errorf("updating project %d: %w", id, err)
		}
		if err := render(cmd.OutOrStdout(), p, func() {
			success(cmd.OutOrStdout(), "Updated project #%d: %s", p.ID, p.Title)
		}); err != nil {
			return err
		}
		a.nav.Navigate(session.ProjectRoute(p.ID))
		return nil
	},
}

var projectRemoveCmd = &cobra.Command{
	Use:     "rm [project-id]",
	Aliases: []string{"delete"},
	Short:   "Delete a project",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser()
		if err != nil {
			return err
		}
		id, err := parseID(args[0], "project")
		if err != nil {
			return err
		}
		if err := a.api.DeleteProject(cmd.Context(), id); err != nil {
			return fmt.Errorf("deleting project %d: %w", id, err)
		}
		success(cmd.OutOrStdout(), "Deleted project #%d", id)
		return nil
	},
}

func init() {
	projectAddCmd.Flags().StringP("description", "d", "", "Project description")
	projectEditCmd.Flags().StringP("title", "t", "", "New title")
	projectEditCmd.Flags().StringP("description", "d", "", "New description")

	projectCmd.AddCommand(projectListCmd, projectShowCmd, projectAddCmd, projectEditCmd, projectRemoveCmd)
}
