package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/balkashynov/defectctl/internal/parser"
	"github.com/balkashynov/defectctl/internal/session"
)

var commentCmd = &cobra.Command{
	Use:     "comment",
	Aliases: []string{"comments"},
	Short:   "Discuss defects",
}

var commentListCmd = &cobra.Command{
	Use:     "ls [defect-ref]",
	Aliases: []string{"list"},
	Short:   "List comments on a defect",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser()
		if err != nil {
			return err
		}
		defectID, err := parseID(args[0], "defect")
		if err != nil {
			return err
		}
		comments, err := a.api.Comments(cmd.Context(), defectID)
		if err != nil {
			return fmt.Errorf("listing comments on defect %d: %w", defectID, err)
		}

		return render(cmd.OutOrStdout(), comments, func() {
			if len(comments) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No comments on %s yet.\n", parser.DefectRef(defectID))
				return
			}
			rows := make([][]string, 0, len(comments))
			for _, c := range comments {
				rows = append(rows, []string{
					strconv.Itoa(c.ID),
					strconv.Itoa(c.AuthorID),
					c.CreatedAt.Display(),
					truncate(c.Content, 60),
				})
			}
			printTable(cmd.OutOrStdout(), []string{"ID", "AUTHOR", "CREATED", "CONTENT"}, rows)
		})
	},
}

var commentAddCmd = &cobra.Command{
	Use:   "add [defect-ref] [text]",
	Short: "Comment on a defect",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser()
		if err != nil {
			return err
		}
		defectID, err := parseID(args[0], "defect")
		if err != nil {
			return err
		}
		c, err := a.api.CreateComment(cmd.Context(), defectID, strings.Join(args[1:], " "))
		if err != nil {
			return fmt.Errorf("commenting on defect %d: %w", defectID, err)
		}

		if err := render(cmd.OutOrStdout(), c, func() {
			success(cmd.OutOrStdout(), "Added comment #%d to %s", c.ID, parser.DefectRef(defectID))
		}); err != nil {
			return err
		}
		a.nav.Navigate(session.DefectRoute(defectID))
		return nil
	},
}

var commentEditCmd = &cobra.Command{
	Use:   "edit [comment-id] [text]",
	Short: "Rewrite a comment",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser()
		if err != nil {
			return err
		}
		id, err := parseID(args[0], "comment")
		if err != nil {
			return err
		}
		ref, _ := cmd.Flags().GetString("defect")
		defectID, err := parseID(ref, "defect")
		if err != nil {
			return err
		}
		c, err := a.api.UpdateComment(cmd.Context(), id, defectID, strings.Join(args[1:], " "))
		if err != nil {
			return fmt.Errorf("updating comment %d: %w", id, err)
		}
		return render(cmd.OutOrStdout(), c, func() {
			success(cmd.OutOrStdout(), "Updated comment #%d", c.ID)
		})
	},
}

var commentRemoveCmd = &cobra.Command{
	Use:     "rm [comment-id]",
	Aliases: []string{"delete"},
	Short:   "Delete a comment",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser()
		if err != nil {
			return err
		}
		id, err := parseID(args[0], "comment")
		if err != nil {
			return err
		}
		if err := a.api.DeleteComment(cmd.Context(), id); err != nil {
			return fmt.Errorf("deleting comment %d: %w", id, err)
		}
		success(cmd.OutOrStdout(), "Deleted comment #%d", id)
		return nil
	},
}

func init() {
	commentEditCmd.Flags().String("defect", "", "Defect the comment belongs to (required)")
	commentEditCmd.MarkFlagRequired("defect")

	commentCmd.AddCommand(commentListCmd, commentAddCmd, commentEditCmd, commentRemoveCmd)
}
