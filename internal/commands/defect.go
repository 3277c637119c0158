package commands

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/balkashynov/defectctl/internal/models"
	"github.com/balkashynov/defectctl/internal/parser"
	"github.com/balkashynov/defectctl/internal/session"
	"github.com/balkashynov/defectctl/internal/tui"
)

var defectCmd = &cobra.Command{
	Use:     "defect",
	Aliases: []string{"defects", "d"},
	Short:   "File, list and triage defects",
}

var defectListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List defects",
	Long:    "List defects with optional filters for project, status, priority, people and date ranges",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser()
		if err != nil {
			return err
		}
		filter, err := filterFromFlags(cmd)
		if err != nil {
			return err
		}
		return listDefects(cmd, a, filter)
	},
}

var defectSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search defects by title and description",
	Long: `Search defects on the server. Takes the same filters as 'defect ls'.

Example:
  defectctl defect search "login crash" --status new`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser()
		if err != nil {
			return err
		}
		filter, err := filterFromFlags(cmd)
		if err != nil {
			return err
		}
		filter.SearchQuery = strings.Join(args, " ")
		return listDefects(cmd, a, filter)
	},
}

func listDefects(cmd *cobra.Command, a *app, filter models.DefectFilter) error {
	defects, err := a.api.Defects(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("listing defects: %w", err)
	}

	return render(cmd.OutOrStdout(), defects, func() {
		if len(defects) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No defects found. Use 'defectctl defect add \"title @project\"' to file one.")
			return
		}
		printTable(cmd.OutOrStdout(),
			[]string{"REF", "STATUS", "PRIORITY", "TITLE", "PROJECT", "ASSIGNEE", "DUE"},
			defectRows(defects))
	})
}

// filterFromFlags builds a listing filter from the flags shared by ls, search and browse.
func filterFromFlags(cmd *cobra.Command) (models.DefectFilter, error) {
	var f models.DefectFilter
	flags := cmd.Flags()

	if v, _ := flags.GetString("project"); v != "" {
		id, err := parseID(v, "project")
		if err != nil {
			return f, err
		}
		f.ProjectID = id
	}
	if v, _ := flags.GetString("status"); v != "" {
		status, err := parser.ParseStatus(v)
		if err != nil {
			return f, err
		}
		f.Status = status
	}
	if v, _ := flags.GetString("priority"); v != "" {
		priority, err := parser.ParsePriority(v)
		if err != nil {
			return f, err
		}
		f.Priority = priority
	}
	f.AssigneeID, _ = flags.GetInt("assignee")
	f.ReporterID, _ = flags.GetInt("reporter")
	f.Skip, _ = flags.GetInt("skip")
	f.Limit, _ = flags.GetInt("limit")

	if mine, _ := flags.GetBool("mine"); mine {
		if user := current.session.Snapshot().User; user != nil {
			f.AssigneeID = user.ID
		}
	}

	createdFrom, _ := flags.GetString("created-from")
	createdTo, _ := flags.GetString("created-to")
	created, err := parser.ParseDateRange(createdFrom, createdTo)
	if err != nil {
		return f, fmt.Errorf("created %w", err)
	}
	f.CreatedStartDate, f.CreatedEndDate = created.Start, created.End

	dueFrom, _ := flags.GetString("due-from")
	dueTo, _ := flags.GetString("due-to")
	due, err := parser.ParseDateRange(dueFrom, dueTo)
	if err != nil {
		return f, fmt.Errorf("due %w", err)
	}
	f.DueStartDate, f.DueEndDate = due.Start, due.End
	return f, nil
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("project", "p", "", "Filter by project id")
	cmd.Flags().StringP("status", "s", "", "Filter by status: new, in-progress, in-review, closed, cancelled")
	cmd.Flags().String("priority", "", "Filter by priority: low, medium, high, critical")
	cmd.Flags().Int("assignee", 0, "Filter by assignee user id")
	cmd.Flags().Int("reporter", 0, "Filter by reporter user id")
	cmd.Flags().Bool("mine", false, "Only defects assigned to you")
	cmd.Flags().String("created-from", "", "Created on or after (dd/mm/yyyy or yyyy-mm-dd)")
	cmd.Flags().String("created-to", "", "Created on or before")
	cmd.Flags().String("due-from", "", "Due on or after")
	cmd.Flags().String("due-to", "", "Due on or before")
	cmd.Flags().Int("skip", 0, "Skip this many results")
	cmd.Flags().IntP("limit", "l", 0, "Limit number of results")
}

var defectShowCmd = &cobra.Command{
	Use:   "show [defect-ref]",
	Short: "Show a defect with its comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser()
		if err != nil {
			return err
		}
		id, err := parseID(args[0], "defect")
		if err != nil {
			return err
		}
		d, err := a.api.Defect(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("fetching defect %d: %w", id, err)
		}
		comments, err := a.api.Comments(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("fetching comments for defect %d: %w", id, err)
		}

		view := struct {
			*models.Defect
			Comments []models.Comment `json:"comments"`
		}{d, comments}
		return render(cmd.OutOrStdout(), view, func() {
			printDefect(cmd.OutOrStdout(), d, comments)
		})
	},
}

func printDefect(w io.Writer, d *models.Defect, comments []models.Comment) {
	row := defectRows([]models.Defect{*d})[0]
	printFields(w,
		"Ref", row[0],
		"Title", d.Title,
		"Status", row[1],
		"Priority", row[2],
		"Project", strconv.Itoa(d.ProjectID),
		"Reporter", strconv.Itoa(d.ReporterID),
		"Assignee", row[5],
		"Due", d.DueDate.Display(),
		"Created", d.CreatedAt.Display(),
		"Updated", d.UpdatedAt.Display(),
	)
	if desc := deref(d.Description); desc != "" {
		fmt.Fprintf(w, "\n%s\n", desc)
	}
	if len(comments) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", headerStyle.Render(fmt.Sprintf("Comments (%d)", len(comments))))
	for _, c := range comments {
		fmt.Fprintf(w, "%s %s\n", hintStyle.Render(fmt.Sprintf("#%d user %d, %s:", c.ID, c.AuthorID, c.CreatedAt.Display())), c.Content)
	}
}

var defectAddCmd = &cobra.Command{
	Use:   "add [defect description]",
	Short: "File a new defect",
	Long: `File a new defect.

Modes:
  Interactive: defectctl defect add -i (or just 'defectctl defect add' with no arguments)
  Quick: defectctl defect add "Crash on save @12" (with optional flags)

Quick-add syntax:
  @12         - Project id (required)
  +priority   - Priority (low/medium/high/critical or 1-4)
  assign:7    - Assignee user id
  due:3days   - Due date (dd/mm/yyyy, yyyy-mm-dd, today, tomorrow, X days, X hours, X weeks)

Example:
  defectctl defect add "Crash on save +critical @12 due:3days"`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser()
		if err != nil {
			return err
		}
		parsed := parser.ParseTitle(strings.Join(args, " "))
		if err := applyAddFlags(cmd, &parsed); err != nil {
			return err
		}
		description := optionalString(cmd, "description")

		interactive, _ := cmd.Flags().GetBool("interactive")
		switch {
		case len(args) == 0 || interactive:
		case len(parsed.Errors) > 0:
			fmt.Fprintf(cmd.ErrOrStderr(), "Found issues with parsing: %s\n", strings.Join(parsed.Errors, ", "))
			fmt.Fprintln(cmd.ErrOrStderr(), "Opening interactive mode for confirmation...")
			interactive = true
		case parsed.ProjectID == 0:
			fmt.Fprintln(cmd.ErrOrStderr(), "No project given, opening interactive mode...")
			interactive = true
		case parsed.Title == "":
			return errors.New("defect title is empty")
		}

		var d *models.Defect
		if len(args) == 0 || interactive {
			d, err = tui.RunDefectFormTUI(cmd.Context(), a.api, parsed)
			if errors.Is(err, tui.ErrCancelled) {
				return nil
			}
		} else {
			in := parsed.Input()
			in.Description = description
			d, err = a.api.CreateDefect(cmd.Context(), in)
		}
		if err != nil {
			return fmt.Errorf("filing defect: %w", err)
		}

		if err := render(cmd.OutOrStdout(), d, func() {
			success(cmd.OutOrStdout(), "Filed %s: %s", parser.DefectRef(d.ID), d.Title)
			printFields(cmd.OutOrStdout(),
				"Project", strconv.Itoa(d.ProjectID),
				"Priority", d.Priority.Name(),
				"Status", d.Status.Name(),
			)
		}); err != nil {
			return err
		}
		a.nav.Navigate(session.DefectRoute(d.ID))
		return nil
	},
}

// applyAddFlags lets explicit flags win over quick-add syntax.
func applyAddFlags(cmd *cobra.Command, parsed *parser.ParsedDefect) error {
	flags := cmd.Flags()
	if v, _ := flags.GetString("project"); v != "" {
		id, err := parseID(v, "project")
		if err != nil {
			return err
		}
		parsed.ProjectID = id
	}
	if v, _ := flags.GetString("priority"); v != "" {
		priority, err := parser.ParsePriority(v)
		if err != nil {
			return err
		}
		parsed.Priority = priority
	}
	if v, _ := flags.GetString("due"); v != "" {
		due, err := parser.ParseDueDate(v)
		if err != nil {
			return fmt.Errorf("due date: %w", err)
		}
		parsed.DueDate = due
	}
	if v, _ := flags.GetInt("assignee"); v > 0 {
		parsed.AssigneeID = v
	}
	return nil
}

var defectEditCmd = &cobra.Command{
	Use:   "edit [defect-ref]",
	Short: "Change fields of a defect",
	Long: `Change fields of a defect. Only the flags you pass are sent.

Example:
  defectctl defect edit DEF-12 --status in-progress --assignee 4`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser()
		if err != nil {
			return err
		}
		id, err := parseID(args[0], "defect")
		if err != nil {
			return err
		}
		update, err := updateFromFlags(cmd)
		if err != nil {
			return err
		}
		if update.Empty() {
			return errors.New("nothing to change: pass at least one of --title, --description, --priority, --status, --due, --assignee")
		}
		return updateDefect(cmd, a, id, update, "Updated")
	},
}

func updateFromFlags(cmd *cobra.Command) (models.DefectUpdate, error) {
	var u models.DefectUpdate
	flags := cmd.Flags()

	u.Title = optionalString(cmd, "title")
	u.Description = optionalString(cmd, "description")
	if v, _ := flags.GetString("priority"); v != "" {
		priority, err := parser.ParsePriority(v)
		if err != nil {
			return u, err
		}
		u.Priority = &priority
	}
	if v, _ := flags.GetString("status"); v != "" {
		status, err := parser.ParseStatus(v)
		if err != nil {
			return u, err
		}
		u.Status = &status
	}
	if v, _ := flags.GetString("due"); v != "" {
		due, err := parser.ParseDueDate(v)
		if err != nil {
			return u, fmt.Errorf("due date: %w", err)
		}
		u.DueDate = models.NewTime(*due)
	}
	if flags.Changed("assignee") {
		v, _ := flags.GetInt("assignee")
		u.AssigneeID = &v
	}
	return u, nil
}

func updateDefect(cmd *cobra.Command, a *app, id int, update models.DefectUpdate, verb string) error {
	d, err := a.api.UpdateDefect(cmd.Context(), id, update)
	if err != nil {
		return fmt.Errorf("updating defect %d: %w", id, err)
	}
	if err := render(cmd.OutOrStdout(), d, func() {
		success(cmd.OutOrStdout(), "%s %s: %s", verb, parser.DefectRef(d.ID), d.Title)
		fmt.Fprintf(cmd.OutOrStdout(), "Status: %s\n", d.Status.Name())
	}); err != nil {
		return err
	}
	a.nav.Navigate(session.DefectRoute(d.ID))
	return nil
}

var defectCloseCmd = &cobra.Command{
	Use:   "close [defect-ref]",
	Short: "Mark a defect as closed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStatus(cmd, args[0], models.StatusClosed, "Closed")
	},
}

var defectReopenCmd = &cobra.Command{
	Use:   "reopen [defect-ref]",
	Short: "Move a closed or cancelled defect back to new",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStatus(cmd, args[0], models.StatusNew, "Reopened")
	},
}

func setStatus(cmd *cobra.Command, ref string, status models.Status, verb string) error {
	a, err := requireUser()
	if err != nil {
		return err
	}
	id, err := parseID(ref, "defect")
	if err != nil {
		return err
	}
	return updateDefect(cmd, a, id, models.DefectUpdate{Status: &status}, verb)
}

var defectRemoveCmd = &cobra.Command{
	Use:     "rm [defect-ref]",
	Aliases: []string{"delete"},
	Short:   "Delete a defect",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser()
		if err != nil {
			return err
		}
		id, err := parseID(args[0], "defect")
		if err != nil {
			return err
		}
		if err := a.api.DeleteDefect(cmd.Context(), id); err != nil {
			return fmt.Errorf("deleting defect %d: %w", id, err)
		}
		success(cmd.OutOrStdout(), "Deleted %s", parser.DefectRef(id))
		return nil
	},
}

func init() {
	addFilterFlags(defectListCmd)
	addFilterFlags(defectSearchCmd)

	defectAddCmd.Flags().BoolP("interactive", "i", false, "Interactive mode with TUI")
	defectAddCmd.Flags().StringP("project", "p", "", "Project id")
	defectAddCmd.Flags().String("priority", "", "Priority: low, medium, high, critical, or 1-4")
	defectAddCmd.Flags().String("due", "", "Due date: dd/mm/yyyy, X days, X hours, X weeks")
	defectAddCmd.Flags().Int("assignee", 0, "Assignee user id")
	defectAddCmd.Flags().StringP("description", "d", "", "Longer description")

	defectEditCmd.Flags().StringP("title", "t", "", "New title")
	defectEditCmd.Flags().StringP("description", "d", "", "New description")
	defectEditCmd.Flags().String("priority", "", "Priority: low, medium, high, critical")
	defectEditCmd.Flags().StringP("status", "s", "", "Status: new, in-progress, in-review, closed, cancelled")
	defectEditCmd.Flags().String("due", "", "Due date")
	defectEditCmd.Flags().Int("assignee", 0, "Assignee user id")

	defectCmd.AddCommand(defectListCmd, defectSearchCmd, defectShowCmd, defectAddCmd,
		defectEditCmd, defectCloseCmd, defectReopenCmd, defectRemoveCmd)
}
