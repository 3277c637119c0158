package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/balkashynov/defectctl/internal/models"
	"github.com/balkashynov/defectctl/internal/parser"
	"github.com/balkashynov/defectctl/internal/tui"
)

var (
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(tui.ColorHelpText))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(tui.ColorSuccess)).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(tui.ColorSecondaryText)).Width(12)
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(tui.ColorAccentMain)).Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

// printJSON writes v indented, for --json.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// render prints v as JSON when --json is set and calls text otherwise.
func render(w io.Writer, v any, text func()) error {
	if jsonFlag {
		return printJSON(w, v)
	}
	text()
	return nil
}

// printTable draws rows under headers with the theme's border.
func printTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(tui.ColorBorder))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.Render())
}

// printFields prints label/value pairs, one per line.
func printFields(w io.Writer, pairs ...string) {
	for i := 0; i+1 < len(pairs); i += 2 {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(pairs[i]+":"), pairs[i+1])
	}
}

func success(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, successStyle.Render(fmt.Sprintf(format, args...)))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optionalID(id *int) string {
	if id == nil {
		return "-"
	}
	return strconv.Itoa(*id)
}

func defectRows(defects []models.Defect) [][]string {
	rows := make([][]string, 0, len(defects))
	for _, d := range defects {
		var due *time.Time
		if d.DueDate != nil {
			t := d.DueDate.Time
			due = &t
		}
		rows = append(rows, []string{
			parser.DefectRef(d.ID),
			lipgloss.NewStyle().Foreground(tui.StatusColor(d.Status)).Render(d.Status.Name()),
			lipgloss.NewStyle().Foreground(tui.PriorityColor(d.Priority)).Render(d.Priority.Name()),
			truncate(d.Title, 40),
			strconv.Itoa(d.ProjectID),
			optionalID(d.AssigneeID),
			parser.FormatDueDate(due, d.Status),
		})
	}
	return rows
}

func roleBadge(r models.Role) string {
	return lipgloss.NewStyle().Foreground(tui.RoleColor(r)).Render(string(r))
}

// parseID reads a positional id argument. Defect refs like DEF-12 are accepted too.
func parseID(arg, what string) (int, error) {
	id, err := parser.ParseRef(arg)
	if err != nil {
		return 0, fmt.Errorf("%s id: %w", what, err)
	}
	return id, nil
}

// optionalString returns a pointer to the flag value when the flag was set.
func optionalString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}
