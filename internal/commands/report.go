package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/balkashynov/defectctl/internal/models"
	"github.com/balkashynov/defectctl/internal/parser"
	"github.com/balkashynov/defectctl/internal/session"
	"github.com/balkashynov/defectctl/internal/tui"
)

var reportCmd = &cobra.Command{
	Use:     "report",
	Aliases: []string{"reports"},
	Short:   "Export defects and view analytics (managers and observers)",
}

var reportExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export defects as CSV or Excel",
	Long: `Export defects matching the filters to a file.

Example:
  defectctl report export --format xlsx --project 3 -o defects.xlsx`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser(session.ViewReports...)
		if err != nil {
			return err
		}
		raw, _ := cmd.Flags().GetString("format")
		format, err := parser.ParseExportFormat(raw)
		if err != nil {
			return err
		}
		filter, err := filterFromFlags(cmd)
		if err != nil {
			return err
		}

		blob, err := a.api.ExportDefects(cmd.Context(), format, filter)
		if err != nil {
			return fmt.Errorf("exporting defects: %w", err)
		}
		output, _ := cmd.Flags().GetString("output")
		if output == "" && blob.Filename != "" {
			output = filepath.Base(blob.Filename)
		}
		if output == "" {
			output = "defects." + string(format)
		}
		return writeBlob(cmd, blob.Data, output)
	},
}

// rangeFromFlags reads --from/--to.
func rangeFromFlags(cmd *cobra.Command) (models.DateRange, error) {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	return parser.ParseDateRange(from, to)
}

var reportSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show headline defect metrics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser(session.ViewReports...)
		if err != nil {
			return err
		}
		r, err := rangeFromFlags(cmd)
		if err != nil {
			return err
		}
		summary, err := a.api.AnalyticsSummary(cmd.Context(), r)
		if err != nil {
			return fmt.Errorf("fetching summary: %w", err)
		}

		return render(cmd.OutOrStdout(), summary, func() {
			keys := make([]string, 0, len(summary))
			for k := range summary {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			pairs := make([]string, 0, 2*len(keys))
			for _, k := range keys {
				pairs = append(pairs, strings.ReplaceAll(k, "_", " "), fmt.Sprint(summary[k]))
			}
			printFields(cmd.OutOrStdout(), pairs...)
		})
	},
}

var reportStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Count defects per status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser(session.ViewReports...)
		if err != nil {
			return err
		}
		r, err := rangeFromFlags(cmd)
		if err != nil {
			return err
		}
		dist, err := a.api.StatusDistribution(cmd.Context(), r)
		if err != nil {
			return fmt.Errorf("fetching status distribution: %w", err)
		}

		return render(cmd.OutOrStdout(), dist, func() {
			labels := make([]string, 0, len(models.Statuses))
			for _, s := range models.Statuses {
				labels = append(labels, string(s))
			}
			printDistribution(cmd.OutOrStdout(), dist, labels, func(label string) string {
				return models.Status(label).Name()
			})
		})
	},
}

var reportPriorityCmd = &cobra.Command{
	Use:   "priority",
	Short: "Count defects per priority",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser(session.ViewReports...)
		if err != nil {
			return err
		}
		r, err := rangeFromFlags(cmd)
		if err != nil {
			return err
		}
		dist, err := a.api.PriorityDistribution(cmd.Context(), r)
		if err != nil {
			return fmt.Errorf("fetching priority distribution: %w", err)
		}

		return render(cmd.OutOrStdout(), dist, func() {
			labels := make([]string, 0, len(models.Priorities))
			for _, p := range models.Priorities {
				labels = append(labels, string(p))
			}
			printDistribution(cmd.OutOrStdout(), dist, labels, func(label string) string {
				return models.Priority(label).Name()
			})
		})
	},
}

// printDistribution draws one bar per label, known labels first in their natural order.
func printDistribution(w io.Writer, dist models.Distribution, order []string, name func(string) string) {
	labels := append([]string(nil), order...)
	var extra []string
	for label := range dist {
		known := false
		for _, o := range order {
			if o == label {
				known = true
				break
			}
		}
		if !known {
			extra = append(extra, label)
		}
	}
	sort.Strings(extra)
	labels = append(labels, extra...)

	total := 0
	for _, n := range dist {
		total += n
	}
	bar := lipgloss.NewStyle().Foreground(lipgloss.Color(tui.ColorAccentMain))
	rows := make([][]string, 0, len(labels))
	for _, label := range labels {
		n := dist[label]
		width := 0
		if total > 0 {
			width = n * 30 / total
		}
		rows = append(rows, []string{name(label), strconv.Itoa(n), bar.Render(strings.Repeat("█", width))})
	}
	printTable(w, []string{"", "COUNT", ""}, rows)
}

var reportTrendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Show how many defects were filed per day",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser(session.ViewReports...)
		if err != nil {
			return err
		}
		days, _ := cmd.Flags().GetInt("days")
		points, err := a.api.CreationTrend(cmd.Context(), days)
		if err != nil {
			return fmt.Errorf("fetching creation trend: %w", err)
		}

		return render(cmd.OutOrStdout(), points, func() {
			if len(points) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No defects filed in this window.")
				return
			}
			peak := 0
			for _, p := range points {
				peak = max(peak, p.Count)
			}
			bar := lipgloss.NewStyle().Foreground(lipgloss.Color(tui.ColorAccentBright))
			rows := make([][]string, 0, len(points))
			for _, p := range points {
				width := 0
				if peak > 0 {
					width = p.Count * 30 / peak
				}
				rows = append(rows, []string{p.Date, strconv.Itoa(p.Count), bar.Render(strings.Repeat("█", width))})
			}
			printTable(cmd.OutOrStdout(), []string{"DATE", "FILED", ""}, rows)
		})
	},
}

var reportPerformanceCmd = &cobra.Command{
	Use:   "performance",
	Short: "Compare projects by open and closed defects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser(session.ViewReports...)
		if err != nil {
			return err
		}
		r, err := rangeFromFlags(cmd)
		if err != nil {
			return err
		}
		stats, err := a.api.ProjectPerformance(cmd.Context(), r)
		if err != nil {
			return fmt.Errorf("fetching project performance: %w", err)
		}

		return render(cmd.OutOrStdout(), stats, func() {
			rows := make([][]string, 0, len(stats))
			for _, s := range stats {
				closedPct := "-"
				if s.TotalDefects > 0 {
					closedPct = fmt.Sprintf("%d%%", s.ClosedDefects*100/s.TotalDefects)
				}
				rows = append(rows, []string{
					strconv.Itoa(s.ProjectID),
					truncate(s.Title, 30),
					strconv.Itoa(s.TotalDefects),
					strconv.Itoa(s.OpenDefects),
					strconv.Itoa(s.ClosedDefects),
					closedPct,
				})
			}
			printTable(cmd.OutOrStdout(), []string{"ID", "PROJECT", "TOTAL", "OPEN", "CLOSED", "DONE"}, rows)
		})
	},
}

func init() {
	addFilterFlags(reportExportCmd)
	reportExportCmd.Flags().StringP("format", "f", "csv", "File format: csv or xlsx")
	reportExportCmd.Flags().StringP("output", "o", "", "Where to save the file (- for stdout)")

	for _, c := range []*cobra.Command{reportSummaryCmd, reportStatusCmd, reportPriorityCmd, reportPerformanceCmd} {
		c.Flags().String("from", "", "Start date (dd/mm/yyyy or yyyy-mm-dd)")
		c.Flags().String("to", "", "End date")
	}
	reportTrendCmd.Flags().Int("days", 30, "Number of days to look back")

	reportCmd.AddCommand(reportExportCmd, reportSummaryCmd, reportStatusCmd, reportPriorityCmd,
		reportTrendCmd, reportPerformanceCmd)
}
