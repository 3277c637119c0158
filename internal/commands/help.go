package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/balkashynov/defectctl/internal/config"
	"github.com/balkashynov/defectctl/internal/tui"
)

var helpCmd = &cobra.Command{
	Use:         "help [command]",
	Short:       "Show comprehensive help for defectctl",
	Long:        `Display detailed help for all defectctl commands, or cobra's help for one command.`,
	Annotations: map[string]string{offline: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			target, _, err := rootCmd.Find(args)
			if err != nil || target == rootCmd {
				return fmt.Errorf("unknown help topic %q", strings.Join(args, " "))
			}
			return target.Help()
		}
		showCustomHelp(cmd.OutOrStdout())
		return nil
	},
}

const banner = `
 ___  ___ ___ ___ ___ _____ ___ _____ _
|   \| __| __| __/ __|_   _/ __|_   _| |
| |) | _|| _|| _| (__  | || (__  | | | |__
|___/|___|_| |___\___| |_| \___| |_| |____|
`

type helpSection struct {
	title    string
	commands []helpCommand
}

type helpCommand struct {
	name        string
	description string
	examples    []string
	flags       []helpFlag
}

type helpFlag struct {
	name        string
	description string
}

var helpSections = []helpSection{
	{
		title: "SESSION",
		commands: []helpCommand{
			{name: "login", description: "Sign in (interactive form unless --password is given)", flags: []helpFlag{
				{"-u, --username", "Username"},
				{"-p, --password", "Password"},
			}},
			{name: "register", description: "Create an account; new accounts are observers"},
			{name: "whoami", description: "Show the signed in user"},
			{name: "logout", description: "Forget the stored session"},
		},
	},
	{
		title: "PROJECTS",
		commands: []helpCommand{
			{name: "project ls", description: "List projects"},
			{name: "project show <id>", description: "Show a project"},
			{name: "project add <title>", description: "Create a project owned by you", flags: []helpFlag{
				{"-d, --description", "Project description"},
			}},
			{name: "project edit <id>", description: "Change title or description"},
			{name: "project rm <id>", description: "Delete a project"},
		},
	},
	{
		title: "DEFECTS",
		commands: []helpCommand{
			{name: "defect ls", description: "List defects", flags: []helpFlag{
				{"-p, --project", "Filter by project id"},
				{"-s, --status", "new|in-progress|in-review|closed|cancelled"},
				{"--priority", "low|medium|high|critical"},
				{"--mine", "Only defects assigned to you"},
				{"--created-from/--created-to", "Creation date window"},
				{"--due-from/--due-to", "Due date window"},
			}},
			{name: "defect search <query>", description: "Search title and description on the server"},
			{name: "defect show <ref>", description: "Show a defect with its comments"},
			{name: "defect add <text>", description: "File a defect with quick-add syntax", examples: []string{
				`defectctl defect add "Crash on save +critical @12 due:3days"`,
				`defectctl defect add -i`,
			}, flags: []helpFlag{
				{"@12", "Project id"},
				{"+priority", "low/medium/high/critical or 1-4"},
				{"assign:7", "Assignee user id"},
				{"due:3days", "dd/mm/yyyy, yyyy-mm-dd, today, tomorrow, X days/hours/weeks"},
			}},
			{name: "defect edit <ref>", description: "Change fields; only passed flags are sent"},
			{name: "defect close|reopen <ref>", description: "Shortcut status changes"},
			{name: "defect rm <ref>", description: "Delete a defect"},
			{name: "browse", description: "Full screen defect browser"},
		},
	},
	{
		title: "DISCUSSION AND FILES",
		commands: []helpCommand{
			{name: "comment ls <ref>", description: "List comments on a defect"},
			{name: "comment add <ref> <text>", description: "Comment on a defect"},
			{name: "comment edit <id> <text> --defect <ref>", description: "Rewrite a comment"},
			{name: "comment rm <id>", description: "Delete a comment"},
			{name: "attachment ls <ref>", description: "List attached files"},
			{name: "attachment upload <ref> <file>", description: "Attach a file"},
			{name: "attachment download <ref> <id>", description: "Save an attached file (-o - for stdout)"},
			{name: "attachment rm <ref> <id>", description: "Delete an attached file"},
		},
	},
	{
		title: "ADMINISTRATION",
		commands: []helpCommand{
			{name: "user ls", description: "List users (managers)"},
			{name: "user role <id> <role>", description: "Change a user's role (managers)"},
			{name: "report export", description: "Export defects as csv or xlsx (managers, observers)", examples: []string{
				"defectctl report export --format xlsx --status new -o new.xlsx",
			}},
			{name: "report summary|status|priority|performance", description: "Analytics, optionally --from/--to"},
			{name: "report trend", description: "Defects filed per day (--days, default 30)"},
		},
	},
}

func showCustomHelp(w io.Writer) {
	accent := lipgloss.NewStyle().Foreground(lipgloss.Color(tui.ColorAccentMain))
	title := lipgloss.NewStyle().Foreground(lipgloss.Color(tui.ColorAccentBright)).Bold(true)
	name := lipgloss.NewStyle().Foreground(lipgloss.Color(tui.ColorPrimaryText)).Width(44)
	flag := lipgloss.NewStyle().Foreground(lipgloss.Color(tui.ColorSecondaryText)).Width(30)
	example := lipgloss.NewStyle().Foreground(lipgloss.Color(tui.ColorHelpText))

	fmt.Fprintln(w, accent.Render(banner))
	fmt.Fprintln(w, "defectctl - terminal client for the defect tracker")
	fmt.Fprintln(w)

	for _, section := range helpSections {
		fmt.Fprintln(w, title.Render(section.title+":"))
		fmt.Fprintln(w)
		for _, c := range section.commands {
			fmt.Fprintf(w, "  %s%s\n", name.Render(c.name), c.description)
			for _, f := range c.flags {
				fmt.Fprintf(w, "    %s%s\n", flag.Render(f.name), f.description)
			}
			for _, e := range c.examples {
				fmt.Fprintf(w, "    %s\n", example.Render(e))
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, title.Render("GLOBAL FLAGS:"))
	fmt.Fprintln(w)
	for _, f := range []helpFlag{
		{"--api-url", "Backend base URL (DEFECTCTL_API_URL, default " + config.DefaultAPIURL + ")"},
		{"--data-dir", "Session storage directory (DEFECTCTL_DATA_DIR, default ~/.defectctl)"},
		{"--log-level", "debug|info|warn|error (DEFECTCTL_LOG_LEVEL)"},
		{"--json", "Print results as JSON"},
	} {
		fmt.Fprintf(w, "  %s%s\n", flag.Render(f.name), f.description)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, example.Render("Run 'defectctl help <command>' for every flag of one command."))
}
