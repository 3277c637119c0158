package commands

import (
	"github.com/spf13/cobra"

	"github.com/balkashynov/defectctl/internal/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse defects interactively",
	Long: `Open a full screen defect browser.

Quick actions:
  ↑/↓ or j/k    Navigate defects (details and comments follow the selection)
  ←/→ or h/l    Previous/next page
  /             Search on the server
  r             Reload
  esc/q         Quit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser()
		if err != nil {
			return err
		}
		filter, err := filterFromFlags(cmd)
		if err != nil {
			return err
		}
		return tui.RunBrowserTUI(cmd.Context(), a.api, filter)
	},
}

func init() {
	addFilterFlags(browseCmd)
}
