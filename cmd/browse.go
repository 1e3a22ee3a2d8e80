package cmd

import "github.com/spf13/cobra"

var browseCmd = &cobra.Command{
	Use:       "browse [feed|sites]",
	Short:     "Launch the TUI on the feed or sites tab",
	Long:      "Open hyperdesk straight on a tab, skipping the home screen. The feed tab is the default.",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"feed", "sites"},
	RunE: func(cmd *cobra.Command, args []string) error {
		tab := "feed"
		if len(args) == 1 {
			tab = args[0]
		}
		return runApp(tab)
	},
}
