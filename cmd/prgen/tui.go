package main

import (
	"github.com/spf13/cobra"

	"github.com/holon-run/prgen/pkg/tui"
)

var tuiTarget targetFlags

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Pick a repository and branches interactively and open a pull request",
	Long: `Pick a repository and branches interactively and open a pull request.

With --repo, --base and --head (or --link) the TUI starts at the commit
list for that pair instead of the owner list.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := current.session()
		if err != nil {
			return err
		}

		opts := []tui.Option{tui.WithLinkBase(current.linkBase())}
		if tuiTarget.repo != "" || tuiTarget.link != "" {
			params, err := tuiTarget.params(cmd.Context())
			if err != nil {
				return err
			}
			opts = append(opts, tui.WithResume(params))
		}
		return tui.Run(session, opts...)
	},
}

func init() {
	tuiTarget.register(tuiCmd)
	rootCmd.AddCommand(tuiCmd)
}
