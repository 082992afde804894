package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/holon-run/prgen/pkg/preflight"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the GitHub token, API access and chat backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := current.resolved()
		if err != nil {
			return err
		}

		checks := []preflight.Check{
			&preflight.ConfigCheck{Path: current.project.Path()},
			&preflight.GitHubTokenCheck{Token: settings.GitHubToken, Source: string(settings.Sources["github.token"])},
		}
		if host, err := current.githubClient(); err == nil {
			checks = append(checks, &preflight.GitHubAuthCheck{Client: host})
		}
		checks = append(checks, &preflight.ChatBackendCheck{
			URL:    settings.AIAPIURL,
			APIKey: settings.AIAPIKey,
			Model:  settings.AIModel,
		})

		results, runErr := preflight.NewChecker(checks...).Run(cmd.Context())

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, r := range results {
			fmt.Fprintf(w, "[%s]\t%s\t%s\n", r.Level, r.Name, r.Message)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
