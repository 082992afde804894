package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/holon-run/prgen/pkg/github"
)

var ownersCmd = &cobra.Command{
	Use:   "owners",
	Short: "List your account and the organizations you belong to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := current.session()
		if err != nil {
			return err
		}
		owners, err := session.LoadOwners(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "LOGIN\tKIND")
		for _, o := range owners {
			fmt.Fprintf(w, "%s\t%s\n", o.Login, o.Kind)
		}
		return w.Flush()
	},
}

var reposCmd = &cobra.Command{
	Use:   "repos [owner]",
	Short: "List repositories of an owner, most recently updated first",
	Long: `List repositories of an owner, most recently updated first.

Without an argument the repositories you own are listed. Organization
repositories include every repository visible to you.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := current.session()
		if err != nil {
			return err
		}
		owners, err := session.LoadOwners(cmd.Context())
		if err != nil {
			return err
		}

		owner, err := pickOwner(owners, args)
		if err != nil {
			return err
		}
		repos, err := session.LoadRepositories(cmd.Context(), owner)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "REPOSITORY\tDEFAULT\tVISIBILITY\tUPDATED")
		for _, r := range repos {
			visibility := "public"
			if r.Private {
				visibility = "private"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.FullName, r.DefaultBranch, visibility, r.UpdatedAt.Format("2006-01-02"))
		}
		return w.Flush()
	},
}

// pickOwner finds args[0] among owners, or the first user owner
func pickOwner(owners []github.Owner, args []string) (github.Owner, error) {
	if len(args) == 0 {
		for _, o := range owners {
			if o.Kind == github.OwnerUser {
				return o, nil
			}
		}
		return github.Owner{}, fmt.Errorf("no user account found")
	}
	for _, o := range owners {
		if strings.EqualFold(o.Login, args[0]) {
			return o, nil
		}
	}
	return github.Owner{}, fmt.Errorf("owner %q is neither you nor one of your organizations", args[0])
}

var branchesCmd = &cobra.Command{
	Use:   "branches <owner/repo>",
	Short: "List the branches of a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := github.ParseRepoRef(args[0])
		if err != nil {
			return err
		}
		host, err := current.githubClient()
		if err != nil {
			return err
		}
		session, err := current.session()
		if err != nil {
			return err
		}

		repo, err := lookupRepository(cmd.Context(), host, ref)
		if err != nil {
			return err
		}
		if err := session.SelectRepository(cmd.Context(), *repo); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, b := range session.Snapshot().Branches {
			marker := "  "
			if b == repo.DefaultBranch {
				marker = "* "
			}
			fmt.Fprintln(out, marker+b)
		}
		return nil
	},
}

func lookupRepository(ctx context.Context, host *github.Client, ref *github.RepoRef) (*github.Repository, error) {
	repo, err := host.GetRepository(ctx, ref.Owner, ref.Repo)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s/%s: %w", ref.Owner, ref.Repo, err)
	}
	return repo, nil
}

func init() {
	rootCmd.AddCommand(ownersCmd)
	rootCmd.AddCommand(reposCmd)
	rootCmd.AddCommand(branchesCmd)
}
