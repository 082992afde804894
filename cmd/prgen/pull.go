package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/holon-run/prgen/pkg/draft"
	"github.com/holon-run/prgen/pkg/workflow"
)

var (
	commitsTarget targetFlags
	draftTarget   targetFlags
	createTarget  targetFlags
	linkTarget    targetFlags

	draftJSON   bool
	createTitle string
	createBody  string
	createYes   bool
	linkBaseURL string
)

var errAborted = errors.New("aborted")

// resumeSession selects the target repository and branches and fetches
// the commits head adds over base
func resumeSession(cmd *cobra.Command, target *targetFlags) (*workflow.Session, error) {
	params, err := target.params(cmd.Context())
	if err != nil {
		return nil, err
	}
	session, err := current.session()
	if err != nil {
		return nil, err
	}
	if err := session.Resume(cmd.Context(), params); err != nil {
		return nil, err
	}
	return session, nil
}

var commitsCmd = &cobra.Command{
	Use:   "commits",
	Short: "List the commits head adds over base, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := resumeSession(cmd, &commitsTarget)
		if err != nil {
			return err
		}

		commits := session.Snapshot().Commits
		if len(commits) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No commits between base and head")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, c := range commits {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ShortSHA(), c.Author, c.CommittedAt.Format("2006-01-02"), c.Subject())
		}
		return w.Flush()
	},
}

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Generate a pull request title and description without submitting",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := resumeSession(cmd, &draftTarget)
		if err != nil {
			return err
		}
		d, err := generate(session, cmd)
		if err != nil {
			return err
		}
		if draftJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(d)
		}
		printDraft(cmd.OutOrStdout(), d)
		return nil
	},
}

func generate(session *workflow.Session, cmd *cobra.Command) (draft.Draft, error) {
	if len(session.Snapshot().Commits) == 0 {
		return draft.Draft{}, fmt.Errorf("head has no commits over base; nothing to describe")
	}
	if err := session.GenerateDraft(cmd.Context()); err != nil {
		return draft.Draft{}, err
	}
	return *session.Snapshot().Draft, nil
}

func printDraft(w io.Writer, d draft.Draft) {
	fmt.Fprintln(w, d.Title)
	if d.Description != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, d.Description)
	}
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Generate a draft and open the pull request",
	Long: `Generate a draft and open the pull request.

--title and --body replace the generated values. Without --yes the draft
is shown and confirmation is read from stdin.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := resumeSession(cmd, &createTarget)
		if err != nil {
			return err
		}
		d, err := generate(session, cmd)
		if err != nil {
			return err
		}

		var title, body *string
		if cmd.Flags().Changed("title") {
			title = &createTitle
		}
		if cmd.Flags().Changed("body") {
			body = &createBody
		}
		if title != nil || body != nil {
			if err := session.EditDraft(title, body); err != nil {
				return err
			}
			d = *session.Snapshot().Draft
		}

		if !createYes {
			out := cmd.OutOrStdout()
			printDraft(out, d)
			fmt.Fprint(out, "\nOpen this pull request? [y/N] ")
			if !confirm(cmd.InOrStdin()) {
				return errAborted
			}
		}

		pr, err := session.Submit(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), pr.URL)
		return nil
	},
}

func confirm(r io.Reader) bool {
	line, _ := bufio.NewReader(r).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Print a link that resumes at a repository and branch pair",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := linkTarget.params(cmd.Context())
		if err != nil {
			return err
		}
		base := linkBaseURL
		if base == "" {
			base = current.linkBase()
		}
		link, err := workflow.BuildResumeLink(base, params)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), link)
		return nil
	},
}

func init() {
	commitsTarget.register(commitsCmd)
	draftTarget.register(draftCmd)
	createTarget.register(createCmd)
	linkTarget.register(linkCmd)

	draftCmd.Flags().BoolVar(&draftJSON, "json", false, "Print the draft as JSON")
	createCmd.Flags().StringVar(&createTitle, "title", "", "Use this title instead of the generated one")
	createCmd.Flags().StringVar(&createBody, "body", "", "Use this description instead of the generated one")
	createCmd.Flags().BoolVarP(&createYes, "yes", "y", false, "Open the pull request without confirmation")
	linkCmd.Flags().StringVar(&linkBaseURL, "base-url", "", "Base URL for the link (default: http://<server.addr>/)")

	rootCmd.AddCommand(commitsCmd)
	rootCmd.AddCommand(draftCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(linkCmd)
}
