package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/holon-run/prgen/pkg/git"
	"github.com/holon-run/prgen/pkg/github"
	"github.com/holon-run/prgen/pkg/log"
	"github.com/holon-run/prgen/pkg/workflow"
)

// targetFlags select a repository and branch pair
type targetFlags struct {
	repo string
	base string
	head string
	link string
}

func (f *targetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.repo, "repo", "R", "", "Repository: owner/repo, owner/repo:head, a repository URL, or a bare name under your login")
	cmd.Flags().StringVarP(&f.base, "base", "B", "", "Base branch")
	cmd.Flags().StringVarP(&f.head, "head", "H", "", "Head branch")
	cmd.Flags().StringVar(&f.link, "link", "", "Resume link carrying repository_name, base_branch and head_branch")
}

// params merges --link with the explicit flags, flags winning
func (f *targetFlags) params(ctx context.Context) (workflow.ResumeParams, error) {
	var p workflow.ResumeParams
	if f.link != "" {
		parsed, err := workflow.ParseResumeLink(f.link)
		if err != nil {
			return p, err
		}
		p = parsed
	}

	if f.repo != "" {
		repo, head := splitRepoFlag(f.repo)
		p.Repository = repo
		if head != "" {
			p.Head = head
		}
	}
	if f.base != "" {
		p.Base = f.base
	}
	if f.head != "" {
		p.Head = f.head
	}
	if p.Repository == "" || p.Head == "" {
		fillFromCheckout(ctx, &p)
	}

	var missing []string
	if p.Repository == "" {
		missing = append(missing, "--repo")
	}
	if p.Base == "" {
		missing = append(missing, "--base")
	}
	if p.Head == "" {
		missing = append(missing, "--head")
	}
	if len(missing) > 0 {
		return p, fmt.Errorf("missing %s (or pass --link, or run inside a checkout)", strings.Join(missing, ", "))
	}
	return p, nil
}

// fillFromCheckout defaults the repository and head to the local checkout
func fillFromCheckout(ctx context.Context, p *workflow.ResumeParams) {
	wd, err := os.Getwd()
	if err != nil {
		return
	}
	checkout, err := git.DetectCheckout(ctx, wd)
	if err != nil {
		log.Debug("no local checkout", "error", err)
		return
	}
	if p.Repository == "" {
		repo, err := checkout.Repository()
		if err != nil {
			log.Debug("checkout repository unknown", "error", err)
			return
		}
		p.Repository = repo
		log.Debug("repository from checkout", "repository", repo)
	}
	if p.Head == "" && checkout.Branch != "" {
		p.Head = checkout.Branch
		log.Debug("head from checkout", "head", checkout.Branch)
	}
}

// splitRepoFlag accepts any repository reference form; bare names pass through
func splitRepoFlag(value string) (repo, head string) {
	ref, err := github.ParseRepoRef(value)
	if err != nil {
		return strings.TrimSpace(value), ""
	}
	return ref.Owner + "/" + ref.Repo, ref.Branch
}
