package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/holon-run/prgen/pkg/log"
	"github.com/holon-run/prgen/pkg/server"
	"github.com/holon-run/prgen/pkg/workflow"
)

var (
	serveAddr        string
	serveLinkBase    string
	serveIdleTimeout time.Duration
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve workflow sessions over a JSON HTTP API",
	Long: `Serve workflow sessions over a JSON HTTP API.

Each POST /sessions creates an independent session. Requests that arrive
while a session has an operation in flight are rejected with 409. Sessions
unused for --idle-timeout are dropped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := current.resolved()
		if err != nil {
			return err
		}
		host, err := current.githubClient()
		if err != nil {
			return err
		}
		gen, err := current.generator()
		if err != nil {
			return err
		}

		addr := serveAddr
		if addr == "" {
			addr = settings.ServerAddr
		}
		linkBase := serveLinkBase
		if linkBase == "" {
			linkBase = "http://" + addr + "/"
		}

		srv := server.New(func() *workflow.Session {
			return workflow.NewSession(host, gen)
		}, server.WithLinkBase(linkBase), server.WithIdleTimeout(serveIdleTimeout))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start(addr)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return <-errCh
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server.addr)")
	serveCmd.Flags().StringVar(&serveLinkBase, "link-base", "", "Base URL for resume links (default: http://<addr>/)")
	serveCmd.Flags().DurationVar(&serveIdleTimeout, "idle-timeout", server.DefaultIdleTimeout, "Drop sessions unused for this long (0 keeps them)")
	rootCmd.AddCommand(serveCmd)
}
