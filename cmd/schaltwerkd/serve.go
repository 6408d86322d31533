package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/schaltwerk/schaltwerk/internal/events"
	"github.com/schaltwerk/schaltwerk/internal/logging"
	"github.com/schaltwerk/schaltwerk/internal/paths"
	"github.com/schaltwerk/schaltwerk/internal/project"
	"github.com/schaltwerk/schaltwerk/internal/store"
)

func newServeCmd() *cobra.Command {
	var repoFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Open a repository's Project Manager and block until interrupted",
		Long: `Opens the sessions database, switches the Project Manager to the given
(or discovered) repository, and subscribes to SessionsRefreshed until the
process receives an interrupt signal. Useful for exercising the core without
the desktop UI.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, repoFlag)
		},
	}

	cmd.Flags().StringVar(&repoFlag, "repo", "", "repository path (defaults to the enclosing git repository of the working directory)")

	return cmd
}

func runServe(cmd *cobra.Command, repoFlag string) error {
	ctx := cmd.Context()

	repoPath, err := resolveRepoPath(ctx, repoFlag)
	if err != nil {
		return err
	}

	dbPath, err := paths.SessionsDBPath()
	if err != nil {
		return fmt.Errorf("resolving sessions database path: %w", err)
	}

	st, err := store.Open(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("opening sessions database: %w", err)
	}
	defer st.Close()

	bus := events.New()
	unsubscribe := bus.Subscribe(events.SessionsRefreshed, func(payload any) {
		logging.Info(ctx, "sessions refreshed", "repository", repoPath)
	})
	defer unsubscribe()

	pm := project.New(st, bus)
	if _, err := pm.SwitchTo(ctx, repoPath); err != nil {
		return fmt.Errorf("switching to repository %q: %w", repoPath, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "schaltwerkd serving %s (ctrl-c to stop)\n", repoPath)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	return nil
}
