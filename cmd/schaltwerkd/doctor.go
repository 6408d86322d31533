package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/schaltwerk/schaltwerk/internal/paths"
	"github.com/schaltwerk/schaltwerk/internal/project"
	"github.com/schaltwerk/schaltwerk/internal/session"
	"github.com/schaltwerk/schaltwerk/internal/store"
)

// staleSession pairs a session with the reason doctor flagged it.
type staleSession struct {
	Name   string
	Reason string
}

func newDoctorCmd() *cobra.Command {
	var repoFlag string
	var forceFlag bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Find and fix sessions with missing worktrees",
		Long: `Scan the active repository's sessions for worktrees that no longer exist
on disk (removed externally, e.g. by "rm -rf" or a manual git worktree prune).

For each stale session, you can choose to:
  - Cancel: remove the session's DB record and any remaining branch
  - Skip: leave the session as-is for manual investigation

Use --force to cancel every stale session without prompting.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, repoFlag, forceFlag)
		},
	}

	cmd.Flags().StringVar(&repoFlag, "repo", "", "repository path (defaults to the enclosing git repository of the working directory)")
	cmd.Flags().BoolVarP(&forceFlag, "force", "f", false, "cancel all stale sessions without prompting")

	return cmd
}

func runDoctor(cmd *cobra.Command, repoFlag string, force bool) error {
	ctx := cmd.Context()

	repoPath, err := resolveRepoPath(ctx, repoFlag)
	if err != nil {
		return err
	}

	handle, closeFn, err := openHandle(ctx, repoPath)
	if err != nil {
		return err
	}
	defer closeFn()

	sessions, err := handle.Sessions.ListSessions(ctx, session.FilterAll, session.SortName)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	var stale []staleSession
	for _, s := range sessions {
		if s.SessionState == store.StateSpec {
			continue
		}
		if _, statErr := os.Stat(s.WorktreePath); os.IsNotExist(statErr) {
			stale = append(stale, staleSession{Name: s.Name, Reason: "worktree missing: " + s.WorktreePath})
		}
	}

	if len(stale) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No stale sessions found.")
		return nil
	}

	for _, s := range stale {
		fmt.Fprintf(cmd.OutOrStdout(), "Session %q: %s\n", s.Name, s.Reason)

		if force {
			if err := handle.Sessions.CancelSession(ctx, s.Name); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "  -> failed to cancel: %v\n", err)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "  -> cancelled\n")
			}
			continue
		}

		action, err := promptStaleAction(s)
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("prompting for action: %w", err)
		}

		switch action {
		case "cancel":
			if err := handle.Sessions.CancelSession(ctx, s.Name); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "  -> failed to cancel: %v\n", err)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "  -> cancelled\n")
			}
		case "skip":
			fmt.Fprintln(cmd.OutOrStdout(), "  -> skipped")
		}
	}

	return nil
}

func promptStaleAction(s staleSession) (string, error) {
	var action string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Fix session %q?", s.Name)).
				Options(
					huh.NewOption("Cancel (remove session record)", "cancel"),
					huh.NewOption("Skip (leave as-is)", "skip"),
				).
				Value(&action),
		),
	)

	if os.Getenv("ACCESSIBLE") != "" {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return "", err
	}
	return action, nil
}

func resolveRepoPath(ctx context.Context, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	return paths.DiscoverRepository(ctx)
}

// openHandle opens a process-local sessions database and wires a Project
// Manager around it, returning the active Handle for repoPath and a close
// func releasing the database connection.
func openHandle(ctx context.Context, repoPath string) (*project.Handle, func(), error) {
	dbPath, err := paths.SessionsDBPath()
	if err != nil {
		return nil, nil, fmt.Errorf("resolving sessions database path: %w", err)
	}

	st, err := store.Open(ctx, dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening sessions database: %w", err)
	}

	pm := project.New(st, nil)
	handle, err := pm.SwitchTo(ctx, repoPath)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}

	return handle, func() { _ = st.Close() }, nil
}
