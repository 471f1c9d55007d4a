package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/cardcore/internal/compiler"
	"github.com/roach88/cardcore/internal/engine"
	"github.com/roach88/cardcore/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <definition.yaml> <session-id>",
		Short: "Replay a stored session and verify determinism",
		Long: `Re-run a persisted session from its seed and recorded inputs, then
compare the fresh trace hash against the stored one. Identical hashes
mean the definition and engine reproduced the session event for event.

Example:
  cardcore replay --db ./sessions.db ./games/war.yaml 0193e0a1-...`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return replaySession(cmd, opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func replaySession(cmd *cobra.Command, opts *ReplayOptions, path, sessionID string) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "open database", err)
	}
	defer st.Close()

	rec, err := st.ReadSession(ctx, sessionID)
	if err != nil {
		return WrapExitError(ExitCommandError, "read session", err)
	}
	choices, err := st.ReadInputs(ctx, sessionID)
	if err != nil {
		return WrapExitError(ExitCommandError, "read inputs", err)
	}

	g, err := compiler.Load(path)
	if err != nil {
		return WrapExitError(ExitFailure, "load definition", err)
	}
	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logLevel}))

	sess, err := engine.NewSession(g,
		engine.WithSeed(rec.Seed),
		engine.WithLogger(log),
		engine.WithInput(&engine.ScriptedInput{Choices: choices}),
	)
	if err != nil {
		return WrapExitError(ExitFailure, "create session", err)
	}
	if err := sess.Run(); err != nil {
		return WrapExitError(ExitFailure, "replay session", err)
	}
	hash, err := sess.TraceHash()
	if err != nil {
		return WrapExitError(ExitFailure, "hash trace", err)
	}

	match := hash == rec.TraceHash
	result := map[string]any{
		"session":       rec.ID,
		"stored_hash":   rec.TraceHash,
		"replayed_hash": hash,
		"deterministic": match,
	}
	if opts.Format == "json" {
		if err := out.Success(result); err != nil {
			return err
		}
	} else {
		if match {
			fmt.Fprintf(cmd.OutOrStdout(), "session %s replayed deterministically\ntrace %s\n", rec.ID, hash)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "session %s DIVERGED\nstored   %s\nreplayed %s\n", rec.ID, rec.TraceHash, hash)
		}
	}
	if !match {
		return NewExitError(ExitFailure, "replay diverged from stored trace")
	}
	return nil
}
