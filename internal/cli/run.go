package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/cardcore/internal/compiler"
	"github.com/roach88/cardcore/internal/engine"
	"github.com/roach88/cardcore/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Seed     int64
	Database string
	Inputs   string
	MaxTurns int
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <definition.yaml>",
		Short: "Run a session to completion",
		Long: `Run a game definition as one session.

The session is driven by the single-writer loop: setup, then phase
steps until the win condition resolves. External choices come from the
--inputs file (a YAML list, consumed in order); without one, the first
legal option is always chosen. With --db the session's trace, resolved
inputs, and final snapshot are persisted for later inspection and
replay.

Example:
  cardcore run --seed 42 ./games/war.yaml
  cardcore run --seed 42 --db ./sessions.db --inputs ./choices.yaml ./games/war.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, opts, args[0])
		},
	}

	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "PRNG seed (overrides the definition's)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database for persistence")
	cmd.Flags().StringVar(&opts.Inputs, "inputs", "", "YAML file with scripted choices")
	cmd.Flags().IntVar(&opts.MaxTurns, "max-turns", engine.DefaultMaxTurns, "turn bound for unresolved sessions")

	return cmd
}

func runSession(cmd *cobra.Command, opts *RunOptions, path string) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logLevel}))

	g, err := compiler.Load(path)
	if err != nil {
		return WrapExitError(ExitFailure, "load definition", err)
	}

	input := &engine.RecordingInput{}
	if opts.Inputs != "" {
		choices, err := loadChoices(opts.Inputs)
		if err != nil {
			return WrapExitError(ExitCommandError, "load inputs", err)
		}
		input.Provider = &engine.ScriptedInput{Choices: choices}
	}

	sessionOpts := []engine.Option{
		engine.WithLogger(log),
		engine.WithInput(input),
		engine.WithMaxTurns(opts.MaxTurns),
	}
	if cmd.Flags().Changed("seed") {
		sessionOpts = append(sessionOpts, engine.WithSeed(opts.Seed))
	}
	sess, err := engine.NewSession(g, sessionOpts...)
	if err != nil {
		return WrapExitError(ExitFailure, "create session", err)
	}

	if err := sess.Run(); err != nil {
		return WrapExitError(ExitFailure, "run session", err)
	}
	hash, err := sess.TraceHash()
	if err != nil {
		return WrapExitError(ExitFailure, "hash trace", err)
	}

	if opts.Database != "" {
		if err := persistSession(cmd.Context(), opts.Database, g.Meta.Name, sess, input, hash); err != nil {
			return WrapExitError(ExitCommandError, "persist session", err)
		}
		out.VerboseLog("session %s persisted to %s", sess.ID, opts.Database)
	}

	result := map[string]any{
		"session":    sess.ID,
		"finished":   sess.Finished(),
		"result":     sess.Result(),
		"turns":      sess.Game().Flow.Turn,
		"events":     sess.Trace().Len(),
		"trace_hash": hash,
	}
	if opts.Format == "json" {
		return out.Success(result)
	}
	return out.Success(fmt.Sprintf("session %s: finished=%v result=%v turns=%d events=%d\ntrace %s",
		sess.ID, sess.Finished(), sess.Result(), sess.Game().Flow.Turn, sess.Trace().Len(), hash))
}

func persistSession(ctx context.Context, dbPath, game string, sess *engine.Session, input *engine.RecordingInput, hash string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	rec := store.SessionRecord{
		ID:        sess.ID,
		Game:      game,
		Seed:      sess.Trace().Seed,
		Finished:  sess.Finished(),
		Result:    sess.Result(),
		TraceHash: hash,
	}
	if err := st.WriteSession(ctx, rec); err != nil {
		return err
	}
	if err := st.WriteTrace(ctx, sess.ID, sess.Trace()); err != nil {
		return err
	}
	if err := st.WriteInputs(ctx, sess.ID, input.Choices); err != nil {
		return err
	}
	var lastSeq int64
	if n := sess.Trace().Len(); n > 0 {
		lastSeq = sess.Trace().Entries[n-1].Seq
	}
	return st.WriteSnapshot(ctx, sess.ID, lastSeq, sess.Snapshot())
}

// loadChoices reads a YAML list of scripted choices.
func loadChoices(path string) ([]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var choices []any
	if err := yaml.Unmarshal(data, &choices); err != nil {
		return nil, fmt.Errorf("decode choices: %w", err)
	}
	return choices, nil
}
