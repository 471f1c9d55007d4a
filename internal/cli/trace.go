package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cardcore/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Tag      string
	Limit    int
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <session-id>",
		Short: "Show a stored session trace",
		Long: `Print a persisted session's event trace in dispatch order.

Example:
  cardcore trace --db ./sessions.db 0193e0a1-...
  cardcore trace --db ./sessions.db --tag move 0193e0a1-...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showTrace(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Tag, "tag", "", "only show events whose tag has this prefix")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum events to show (0 = all)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func showTrace(cmd *cobra.Command, opts *TraceOptions, sessionID string) error {
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
	trace, err := st.ReadTrace(ctx, sessionID)
	if err != nil {
		return WrapExitError(ExitCommandError, "read trace", err)
	}

	entries := trace.Entries
	if opts.Tag != "" {
		filtered := entries[:0:0]
		for _, e := range entries {
			if hasTagPrefix(e.Tag, opts.Tag) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[:opts.Limit]
	}

	if opts.Format == "json" {
		return out.Success(map[string]any{
			"session":    rec.ID,
			"game":       rec.Game,
			"seed":       rec.Seed,
			"trace_hash": rec.TraceHash,
			"events":     entries,
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "session %s (%s, seed %d)\n", rec.ID, rec.Game, rec.Seed)
	for _, e := range entries {
		if len(e.Ctx) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%6d  %-24s %v\n", e.Seq, e.Tag, e.Ctx)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%6d  %s\n", e.Seq, e.Tag)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d event(s); trace %s\n", len(entries), rec.TraceHash)
	return nil
}

// hasTagPrefix matches an exact tag or a dotted family prefix.
func hasTagPrefix(tag, prefix string) bool {
	if tag == prefix {
		return true
	}
	return len(tag) > len(prefix) && tag[:len(prefix)] == prefix && tag[len(prefix)] == '.'
}
