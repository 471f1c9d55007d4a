package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cardcore/internal/compiler"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <definition.yaml>",
		Short: "Validate a game definition",
		Long: `Validate a game definition without running it.

Checks the document against the structural schema, decodes it, and runs
the full cross-reference validation: zone and deck types, selector
targets, action fields, flow states, and rule triggers.

Example:
  cardcore validate ./games/war.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}

			g, err := compiler.Load(args[0])
			if err != nil {
				_ = out.Error("E001", "definition invalid", err.Error())
				return WrapExitError(ExitFailure, "definition invalid", err)
			}

			summary := map[string]any{
				"name":       g.Meta.Name,
				"deck_types": len(g.DeckTypes),
				"zones":      len(g.Zones),
				"players":    len(g.Players),
				"rules":      len(g.Rules),
				"states":     len(g.Flow.States),
			}
			if rootOpts.Format == "json" {
				return out.Success(summary)
			}
			return out.Success(fmt.Sprintf("%s: valid (%d players, %d zones, %d rules, %d states)",
				args[0], len(g.Players), len(g.Zones), len(g.Rules), len(g.Flow.States)))
		},
	}
	return cmd
}
