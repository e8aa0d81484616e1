package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/firmkeeper/internal/integrity"
	"github.com/roach88/firmkeeper/internal/model"
	"github.com/roach88/firmkeeper/internal/rules"
	"github.com/roach88/firmkeeper/internal/store"
)

// RulesOptions holds flags for the rules command.
type RulesOptions struct {
	*RootOptions
	Type string
}

// NewRulesCommand creates the rules command.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RulesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List validation rules in execution order",
		Long: `List the registered validation rules per entity type, in the order they
run, followed by any dependency cycle or unresolved dependency warnings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", "", "only list rules for this entity type")

	return cmd
}

func runRules(opts *RulesOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	types := model.AllEntityTypes
	if opts.Type != "" {
		t, err := model.ParseEntityType(opts.Type)
		if err != nil {
			_ = formatter.Error(ErrCodeInvalidFlag, err.Error())
			return WrapExitError(ExitCommandError, "invalid --type", err)
		}
		types = []model.EntityType{t}
	}

	// Listing rules touches no records, so an in-memory store is enough.
	mem := store.NewMemory()
	eng, err := integrity.New(mem.Repositories(), mem)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create engine", err)
	}

	var ordered []rules.Rule
	for _, t := range types {
		ordered = append(ordered, eng.RulesForType(t)...)
	}
	return formatter.Success(newRulesView(ordered, eng.DependencyWarnings()))
}
