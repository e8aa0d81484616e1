package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/firmkeeper/internal/model"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Database  string
	Tenant    string
	Type      string
	ID        string
	Operation string
	Lenient   bool
	Fixture   string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate one stored entity ahead of an operation",
		Long: `Run the rules for one stored entity, as done before an operation on it,
and print the issues found. Exits 1 when there are issues.

Example:
  firmkeeper validate --db ./firm.db --tenant guild-1 --type case --id c-1 --operation close`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Tenant, "tenant", "", "tenant id (default from --fixture)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "entity type (required)")
	cmd.Flags().StringVar(&opts.ID, "id", "", "entity id (required)")
	cmd.Flags().StringVar(&opts.Operation, "operation", "", "operation about to run, e.g. update")
	cmd.Flags().BoolVar(&opts.Lenient, "lenient", false, "omit informational issues")
	cmd.Flags().StringVar(&opts.Fixture, "fixture", "", "YAML fixture providing members and channels")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	t, err := model.ParseEntityType(opts.Type)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidFlag, err.Error())
		return WrapExitError(ExitCommandError, "invalid --type", err)
	}
	f, err := loadFixture(opts.Fixture)
	if err != nil {
		_ = formatter.Error(ErrCodeFixture, err.Error())
		return err
	}
	tenant, err := resolveTenant(opts.Tenant, f)
	if err != nil {
		return err
	}

	sess, err := openSession(opts.RootOptions, sessionOptions{database: opts.Database}, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	entity, err := sess.store.Repository(t).FindByID(ctx, opts.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load entity", err)
	}
	if entity == nil || entity.Tenant() != tenant {
		msg := fmt.Sprintf("%s %s not found in tenant %s", t, opts.ID, tenant)
		_ = formatter.Error(ErrCodeNotFound, msg)
		return NewExitError(ExitCommandError, msg)
	}

	issues, err := sess.engine.ValidateBeforeOperation(ctx, entity, opts.Operation, scanContext(opts.Lenient, f))
	if err != nil {
		return WrapExitError(ExitCommandError, "validation failed", err)
	}

	view := issuesView{EntityType: t, EntityID: opts.ID, Operation: opts.Operation, Issues: issues}
	if err := formatter.Success(view); err != nil {
		return err
	}
	if len(issues) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d issues found", len(issues)))
	}
	return nil
}
