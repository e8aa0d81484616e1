package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/firmkeeper/internal/integrity"
	"github.com/roach88/firmkeeper/internal/model"
)

// RepairOptions holds flags for the repair command.
type RepairOptions struct {
	*RootOptions
	Database   string
	Tenant     string
	Deep       bool
	DryRun     bool
	Smart      bool
	MaxRetries int
	Fixture    string
}

// NewRepairCommand creates the repair command.
func NewRepairCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RepairOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Scan a tenant and repair what can be repaired",
		Long: `Scan a tenant, then run the automatic repair of every repairable issue,
critical issues first. Every executed repair is written to the audit trail.

--smart groups repairs by entity and retries failures with a linear backoff.
--dry-run reports what would be repaired without changing anything.
Exits 1 when a repair failed.

Example:
  firmkeeper repair --db ./firm.db --tenant guild-1 --deep --smart`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepair(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Tenant, "tenant", "", "tenant id (default from --fixture)")
	cmd.Flags().BoolVar(&opts.Deep, "deep", false, "repair issues of the deep integrity check")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report repairs without applying them")
	cmd.Flags().BoolVar(&opts.Smart, "smart", false, "group by entity and retry failed repairs")
	cmd.Flags().IntVar(&opts.MaxRetries, "max-retries", 0, "attempts per repair with --smart (default from config)")
	cmd.Flags().StringVar(&opts.Fixture, "fixture", "", "YAML fixture providing members and channels")

	return cmd
}

func runRepair(opts *RepairOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	if opts.MaxRetries < 0 {
		return NewExitError(ExitCommandError, "--max-retries must not be negative")
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

	report, err := scanTenant(ctx, sess.engine, tenant, opts.Deep, scanContext(false, f))
	if err != nil {
		return WrapExitError(ExitCommandError, "scan failed", err)
	}

	var result *model.RepairResult
	if opts.Smart {
		maxRetries := opts.MaxRetries
		if maxRetries == 0 {
			maxRetries = sess.cfg.MaxRetries
		}
		result, err = sess.engine.SmartRepair(ctx, report.Issues, integrity.SmartRepairOptions{
			MaxRetries: maxRetries,
			DryRun:     opts.DryRun,
		})
	} else {
		result, err = sess.engine.RepairIntegrityIssues(ctx, report.Issues, integrity.RepairOptions{DryRun: opts.DryRun})
	}
	if err != nil {
		return WrapExitError(ExitFailure, "repair rejected", err)
	}

	if err := formatter.Success(repairView{RepairResult: result, Smart: opts.Smart}); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d repairs failed", result.Failed))
	}
	return nil
}
