package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/firmkeeper/internal/fixture"
	"github.com/roach88/firmkeeper/internal/integrity"
	"github.com/roach88/firmkeeper/internal/model"
	"github.com/roach88/firmkeeper/internal/rules"
)

// ScanOptions holds flags for the scan command.
type ScanOptions struct {
	*RootOptions
	Database string
	Tenant   string
	Deep     bool
	Lenient  bool
	Fixture  string
}

// NewScanCommand creates the scan command.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a tenant for integrity issues",
		Long: `Validate every record of a tenant and print the integrity report.

--deep adds the cross-entity consistency and referential passes. --fixture
supplies the tenant's members and channels so directory checks run.
Exits 1 when issues are found or an entity type could not be scanned.

Example:
  firmkeeper scan --db ./firm.db --tenant guild-1 --deep`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Tenant, "tenant", "", "tenant id (default from --fixture)")
	cmd.Flags().BoolVar(&opts.Deep, "deep", false, "run the deep integrity check")
	cmd.Flags().BoolVar(&opts.Lenient, "lenient", false, "omit informational issues")
	cmd.Flags().StringVar(&opts.Fixture, "fixture", "", "YAML fixture providing members and channels")

	return cmd
}

func runScan(opts *ScanOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

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

	report, err := scanTenant(ctx, sess.engine, tenant, opts.Deep, scanContext(opts.Lenient, f))
	if err != nil {
		return WrapExitError(ExitCommandError, "scan failed", err)
	}
	if err := formatter.Success(reportView{IntegrityReport: report, Deep: opts.Deep}); err != nil {
		return err
	}

	if !report.Complete() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d entity types could not be scanned", len(report.Gaps)))
	}
	if len(report.Issues) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d integrity issues found", len(report.Issues)))
	}
	return nil
}

// scanContext builds the partial validation context shared by scan and
// repair.
func scanContext(lenient bool, f *fixture.Fixture) *rules.ValidationContext {
	vctx := &rules.ValidationContext{Level: model.LevelStrict}
	if lenient {
		vctx.Level = model.LevelLenient
	}
	if f != nil {
		vctx.Directory = f.Directory()
	}
	return vctx
}

func scanTenant(ctx context.Context, eng *integrity.Engine, tenant string, deep bool, vctx *rules.ValidationContext) (*model.IntegrityReport, error) {
	if deep {
		return eng.PerformDeepIntegrityCheck(ctx, tenant, vctx)
	}
	return eng.ScanForIntegrityIssues(ctx, tenant, vctx)
}
