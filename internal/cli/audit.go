package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/firmkeeper/internal/model"
)

// AuditOptions holds flags for the audit command.
type AuditOptions struct {
	*RootOptions
	Database string
	Tenant   string
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Print the repair audit trail of a tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Tenant, "tenant", "", "tenant id (required)")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

func runAudit(opts *AuditOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	sess, err := openSession(opts.RootOptions, sessionOptions{database: opts.Database}, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	records, err := sess.store.AuditRecords(ctx, opts.Tenant)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read audit trail", err)
	}
	if records == nil {
		records = []model.AuditRecord{}
	}
	return formatter.Success(auditView{TenantID: opts.Tenant, Records: records})
}
