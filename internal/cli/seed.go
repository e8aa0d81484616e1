package cli

import (
	"github.com/spf13/cobra"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Database string
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Load a tenant fixture into the database",
		Long: `Load the records of a YAML tenant fixture into the SQLite database,
creating the database if it does not exist. Records with an existing id are
replaced.

Example:
  firmkeeper seed --db ./firm.db ./fixtures/guild.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")

	return cmd
}

func runSeed(opts *SeedOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	f, err := loadFixture(path)
	if err != nil {
		_ = formatter.Error(ErrCodeFixture, err.Error())
		return err
	}

	sess, err := openSession(opts.RootOptions, sessionOptions{database: opts.Database, create: true}, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	n, err := f.Seed(ctx, sess.store)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to seed database", err)
	}
	sess.logger.Info("fixture seeded", "tenant", f.Tenant, "entities", n, "db", sess.path)

	return formatter.Success(seedView{TenantID: f.Tenant, Database: sess.path, Entities: n})
}
