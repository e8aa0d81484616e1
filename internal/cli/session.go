package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/firmkeeper/internal/config"
	"github.com/roach88/firmkeeper/internal/fixture"
	"github.com/roach88/firmkeeper/internal/integrity"
	"github.com/roach88/firmkeeper/internal/store"
)

// session is the per-command wiring of config, store and engine.
type session struct {
	path   string
	cfg    config.Config
	store  *store.Store
	engine *integrity.Engine
	logger *slog.Logger
}

// sessionOptions selects how the database is opened.
type sessionOptions struct {
	database string
	// create allows a missing database file to be created.
	create bool
}

func openSession(opts *RootOptions, so sessionOptions, cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	logger := newLogger(opts, cfg, cmd.ErrOrStderr())

	path := so.database
	if path == "" {
		path = cfg.Database
	}
	if !so.create {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil, NewExitError(ExitCommandError, "database not found: "+path)
		}
	}

	logger.Debug("opening database", "path", path)
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	engineOpts := append(cfg.EngineOptions(), integrity.WithLogger(logger))
	if opts.Clock != nil {
		engineOpts = append(engineOpts, integrity.WithClock(opts.Clock))
	}
	if opts.IDs != nil {
		engineOpts = append(engineOpts, integrity.WithIDGenerator(opts.IDs))
	}
	eng, err := integrity.New(st.Repositories(), st, engineOpts...)
	if err != nil {
		_ = st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to create engine", err)
	}

	return &session{path: path, cfg: cfg, store: st, engine: eng, logger: logger}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing database", "error", err)
	}
}

// newLogger writes text logs to w. --verbose forces debug level; otherwise
// the configured level applies.
func newLogger(opts *RootOptions, cfg config.Config, w io.Writer) *slog.Logger {
	level := cfg.LogLevel
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// commandContext returns the command's context, cancelled on SIGINT or
// SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// resolveTenant returns flag, or the fixture's tenant when flag is empty.
func resolveTenant(flag string, f *fixture.Fixture) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if f != nil {
		return f.Tenant, nil
	}
	return "", NewExitError(ExitCommandError, "--tenant is required")
}

// loadFixture loads the fixture at path, or returns nil when path is empty.
func loadFixture(path string) (*fixture.Fixture, error) {
	if path == "" {
		return nil, nil
	}
	f, err := fixture.Load(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load fixture", err)
	}
	return f, nil
}
