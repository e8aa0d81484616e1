// Package config loads firmkeeper settings from a CUE file validated against
// an embedded schema.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/firmkeeper/internal/cache"
	"github.com/roach88/firmkeeper/internal/integrity"
)

//go:embed schema.cue
var schemaSource string

// Config holds the engine and CLI settings.
type Config struct {
	Database           string
	LogLevel           slog.Level
	CacheTTL           time.Duration
	RuleTimeout        time.Duration
	RetryDelay         time.Duration
	MaxRetries         int
	MaxConcurrent      int
	BatchSize          int
	OptimizedBatchSize int
}

// document mirrors #Config. Durations stay strings until parsed.
type document struct {
	Database           string `json:"database"`
	LogLevel           string `json:"logLevel"`
	CacheTTL           string `json:"cacheTTL"`
	RuleTimeout        string `json:"ruleTimeout"`
	RetryDelay         string `json:"retryDelay"`
	MaxRetries         int    `json:"maxRetries"`
	MaxConcurrent      int    `json:"maxConcurrent"`
	BatchSize          int    `json:"batchSize"`
	OptimizedBatchSize int    `json:"optimizedBatchSize"`
}

// Default returns the settings used when no config file is given.
func Default() Config {
	return Config{
		Database:           "firmkeeper.db",
		LogLevel:           slog.LevelInfo,
		CacheTTL:           cache.DefaultTTL,
		RuleTimeout:        integrity.DefaultRuleTimeout,
		RetryDelay:         integrity.DefaultRetryDelay,
		MaxRetries:         integrity.DefaultMaxRetries,
		MaxConcurrent:      integrity.DefaultMaxConcurrent,
		BatchSize:          integrity.DefaultBatchSize,
		OptimizedBatchSize: integrity.DefaultOptimizedBatchSize,
	}
}

// LoadError reports an invalid config file, with a position when CUE
// provides one.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads and validates the config at path. An empty path yields Default.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, data)
}

// Parse validates data against the schema and decodes it. filename is used
// only for error positions.
func Parse(filename string, data []byte) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}

	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(err)
	}

	var doc document
	if err := unified.Decode(&doc); err != nil {
		return Config{}, formatCUEError(err)
	}
	return doc.resolve()
}

func (d document) resolve() (Config, error) {
	cfg := Config{
		Database:           d.Database,
		MaxRetries:         d.MaxRetries,
		MaxConcurrent:      d.MaxConcurrent,
		BatchSize:          d.BatchSize,
		OptimizedBatchSize: d.OptimizedBatchSize,
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(d.LogLevel)); err != nil {
		return Config{}, &LoadError{Field: "logLevel", Message: err.Error()}
	}

	durations := []struct {
		field string
		raw   string
		dst   *time.Duration
	}{
		{"cacheTTL", d.CacheTTL, &cfg.CacheTTL},
		{"ruleTimeout", d.RuleTimeout, &cfg.RuleTimeout},
		{"retryDelay", d.RetryDelay, &cfg.RetryDelay},
	}
	for _, dur := range durations {
		parsed, err := time.ParseDuration(dur.raw)
		if err != nil {
			return Config{}, &LoadError{Field: dur.field, Message: err.Error()}
		}
		if parsed < 0 {
			return Config{}, &LoadError{Field: dur.field, Message: "must not be negative"}
		}
		*dur.dst = parsed
	}
	return cfg, nil
}

// EngineOptions converts the settings into integrity engine options.
func (c Config) EngineOptions() []integrity.Option {
	return []integrity.Option{
		integrity.WithCacheTTL(c.CacheTTL),
		integrity.WithRuleTimeout(c.RuleTimeout),
		integrity.WithRetryDelay(c.RetryDelay),
		integrity.WithMaxConcurrent(c.MaxConcurrent),
		integrity.WithBatchSize(c.BatchSize),
		integrity.WithOptimizedBatchSize(c.OptimizedBatchSize),
	}
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	le := &LoadError{Field: "cue", Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
