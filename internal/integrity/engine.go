package integrity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/firmkeeper/internal/cache"
	"github.com/roach88/firmkeeper/internal/model"
	"github.com/roach88/firmkeeper/internal/rules"
)

// Engine defaults.
const (
	DefaultMaxConcurrent      = 10
	DefaultBatchSize          = 50
	DefaultOptimizedBatchSize = 20
	DefaultRuleTimeout        = 30 * time.Second
	DefaultRetryDelay         = time.Second
	DefaultMaxRetries         = 3
)

// Sleeper waits for d or until ctx is done, returning ctx.Err() in the
// latter case.
type Sleeper func(ctx context.Context, d time.Duration) error

// Engine validates, scans and repairs firm entities.
//
// Thread-safety: all exported methods are safe for concurrent use.
type Engine struct {
	repos      model.Repositories
	audit      model.AuditLog
	registry   *rules.Registry
	cache      *cache.Cache
	dispatcher *Dispatcher
	queue      *validationQueue
	logger     *slog.Logger
	ids        IDGenerator
	now        func() time.Time
	sleep      Sleeper

	cacheTTL           time.Duration
	maxConcurrent      int
	batchSize          int
	optimizedBatchSize int
	ruleTimeout        time.Duration
	retryDelay         time.Duration
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithCacheTTL sets how long validation results are reused.
//
// Default: 5 minutes (cache.DefaultTTL). Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.cacheTTL = ttl
	}
}

// WithClock sets the time source for report, audit and cache timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithSleeper replaces the wait used between smart-repair attempts.
func WithSleeper(s Sleeper) Option {
	return func(e *Engine) {
		e.sleep = s
	}
}

// WithMaxConcurrent caps in-flight validations in OptimizedBatchValidate
// and concurrent fetches in scans.
//
// Default: 10 (DefaultMaxConcurrent)
func WithMaxConcurrent(n int) Option {
	return func(e *Engine) {
		e.maxConcurrent = n
	}
}

// WithBatchSize sets the chunk size of BatchValidate.
//
// Default: 50 (DefaultBatchSize)
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		e.batchSize = n
	}
}

// WithOptimizedBatchSize sets the per-type sub-batch size of
// OptimizedBatchValidate.
//
// Default: 20 (DefaultOptimizedBatchSize)
func WithOptimizedBatchSize(n int) Option {
	return func(e *Engine) {
		e.optimizedBatchSize = n
	}
}

// WithRuleTimeout bounds each rule call. A rule that does not return in
// time contributes a "rule did not complete" warning. Zero disables the
// bound.
//
// Default: 30 seconds (DefaultRuleTimeout)
func WithRuleTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.ruleTimeout = d
	}
}

// WithRetryDelay sets the base delay of smart repair. Attempt i waits
// i*delay before running.
//
// Default: 1 second (DefaultRetryDelay)
func WithRetryDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.retryDelay = d
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithIDGenerator sets the generator for scan and audit ids.
//
// Default: UUIDv7Generator
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// New creates an Engine over repos with the built-in rules registered.
//
// audit may be nil, in which case repairs are not audited.
func New(repos model.Repositories, audit model.AuditLog, opts ...Option) (*Engine, error) {
	e := &Engine{
		repos:              repos,
		audit:              audit,
		logger:             slog.Default(),
		ids:                UUIDv7Generator{},
		now:                time.Now,
		sleep:              sleepContext,
		cacheTTL:           cache.DefaultTTL,
		maxConcurrent:      DefaultMaxConcurrent,
		batchSize:          DefaultBatchSize,
		optimizedBatchSize: DefaultOptimizedBatchSize,
		ruleTimeout:        DefaultRuleTimeout,
		retryDelay:         DefaultRetryDelay,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.maxConcurrent < 1 {
		return nil, fmt.Errorf("max concurrent must be positive, got %d", e.maxConcurrent)
	}
	if e.batchSize < 1 || e.optimizedBatchSize < 1 {
		return nil, fmt.Errorf("batch sizes must be positive, got %d and %d", e.batchSize, e.optimizedBatchSize)
	}

	registry, err := rules.NewRegistry(rules.Builtin(repos)...)
	if err != nil {
		return nil, fmt.Errorf("register built-in rules: %w", err)
	}
	e.registry = registry
	e.cache = cache.New(cache.WithTTL(e.cacheTTL), cache.WithClock(e.now))
	e.dispatcher = NewDispatcher(repos)
	e.queue = newValidationQueue(e.maxConcurrent)

	return e, nil
}

// AddCustomRule registers rule, replacing any rule with the same name.
// Cached results are dropped so the rule applies to the next validation.
func (e *Engine) AddCustomRule(rule rules.Rule) error {
	if err := e.registry.Add(rule); err != nil {
		return err
	}
	e.cache.Clear()
	return nil
}

// ValidationRules returns every registered rule in registration order.
func (e *Engine) ValidationRules() []rules.Rule {
	return e.registry.All()
}

// RulesForType returns the rules for t in execution order.
func (e *Engine) RulesForType(t model.EntityType) []rules.Rule {
	return e.registry.ExecutionOrder(t)
}

// DependencyWarnings reports cycles and unresolved rule dependencies.
func (e *Engine) DependencyWarnings() []rules.DependencyWarning {
	return rules.AnalyzeCycles(e.registry.All())
}

// ClearValidationCache drops every cached validation result.
func (e *Engine) ClearValidationCache() {
	e.cache.Clear()
}

// CachedResults returns the number of cached validation results.
func (e *Engine) CachedResults() int {
	return e.cache.Len()
}

// InFlight returns the number of validations currently holding a slot in
// the concurrency-capped queue.
func (e *Engine) InFlight() int {
	return e.queue.InFlight()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// contextFor returns a full validation context for tenantID built from
// partial. partial is never modified.
func contextFor(tenantID string, partial *rules.ValidationContext) *rules.ValidationContext {
	vctx := rules.NewContext(tenantID)
	if partial != nil {
		copied := *partial
		vctx = &copied
		if tenantID != "" {
			vctx.TenantID = tenantID
		}
		if vctx.Level == "" {
			vctx.Level = model.LevelStrict
		}
	}
	return vctx
}

// filterLevel drops informational issues for lenient validation.
func filterLevel(issues []model.ValidationIssue, level model.ValidationLevel) []model.ValidationIssue {
	if level != model.LevelLenient {
		return issues
	}
	out := make([]model.ValidationIssue, 0, len(issues))
	for _, issue := range issues {
		if issue.Severity != model.SeverityInfo {
			out = append(out, issue)
		}
	}
	return out
}
