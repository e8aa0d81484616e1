package integrity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/firmkeeper/internal/model"
	"github.com/roach88/firmkeeper/internal/rules"
)

// RuleIncompleteMessage is the message of the issue contributed by a rule
// that exceeded the rule timeout.
const RuleIncompleteMessage = "rule did not complete"

// ValidateBeforeOperation validates entity ahead of operation (for example
// "update" or "close"). vctx may be nil; its tenant is taken from entity.
//
// Results are cached per entity for the cache TTL, so a repeated call for
// an unmodified entity runs no rules. Lenient contexts drop informational
// issues from the returned list.
func (e *Engine) ValidateBeforeOperation(ctx context.Context, entity model.Entity, operation string, vctx *rules.ValidationContext) ([]model.ValidationIssue, error) {
	if err := checkEntity(entity); err != nil {
		return nil, err
	}
	full := contextFor(entity.Tenant(), vctx)
	full.Operation = operation

	issues := e.validateEntity(ctx, entity, full)
	return filterLevel(issues, full.Level), nil
}

func checkEntity(entity model.Entity) error {
	if entity == nil {
		return &EngineError{Code: ErrCodeInvalidEntity, Message: "entity is nil"}
	}
	if !entity.EntityType().Valid() || entity.EntityID() == "" || entity.Tenant() == "" {
		return &EngineError{
			Code:       ErrCodeInvalidEntity,
			Message:    "entity requires a known type, an id and a tenant",
			EntityType: entity.EntityType(),
			EntityID:   entity.EntityID(),
		}
	}
	return nil
}

// validateEntity runs the execution plan for entity's type and returns the
// full, unfiltered issue list. Results are served from and stored in the
// cache. Results with an incomplete rule, or computed after ctx ended, are
// not cached.
func (e *Engine) validateEntity(ctx context.Context, entity model.Entity, vctx *rules.ValidationContext) []model.ValidationIssue {
	key := model.KeyOf(entity)
	if cached, ok := e.cache.Get(key); ok {
		return cached
	}

	issues := []model.ValidationIssue{}
	complete := true
	for _, rule := range e.registry.ExecutionOrder(entity.EntityType()) {
		found, err := e.runRule(ctx, rule, entity, vctx)
		switch {
		case errors.Is(err, errRuleTimeout):
			complete = false
			e.logger.Warn("rule timed out",
				"rule", rule.Name,
				"entity", key,
				"timeout", e.ruleTimeout)
			issues = append(issues, model.ValidationIssue{
				TenantID:   entity.Tenant(),
				Severity:   model.SeverityWarning,
				EntityType: entity.EntityType(),
				EntityID:   entity.EntityID(),
				Message:    RuleIncompleteMessage,
				Rule:       rule.Name,
			})
		case err != nil:
			e.logger.Error("rule failed",
				"rule", rule.Name,
				"entity", key,
				"error", err)
		default:
			issues = append(issues, stampRule(found, rule.Name)...)
		}
	}

	if complete && ctx.Err() == nil {
		e.cache.Put(key, issues)
	}
	return issues
}

var errRuleTimeout = errors.New("rule timed out")

type ruleOutcome struct {
	issues []model.ValidationIssue
	err    error
}

// runRule invokes one rule under the rule timeout. A panicking rule is
// reported as an error.
func (e *Engine) runRule(ctx context.Context, rule rules.Rule, entity model.Entity, vctx *rules.ValidationContext) ([]model.ValidationIssue, error) {
	if e.ruleTimeout <= 0 {
		return callRule(ctx, rule, entity, vctx)
	}

	rctx, cancel := context.WithTimeout(ctx, e.ruleTimeout)
	defer cancel()

	// Buffered so a rule that ignores its context can still finish and exit.
	done := make(chan ruleOutcome, 1)
	go func() {
		issues, err := callRule(rctx, rule, entity, vctx)
		done <- ruleOutcome{issues: issues, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && errors.Is(rctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, errRuleTimeout
		}
		return out.issues, out.err
	case <-rctx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errRuleTimeout
	}
}

func callRule(ctx context.Context, rule rules.Rule, entity model.Entity, vctx *rules.ValidationContext) (issues []model.ValidationIssue, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rule %s panicked: %v", rule.Name, r)
		}
	}()
	return rule.Validate(ctx, entity, vctx)
}

// stampRule fills in the producing rule's name where a rule left it empty.
func stampRule(issues []model.ValidationIssue, name string) []model.ValidationIssue {
	for i := range issues {
		if issues[i].Rule == "" {
			issues[i].Rule = name
		}
	}
	return issues
}

func logAttrsForIssue(issue model.ValidationIssue) []any {
	return []any{
		slog.String("entity", issue.Key()),
		slog.String("severity", string(issue.Severity)),
		slog.String("field", issue.Field),
		slog.String("rule", issue.Rule),
	}
}
