package integrity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/roach88/firmkeeper/internal/model"
)

// RepairOptions configures RepairIntegrityIssues.
type RepairOptions struct {
	// DryRun counts repairs as if they ran, without touching the store or
	// the audit trail.
	DryRun bool
}

// SmartRepairOptions configures SmartRepair.
type SmartRepairOptions struct {
	// MaxRetries is the maximum number of attempts per issue.
	// Zero or negative means DefaultMaxRetries.
	MaxRetries int
	DryRun     bool
}

// RepairIntegrityIssues repairs issues in severity order, critical first.
//
// Non-repairable issues are skipped. Each executed repair writes one audit
// record, whether it succeeded or failed. A failing repair does not stop
// the rest. The validation cache is cleared when the call returns.
//
// Returns an error only if an issue is malformed; in that case nothing is
// repaired.
func (e *Engine) RepairIntegrityIssues(ctx context.Context, issues []model.ValidationIssue, opts RepairOptions) (*model.RepairResult, error) {
	defer e.cache.Clear()

	if err := checkIssues(issues); err != nil {
		return nil, err
	}

	ordered := make([]model.ValidationIssue, len(issues))
	copy(ordered, issues)
	sortBySeverity(ordered)

	result := newRepairResult(len(issues), opts.DryRun)
	for _, issue := range ordered {
		if !issue.Repairable() {
			result.Skipped++
			continue
		}
		if opts.DryRun {
			result.record(issue, nil)
			continue
		}
		if err := ctx.Err(); err != nil {
			result.record(issue, err)
			continue
		}

		change, err := e.dispatcher.Execute(ctx, issue.Repair)
		e.writeAudit(ctx, issue, change, err, nil)
		e.logRepair(issue, err)
		result.record(issue, err)
	}

	e.logger.Info("repair finished",
		"total", result.TotalIssues,
		"repaired", result.Repaired,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"dry_run", result.DryRun)
	return result.RepairResult, nil
}

// SmartRepair repairs issues grouped by entity, most critical entities
// first, retrying each failing repair up to MaxRetries attempts. Attempt i
// (zero-based) waits i times the retry delay before running.
//
// Audit records carry the zero-based index of the final attempt. A repair
// whose target no longer exists is not retried. Cancelling ctx abandons
// the pending wait and records the issue as failed.
func (e *Engine) SmartRepair(ctx context.Context, issues []model.ValidationIssue, opts SmartRepairOptions) (*model.RepairResult, error) {
	defer e.cache.Clear()

	if err := checkIssues(issues); err != nil {
		return nil, err
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	result := newRepairResult(len(issues), opts.DryRun)
	for _, group := range groupByEntity(issues) {
		for _, issue := range group {
			if !issue.Repairable() {
				result.Skipped++
				continue
			}
			if opts.DryRun {
				result.record(issue, nil)
				continue
			}

			change, attempt, err := e.repairWithRetry(ctx, issue, maxRetries)
			if attempt >= 0 {
				e.writeAudit(ctx, issue, change, err, &attempt)
			}
			e.logRepair(issue, err, "attempt", attempt)
			result.record(issue, err)
		}
	}

	e.logger.Info("smart repair finished",
		"total", result.TotalIssues,
		"repaired", result.Repaired,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"max_retries", maxRetries,
		"dry_run", result.DryRun)
	return result.RepairResult, nil
}

// repairWithRetry returns the change, the index of the last attempt that
// ran (-1 if none did) and the final error.
func (e *Engine) repairWithRetry(ctx context.Context, issue model.ValidationIssue, maxRetries int) (Change, int, error) {
	last := -1
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := e.sleep(ctx, e.retryDelay*time.Duration(attempt)); err != nil {
				return Change{}, last, fmt.Errorf("retry wait: %w (last error: %v)", err, lastErr)
			}
		} else if err := ctx.Err(); err != nil {
			return Change{}, last, err
		}

		last = attempt
		change, err := e.dispatcher.Execute(ctx, issue.Repair)
		if err == nil {
			return change, attempt, nil
		}
		lastErr = err
		e.logger.Debug("repair attempt failed",
			append(logAttrsForIssue(issue), "attempt", attempt, "error", err)...)
		if IsEntityNotFound(err) {
			break
		}
	}
	return Change{}, last, lastErr
}

func (e *Engine) writeAudit(ctx context.Context, issue model.ValidationIssue, change Change, repairErr error, attempt *int) {
	if e.audit == nil {
		return
	}

	meta := model.AuditMetadata{
		Severity:   issue.Severity,
		Field:      issue.Field,
		EntityType: issue.EntityType,
		Rule:       issue.Rule,
		Outcome:    model.OutcomeRepaired,
		RetryCount: attempt,
	}
	after := change.After
	if repairErr != nil {
		meta.Outcome = model.OutcomeFailed
		meta.Error = repairErr.Error()
		after = issue.Repair.Describe()
	}

	rec := model.AuditRecord{
		ID:       e.ids.Generate(),
		TenantID: issue.TenantID,
		Action:   model.AuditActionSystemRepair,
		ActorID:  model.AuditActorSystem,
		TargetID: issue.EntityID,
		Details: model.AuditDetails{
			Before:   change.Before,
			After:    after,
			Reason:   issue.Message,
			Metadata: meta,
		},
		Timestamp: e.now(),
	}

	// The audit write is best effort; the repair has already happened.
	if err := e.audit.Add(context.WithoutCancel(ctx), rec); err != nil {
		e.logger.Error("audit write failed",
			append(logAttrsForIssue(issue), "audit_id", rec.ID, "error", err)...)
	}
}

func (e *Engine) logRepair(issue model.ValidationIssue, err error, extra ...any) {
	attrs := append(logAttrsForIssue(issue), extra...)
	if err != nil {
		e.logger.Warn("repair failed", append(attrs, "error", err)...)
		return
	}
	e.logger.Debug("repair applied", attrs...)
}

func checkIssues(issues []model.ValidationIssue) error {
	for i, issue := range issues {
		if err := issue.Validate(); err != nil {
			return &EngineError{
				Code:       ErrCodeMalformedIssue,
				Message:    fmt.Sprintf("issue %d rejected", i),
				EntityType: issue.EntityType,
				EntityID:   issue.EntityID,
				Err:        err,
			}
		}
	}
	return nil
}

// sortBySeverity orders issues critical, warning, info. Ties keep their
// input order.
func sortBySeverity(issues []model.ValidationIssue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Severity.Rank() < issues[j].Severity.Rank()
	})
}

// groupByEntity groups issues by entity key. Groups are ordered by
// descending critical count, then first appearance; issues within a group
// are in severity order.
func groupByEntity(issues []model.ValidationIssue) [][]model.ValidationIssue {
	index := make(map[string]int)
	var groups [][]model.ValidationIssue
	for _, issue := range issues {
		i, ok := index[issue.Key()]
		if !ok {
			i = len(groups)
			index[issue.Key()] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], issue)
	}

	critical := func(group []model.ValidationIssue) int {
		n := 0
		for _, issue := range group {
			if issue.Severity == model.SeverityCritical {
				n++
			}
		}
		return n
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return critical(groups[i]) > critical(groups[j])
	})
	for _, group := range groups {
		sortBySeverity(group)
	}
	return groups
}

type repairTally struct {
	*model.RepairResult
}

func newRepairResult(total int, dryRun bool) repairTally {
	return repairTally{&model.RepairResult{
		TotalIssues:    total,
		DryRun:         dryRun,
		RepairedIssues: []model.ValidationIssue{},
		FailedRepairs:  []model.FailedRepair{},
	}}
}

func (t repairTally) record(issue model.ValidationIssue, err error) {
	if err != nil {
		t.Failed++
		t.FailedRepairs = append(t.FailedRepairs, model.FailedRepair{Issue: issue, Error: err.Error()})
		return
	}
	t.Repaired++
	t.RepairedIssues = append(t.RepairedIssues, issue)
}
