package rules

import (
	"context"
	"fmt"

	"github.com/roach88/firmkeeper/internal/model"
)

// ValidateFunc checks one entity.
type ValidateFunc func(ctx context.Context, entity model.Entity, vctx *ValidationContext) ([]model.ValidationIssue, error)

// Rule is a named, prioritized, type-scoped check.
type Rule struct {
	Name       string
	EntityType model.EntityType
	// Priority orders rules within a type; higher runs first.
	Priority int
	// Dependencies names rules of the same type that must run before this one.
	Dependencies []string
	Validate     ValidateFunc
}

// ValidationContext carries the per-call inputs shared by every rule.
type ValidationContext struct {
	TenantID  string
	Level     model.ValidationLevel
	Operation string
	// Directory is optional; checks that need it are skipped when nil.
	Directory model.Directory
	// Related is optional; rules fall back to repository lookups when nil.
	Related *RelatedSet
}

// NewContext returns a strict context for tenantID.
func NewContext(tenantID string) *ValidationContext {
	return &ValidationContext{TenantID: tenantID, Level: model.LevelStrict}
}

// RelatedSet holds ids of already-fetched related entities.
// A nil map means the set was not prefetched.
type RelatedSet struct {
	// StaffUserIDs holds user ids of staff that are not terminated.
	StaffUserIDs map[string]bool
	CaseIDs      map[string]bool
	JobIDs       map[string]bool
}

// NewRelatedSet builds a RelatedSet from fetched entities. Types absent from
// byType stay nil.
func NewRelatedSet(byType map[model.EntityType][]model.Entity) *RelatedSet {
	rs := &RelatedSet{}
	if staff, ok := byType[model.EntityStaff]; ok {
		rs.StaffUserIDs = make(map[string]bool, len(staff))
		for _, e := range staff {
			if s, ok := e.(*model.Staff); ok && s.Status != model.StaffTerminated {
				rs.StaffUserIDs[s.UserID] = true
			}
		}
	}
	if cases, ok := byType[model.EntityCase]; ok {
		rs.CaseIDs = idSet(cases)
	}
	if jobs, ok := byType[model.EntityJob]; ok {
		rs.JobIDs = idSet(jobs)
	}
	return rs
}

func idSet(entities []model.Entity) map[string]bool {
	set := make(map[string]bool, len(entities))
	for _, e := range entities {
		set[e.EntityID()] = true
	}
	return set
}

// typed adapts a function over a concrete entity type to a ValidateFunc.
func typed[T model.Entity](fn func(ctx context.Context, entity T, vctx *ValidationContext) ([]model.ValidationIssue, error)) ValidateFunc {
	return func(ctx context.Context, entity model.Entity, vctx *ValidationContext) ([]model.ValidationIssue, error) {
		e, ok := entity.(T)
		if !ok {
			var want T
			return nil, fmt.Errorf("expected %T, got %T", want, entity)
		}
		return fn(ctx, e, vctx)
	}
}
