package rules

import (
	"context"
	"fmt"

	"github.com/roach88/firmkeeper/internal/model"
)

// Lookups resolves references between entities, preferring the prefetched
// RelatedSet over repository round-trips.
type Lookups struct {
	repos model.Repositories
}

// NewLookups creates lookups over repos.
func NewLookups(repos model.Repositories) Lookups {
	return Lookups{repos: repos}
}

func (l Lookups) repo(t model.EntityType) (model.Repository, error) {
	repo, ok := l.repos[t]
	if !ok || repo == nil {
		return nil, fmt.Errorf("no repository for %s", t)
	}
	return repo, nil
}

// StaffExists reports whether userID belongs to a non-terminated staff
// member of tenantID.
func (l Lookups) StaffExists(ctx context.Context, vctx *ValidationContext, tenantID, userID string) (bool, error) {
	if vctx != nil && vctx.Related != nil && vctx.Related.StaffUserIDs != nil {
		return vctx.Related.StaffUserIDs[userID], nil
	}
	repo, err := l.repo(model.EntityStaff)
	if err != nil {
		return false, err
	}
	found, err := repo.Find(ctx, tenantID, model.Filter{"userId": userID})
	if err != nil {
		return false, fmt.Errorf("find staff %s: %w", userID, err)
	}
	for _, e := range found {
		if s, ok := e.(*model.Staff); ok && s.Status != model.StaffTerminated {
			return true, nil
		}
	}
	return false, nil
}

// CaseExists reports whether caseID resolves within tenantID.
func (l Lookups) CaseExists(ctx context.Context, vctx *ValidationContext, tenantID, caseID string) (bool, error) {
	if vctx != nil && vctx.Related != nil && vctx.Related.CaseIDs != nil {
		return vctx.Related.CaseIDs[caseID], nil
	}
	return l.exists(ctx, model.EntityCase, tenantID, caseID)
}

// JobExists reports whether jobID resolves within tenantID.
func (l Lookups) JobExists(ctx context.Context, vctx *ValidationContext, tenantID, jobID string) (bool, error) {
	if vctx != nil && vctx.Related != nil && vctx.Related.JobIDs != nil {
		return vctx.Related.JobIDs[jobID], nil
	}
	return l.exists(ctx, model.EntityJob, tenantID, jobID)
}

func (l Lookups) exists(ctx context.Context, t model.EntityType, tenantID, id string) (bool, error) {
	repo, err := l.repo(t)
	if err != nil {
		return false, err
	}
	e, err := repo.FindByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("find %s %s: %w", t, id, err)
	}
	return e != nil && e.Tenant() == tenantID, nil
}
