package integrity

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/firmkeeper/internal/model"
	"github.com/roach88/firmkeeper/internal/rules"
)

// fetched holds the result of loading every entity type for a tenant.
// A type whose fetch failed is absent from entities and present in gaps.
type fetched struct {
	entities map[model.EntityType][]model.Entity
	gaps     []model.ScanGap
}

// fetchAll loads every entity type of tenantID concurrently, isolating
// failures per type.
func (e *Engine) fetchAll(ctx context.Context, tenantID string) fetched {
	types := model.AllEntityTypes
	results := make([][]model.Entity, len(types))
	errs := make([]error, len(types))

	var g errgroup.Group
	g.SetLimit(e.maxConcurrent)
	for i, t := range types {
		i, t := i, t
		g.Go(func() error {
			repo, ok := e.repos[t]
			if !ok || repo == nil {
				errs[i] = newNoRepositoryError(t)
				return nil
			}
			results[i], errs[i] = repo.Find(ctx, tenantID, nil)
			return nil
		})
	}
	_ = g.Wait() // Goroutines never return errors

	out := fetched{entities: make(map[model.EntityType][]model.Entity, len(types))}
	for i, t := range types {
		if errs[i] != nil {
			e.logger.Error("fetch failed",
				"tenant", tenantID,
				"entity_type", t,
				"error", errs[i])
			out.gaps = append(out.gaps, model.ScanGap{EntityType: t, Reason: errs[i].Error()})
			continue
		}
		out.entities[t] = results[i]
	}
	return out
}

// ScanForIntegrityIssues validates every entity of tenantID and runs the
// cross-entity sweep.
//
// vctx may be nil. When it carries no Related set, the scan builds one from
// the fetched entities so rules resolve references without further
// repository calls. Entity types that could not be fetched are recorded in
// the report's Gaps; the rest of the scan still runs.
func (e *Engine) ScanForIntegrityIssues(ctx context.Context, tenantID string, vctx *rules.ValidationContext) (*model.IntegrityReport, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("scan: tenant id is required")
	}
	full := contextFor(tenantID, vctx)
	report := model.NewReport(e.ids.Generate(), tenantID, e.now())

	data := e.fetchAll(ctx, tenantID)
	report.Gaps = append(report.Gaps, data.gaps...)
	if full.Related == nil {
		full.Related = rules.NewRelatedSet(data.entities)
	}

	for _, t := range model.AllEntityTypes {
		for _, entity := range data.entities[t] {
			report.TotalEntitiesScanned++
			report.Add(filterLevel(e.validateEntity(ctx, entity, full), full.Level)...)
		}
	}

	report.Add(filterLevel(e.sweep(ctx, data, full), full.Level)...)
	report.Recount()
	report.CompletedAt = e.now()

	e.logger.Info("scan finished",
		"scan_id", report.ScanID,
		"tenant", tenantID,
		"entities", report.TotalEntitiesScanned,
		"issues", len(report.Issues),
		"repairable", report.RepairableIssues,
		"gaps", len(report.Gaps))
	return report, nil
}

// Sweep rule names.
const (
	SweepStaffSelfHire   = "sweep-staff-self-hire"
	SweepCaseClient      = "sweep-case-client"
	SweepReminderChannel = "sweep-reminder-channel"
)

// sweep runs cross-entity checks over fetched data. Directory checks are
// skipped when the context has no directory.
func (e *Engine) sweep(ctx context.Context, data fetched, vctx *rules.ValidationContext) []model.ValidationIssue {
	var issues []model.ValidationIssue

	for _, entity := range data.entities[model.EntityStaff] {
		s, ok := entity.(*model.Staff)
		if !ok || s.HiredBy == "" {
			continue
		}
		if s.HiredBy == s.UserID || s.HiredBy == s.ID {
			issue := model.NewIssue(s, model.SeverityWarning, "hiredBy", "staff member is recorded as hiring themselves").
				WithRepair(model.ClearField(s, "hiredBy"))
			issue.Rule = SweepStaffSelfHire
			issues = append(issues, issue)
		}
	}

	dir := vctx.Directory
	if dir == nil {
		return issues
	}

	for _, entity := range data.entities[model.EntityCase] {
		c, ok := entity.(*model.Case)
		if !ok || c.ClientID == "" {
			continue
		}
		exists, err := dir.MemberExists(ctx, c.GuildID, c.ClientID)
		if err != nil {
			e.logger.Error("member lookup failed", "entity", model.KeyOf(c), "client", c.ClientID, "error", err)
			continue
		}
		if !exists {
			issue := model.NewIssue(c, model.SeverityWarning, "clientId",
				fmt.Sprintf("client %s is no longer a member", c.ClientID))
			issue.Rule = SweepCaseClient
			issues = append(issues, issue)
		}
	}

	for _, entity := range data.entities[model.EntityReminder] {
		r, ok := entity.(*model.Reminder)
		if !ok || r.ChannelID == "" || !r.IsActive {
			continue
		}
		exists, err := dir.ChannelExists(ctx, r.GuildID, r.ChannelID)
		if err != nil {
			e.logger.Error("channel lookup failed", "entity", model.KeyOf(r), "channel", r.ChannelID, "error", err)
			continue
		}
		if !exists {
			issue := model.NewIssue(r, model.SeverityWarning, "channelId",
				fmt.Sprintf("reminder channel %s no longer exists", r.ChannelID)).
				WithRepair(model.SetField(r, "isActive", false))
			issue.Rule = SweepReminderChannel
			issues = append(issues, issue)
		}
	}

	return issues
}
