package integrity

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/firmkeeper/internal/model"
	"github.com/roach88/firmkeeper/internal/rules"
)

// Deep check rule names.
const (
	DeepCaseAssignedLawyers   = "deep-case-assigned-lawyers"
	DeepCaseLeadAssigned      = "deep-case-lead-assigned"
	DeepApplicationJob        = "deep-application-job"
	DeepJobPendingApplication = "deep-job-pending-applications"
	DeepReminderCase          = "deep-reminder-case"
	DeepRetainerLawyer        = "deep-retainer-lawyer"
)

// PerformDeepIntegrityCheck runs ScanForIntegrityIssues, then re-fetches the
// tenant's data and adds a consistency pass and a referential pass. Issues
// from all passes are merged into one report.
//
// Checks that depend on an entity type whose re-fetch failed are skipped,
// and the failure is recorded as a gap.
func (e *Engine) PerformDeepIntegrityCheck(ctx context.Context, tenantID string, vctx *rules.ValidationContext) (*model.IntegrityReport, error) {
	report, err := e.ScanForIntegrityIssues(ctx, tenantID, vctx)
	if err != nil {
		return nil, err
	}
	level := contextFor(tenantID, vctx).Level

	data := e.fetchAll(ctx, tenantID)
	for _, gap := range data.gaps {
		if !hasGap(report.Gaps, gap.EntityType) {
			report.Gaps = append(report.Gaps, gap)
		}
	}
	related := rules.NewRelatedSet(data.entities)

	consistency := consistencyPass(data, related)
	referential := referentialPass(data, related)
	report.Add(filterLevel(consistency, level)...)
	report.Add(filterLevel(referential, level)...)
	report.Recount()
	report.CompletedAt = e.now()

	e.logger.Info("deep check finished",
		"scan_id", report.ScanID,
		"tenant", tenantID,
		"consistency_issues", len(consistency),
		"referential_issues", len(referential),
		"issues", len(report.Issues))
	return report, nil
}

func hasGap(gaps []model.ScanGap, t model.EntityType) bool {
	for _, g := range gaps {
		if g.EntityType == t {
			return true
		}
	}
	return false
}

// consistencyPass checks agreement between related records: case staffing,
// application job references, and closed jobs with pending applications.
func consistencyPass(data fetched, related *rules.RelatedSet) []model.ValidationIssue {
	var issues []model.ValidationIssue
	staff := related.StaffUserIDs

	for _, entity := range data.entities[model.EntityCase] {
		c, ok := entity.(*model.Case)
		if !ok || staff == nil {
			continue
		}
		for _, lawyer := range c.AssignedLawyerIDs {
			if staff[lawyer] {
				continue
			}
			issue := model.NewIssue(c, model.SeverityWarning, "assignedLawyerIds",
				fmt.Sprintf("assigned lawyer %s is not on staff", lawyer)).
				WithRepair(model.RemoveFromList(c, "assignedLawyerIds", lawyer))
			issue.Rule = DeepCaseAssignedLawyers
			issues = append(issues, issue)
		}
		// An unresolved lead attorney is reported by the base scan.
		if c.LeadAttorneyID != "" && staff[c.LeadAttorneyID] && !slices.Contains(c.AssignedLawyerIDs, c.LeadAttorneyID) {
			issue := model.NewIssue(c, model.SeverityWarning, "assignedLawyerIds",
				fmt.Sprintf("lead attorney %s is not among the assigned lawyers", c.LeadAttorneyID)).
				WithRepair(model.AppendToList(c, "assignedLawyerIds", c.LeadAttorneyID))
			issue.Rule = DeepCaseLeadAssigned
			issues = append(issues, issue)
		}
	}

	jobs := related.JobIDs
	pendingByJob := make(map[string]int)
	for _, entity := range data.entities[model.EntityApplication] {
		a, ok := entity.(*model.Application)
		if !ok {
			continue
		}
		if a.Status == model.ApplicationPending {
			pendingByJob[a.JobID]++
		}
		// Rejected applications may outlive their job posting.
		if jobs == nil || jobs[a.JobID] || a.Status == model.ApplicationRejected {
			continue
		}
		issue := model.NewIssue(a, model.SeverityCritical, "jobId",
			fmt.Sprintf("job %s does not exist", a.JobID)).
			WithRepair(model.SetField(a, "status", model.ApplicationRejected))
		issue.Rule = DeepApplicationJob
		issues = append(issues, issue)
	}

	for _, entity := range data.entities[model.EntityJob] {
		j, ok := entity.(*model.Job)
		if !ok || j.IsOpen || pendingByJob[j.ID] == 0 {
			continue
		}
		issue := model.NewIssue(j, model.SeverityInfo, "isOpen",
			fmt.Sprintf("closed job has %d pending applications", pendingByJob[j.ID]))
		issue.Rule = DeepJobPendingApplication
		issues = append(issues, issue)
	}

	return issues
}

// referentialPass checks references that the base rules do not resolve.
func referentialPass(data fetched, related *rules.RelatedSet) []model.ValidationIssue {
	var issues []model.ValidationIssue

	if cases := related.CaseIDs; cases != nil {
		for _, entity := range data.entities[model.EntityReminder] {
			r, ok := entity.(*model.Reminder)
			if !ok || r.CaseID == "" || cases[r.CaseID] {
				continue
			}
			issue := model.NewIssue(r, model.SeverityWarning, "caseId",
				fmt.Sprintf("reminder references missing case %s", r.CaseID)).
				WithRepair(model.ClearField(r, "caseId"))
			issue.Rule = DeepReminderCase
			issues = append(issues, issue)
		}
	}

	if staff := related.StaffUserIDs; staff != nil {
		for _, entity := range data.entities[model.EntityRetainer] {
			r, ok := entity.(*model.Retainer)
			if !ok || r.LawyerID == "" || staff[r.LawyerID] || r.Status == model.RetainerCancelled {
				continue
			}
			issue := model.NewIssue(r, model.SeverityWarning, "lawyerId",
				fmt.Sprintf("retainer lawyer %s is not on staff", r.LawyerID)).
				WithRepair(model.SetField(r, "status", model.RetainerCancelled))
			issue.Rule = DeepRetainerLawyer
			issues = append(issues, issue)
		}
	}

	return issues
}
