package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/firmkeeper/internal/model"
)

// Builtin returns the built-in rules, bound to repos for reference lookups.
func Builtin(repos model.Repositories) []Rule {
	l := NewLookups(repos)

	return []Rule{
		{Name: "staff-status-valid", EntityType: model.EntityStaff, Priority: 100, Validate: typed(staffStatusValid)},
		{Name: "staff-role-valid", EntityType: model.EntityStaff, Priority: 90, Validate: typed(staffRoleValid)},
		{Name: "staff-promotion-history", EntityType: model.EntityStaff, Priority: 50,
			Dependencies: []string{"staff-role-valid"}, Validate: typed(staffPromotionHistory)},
		{Name: "staff-duplicate-user", EntityType: model.EntityStaff, Priority: 40, Validate: typed(l.staffDuplicateUser)},

		{Name: "case-status-valid", EntityType: model.EntityCase, Priority: 100, Validate: typed(caseStatusValid)},
		{Name: "case-lead-attorney-exists", EntityType: model.EntityCase, Priority: 90, Validate: typed(l.caseLeadAttorneyExists)},
		{Name: "case-temporal-consistency", EntityType: model.EntityCase, Priority: 80, Validate: typed(caseTemporalConsistency)},
		{Name: "case-closure-fields", EntityType: model.EntityCase, Priority: 70,
			Dependencies: []string{"case-status-valid"}, Validate: typed(caseClosureFields)},
		{Name: "case-channel-exists", EntityType: model.EntityCase, Priority: 30, Validate: typed(caseChannelExists)},

		{Name: "application-status-valid", EntityType: model.EntityApplication, Priority: 100, Validate: typed(applicationStatusValid)},
		{Name: "application-review-fields", EntityType: model.EntityApplication, Priority: 60, Validate: typed(applicationReviewFields)},

		{Name: "job-title-present", EntityType: model.EntityJob, Priority: 100, Validate: typed(jobTitlePresent)},
		{Name: "job-role-valid", EntityType: model.EntityJob, Priority: 90, Validate: typed(jobRoleValid)},

		{Name: "retainer-status-valid", EntityType: model.EntityRetainer, Priority: 100, Validate: typed(retainerStatusValid)},
		{Name: "retainer-signature", EntityType: model.EntityRetainer, Priority: 90, Validate: typed(retainerSignature)},

		{Name: "feedback-rating-range", EntityType: model.EntityFeedback, Priority: 100, Validate: typed(feedbackRatingRange)},
		{Name: "feedback-target-exists", EntityType: model.EntityFeedback, Priority: 80, Validate: typed(l.feedbackTargetExists)},

		{Name: "reminder-schedule", EntityType: model.EntityReminder, Priority: 100, Validate: typed(reminderSchedule)},
		{Name: "reminder-message-present", EntityType: model.EntityReminder, Priority: 50, Validate: typed(reminderMessagePresent)},
	}
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

func staffStatusValid(_ context.Context, s *model.Staff, _ *ValidationContext) ([]model.ValidationIssue, error) {
	if oneOf(s.Status, model.StaffActive, model.StaffInactive, model.StaffTerminated) {
		return nil, nil
	}
	issue := model.NewIssue(s, model.SeverityCritical, "status",
		fmt.Sprintf("invalid staff status %q", s.Status)).
		WithRepair(model.SetField(s, "status", model.StaffInactive))
	return []model.ValidationIssue{issue}, nil
}

func staffRoleValid(_ context.Context, s *model.Staff, _ *ValidationContext) ([]model.ValidationIssue, error) {
	if model.IsStaffRole(s.Role) {
		return nil, nil
	}
	return []model.ValidationIssue{
		model.NewIssue(s, model.SeverityCritical, "role", fmt.Sprintf("role %q is not part of the firm hierarchy", s.Role)),
	}, nil
}

func staffPromotionHistory(_ context.Context, s *model.Staff, _ *ValidationContext) ([]model.ValidationIssue, error) {
	var issues []model.ValidationIssue
	for i := 1; i < len(s.PromotionHistory); i++ {
		if s.PromotionHistory[i].PromotedAt.Before(s.PromotionHistory[i-1].PromotedAt) {
			issues = append(issues, model.NewIssue(s, model.SeverityInfo, "promotionHistory",
				fmt.Sprintf("promotion record %d predates record %d", i, i-1)))
		}
	}
	if n := len(s.PromotionHistory); n > 0 && s.Status == model.StaffActive && s.PromotionHistory[n-1].ToRole != s.Role {
		issues = append(issues, model.NewIssue(s, model.SeverityInfo, "promotionHistory",
			fmt.Sprintf("latest promotion record ends at %q but current role is %q", s.PromotionHistory[n-1].ToRole, s.Role)))
	}
	return issues, nil
}

func (l Lookups) staffDuplicateUser(ctx context.Context, s *model.Staff, _ *ValidationContext) ([]model.ValidationIssue, error) {
	if s.Status == model.StaffTerminated || s.UserID == "" {
		return nil, nil
	}
	repo, err := l.repo(model.EntityStaff)
	if err != nil {
		return nil, err
	}
	found, err := repo.Find(ctx, s.GuildID, model.Filter{"userId": s.UserID})
	if err != nil {
		return nil, fmt.Errorf("find staff by user %s: %w", s.UserID, err)
	}
	for _, e := range found {
		other, ok := e.(*model.Staff)
		if !ok || other.ID == s.ID || other.Status == model.StaffTerminated {
			continue
		}
		return []model.ValidationIssue{
			model.NewIssue(s, model.SeverityWarning, "userId",
				fmt.Sprintf("user %s also has staff record %s", s.UserID, other.ID)),
		}, nil
	}
	return nil, nil
}

func caseStatusValid(_ context.Context, c *model.Case, _ *ValidationContext) ([]model.ValidationIssue, error) {
	if oneOf(c.Status, model.CasePending, model.CaseInProgress, model.CaseClosed) {
		return nil, nil
	}
	issue := model.NewIssue(c, model.SeverityCritical, "status",
		fmt.Sprintf("invalid case status %q", c.Status)).
		WithRepair(model.SetField(c, "status", model.CasePending))
	return []model.ValidationIssue{issue}, nil
}

func (l Lookups) caseLeadAttorneyExists(ctx context.Context, c *model.Case, vctx *ValidationContext) ([]model.ValidationIssue, error) {
	if c.LeadAttorneyID == "" {
		return nil, nil
	}
	ok, err := l.StaffExists(ctx, vctx, c.GuildID, c.LeadAttorneyID)
	if err != nil || ok {
		return nil, err
	}
	issue := model.NewIssue(c, model.SeverityCritical, "leadAttorneyId",
		fmt.Sprintf("lead attorney %s not found", c.LeadAttorneyID)).
		WithRepair(model.ClearField(c, "leadAttorneyId"))
	return []model.ValidationIssue{issue}, nil
}

func caseTemporalConsistency(_ context.Context, c *model.Case, _ *ValidationContext) ([]model.ValidationIssue, error) {
	if c.ClosedAt == nil || !c.ClosedAt.Before(c.CreatedAt) {
		return nil, nil
	}
	issue := model.NewIssue(c, model.SeverityCritical, "closedAt", "case closed before it was created").
		WithRepair(model.ClearField(c, "closedAt"))
	return []model.ValidationIssue{issue}, nil
}

func caseClosureFields(_ context.Context, c *model.Case, _ *ValidationContext) ([]model.ValidationIssue, error) {
	if c.Status != model.CaseClosed || c.ClosedAt != nil {
		return nil, nil
	}
	closedAt := c.UpdatedAt
	if closedAt.IsZero() {
		closedAt = c.CreatedAt
	}
	issue := model.NewIssue(c, model.SeverityWarning, "closedAt", "closed case has no closure timestamp").
		WithRepair(model.SetField(c, "closedAt", closedAt))
	return []model.ValidationIssue{issue}, nil
}

func caseChannelExists(ctx context.Context, c *model.Case, vctx *ValidationContext) ([]model.ValidationIssue, error) {
	if c.ChannelID == "" || vctx == nil || vctx.Directory == nil {
		return nil, nil
	}
	ok, err := vctx.Directory.ChannelExists(ctx, c.GuildID, c.ChannelID)
	if err != nil || ok {
		return nil, err
	}
	issue := model.NewIssue(c, model.SeverityWarning, "channelId",
		fmt.Sprintf("case channel %s no longer exists", c.ChannelID)).
		WithRepair(model.ClearField(c, "channelId"))
	return []model.ValidationIssue{issue}, nil
}

func applicationStatusValid(_ context.Context, a *model.Application, _ *ValidationContext) ([]model.ValidationIssue, error) {
	if oneOf(a.Status, model.ApplicationPending, model.ApplicationAccepted, model.ApplicationRejected) {
		return nil, nil
	}
	issue := model.NewIssue(a, model.SeverityCritical, "status",
		fmt.Sprintf("invalid application status %q", a.Status)).
		WithRepair(model.SetField(a, "status", model.ApplicationPending))
	return []model.ValidationIssue{issue}, nil
}

func applicationReviewFields(_ context.Context, a *model.Application, _ *ValidationContext) ([]model.ValidationIssue, error) {
	if a.Status == model.ApplicationPending || a.ReviewedBy != "" {
		return nil, nil
	}
	if !oneOf(a.Status, model.ApplicationAccepted, model.ApplicationRejected) {
		return nil, nil
	}
	issue := model.NewIssue(a, model.SeverityWarning, "reviewedBy",
		fmt.Sprintf("application %s without a reviewer", a.Status)).
		WithRepair(model.SetField(a, "status", model.ApplicationPending))
	return []model.ValidationIssue{issue}, nil
}

func jobTitlePresent(_ context.Context, j *model.Job, _ *ValidationContext) ([]model.ValidationIssue, error) {
	if strings.TrimSpace(j.Title) != "" {
		return nil, nil
	}
	return []model.ValidationIssue{model.NewIssue(j, model.SeverityWarning, "title", "job has no title")}, nil
}

func jobRoleValid(_ context.Context, j *model.Job, _ *ValidationContext) ([]model.ValidationIssue, error) {
	if model.IsStaffRole(j.Role) {
		return nil, nil
	}
	issue := model.NewIssue(j, model.SeverityCritical, "role",
		fmt.Sprintf("job role %q is not part of the firm hierarchy", j.Role))
	if j.IsOpen {
		issue = issue.WithRepair(model.SetField(j, "isOpen", false))
	}
	return []model.ValidationIssue{issue}, nil
}

func retainerStatusValid(_ context.Context, r *model.Retainer, _ *ValidationContext) ([]model.ValidationIssue, error) {
	if oneOf(r.Status, model.RetainerPending, model.RetainerSigned, model.RetainerCancelled) {
		return nil, nil
	}
	issue := model.NewIssue(r, model.SeverityCritical, "status",
		fmt.Sprintf("invalid retainer status %q", r.Status)).
		WithRepair(model.SetField(r, "status", model.RetainerPending))
	return []model.ValidationIssue{issue}, nil
}

func retainerSignature(_ context.Context, r *model.Retainer, _ *ValidationContext) ([]model.ValidationIssue, error) {
	if r.Status != model.RetainerSigned {
		return nil, nil
	}
	field := ""
	switch {
	case r.DigitalSignature == "":
		field = "digitalSignature"
	case r.SignedAt == nil:
		field = "signedAt"
	default:
		return nil, nil
	}
	issue := model.NewIssue(r, model.SeverityCritical, field, "signed retainer is missing "+field).
		WithRepair(model.SetField(r, "status", model.RetainerPending))
	return []model.ValidationIssue{issue}, nil
}

func feedbackRatingRange(_ context.Context, f *model.Feedback, _ *ValidationContext) ([]model.ValidationIssue, error) {
	if f.Rating >= model.MinRating && f.Rating <= model.MaxRating {
		return nil, nil
	}
	clamped := min(max(f.Rating, model.MinRating), model.MaxRating)
	issue := model.NewIssue(f, model.SeverityCritical, "rating",
		fmt.Sprintf("rating %d outside %d..%d", f.Rating, model.MinRating, model.MaxRating)).
		WithRepair(model.SetField(f, "rating", clamped))
	return []model.ValidationIssue{issue}, nil
}

func (l Lookups) feedbackTargetExists(ctx context.Context, f *model.Feedback, vctx *ValidationContext) ([]model.ValidationIssue, error) {
	if f.TargetStaffID == "" {
		return nil, nil
	}
	ok, err := l.StaffExists(ctx, vctx, f.GuildID, f.TargetStaffID)
	if err != nil || ok {
		return nil, err
	}
	issue := model.NewIssue(f, model.SeverityWarning, "targetStaffId",
		fmt.Sprintf("feedback target %s is not on staff", f.TargetStaffID)).
		WithRepair(model.ClearField(f, "targetStaffId"))
	return []model.ValidationIssue{issue}, nil
}

func reminderSchedule(_ context.Context, r *model.Reminder, _ *ValidationContext) ([]model.ValidationIssue, error) {
	if !r.IsActive || !r.ScheduledFor.Before(r.CreatedAt) {
		return nil, nil
	}
	issue := model.NewIssue(r, model.SeverityWarning, "scheduledFor", "reminder scheduled before it was created").
		WithRepair(model.SetField(r, "isActive", false))
	return []model.ValidationIssue{issue}, nil
}

func reminderMessagePresent(_ context.Context, r *model.Reminder, _ *ValidationContext) ([]model.ValidationIssue, error) {
	if strings.TrimSpace(r.Message) != "" {
		return nil, nil
	}
	issue := model.NewIssue(r, model.SeverityInfo, "message", "reminder has no message").
		WithRepair(model.DeleteEntity(r))
	return []model.ValidationIssue{issue}, nil
}
