package testutil

import (
	"time"

	"github.com/roach88/firmkeeper/internal/model"
)

// Builders for valid entities. Each returns a record that passes every
// built-in rule on its own; tests then break the field under test.

// Staff returns an active paralegal.
func Staff(id, tenant, userID string) *model.Staff {
	return &model.Staff{
		ID:        id,
		GuildID:   tenant,
		UserID:    userID,
		Role:      "Paralegal",
		Status:    model.StaffActive,
		HiredAt:   Epoch.Add(-720 * time.Hour),
		CreatedAt: Epoch.Add(-720 * time.Hour),
		UpdatedAt: Epoch.Add(-720 * time.Hour),
	}
}

// Case returns an open case with no staffing.
func Case(id, tenant string) *model.Case {
	return &model.Case{
		ID:         id,
		GuildID:    tenant,
		CaseNumber: "AA-" + id,
		ClientID:   "client-" + id,
		Title:      "Matter " + id,
		Status:     model.CaseInProgress,
		CreatedAt:  Epoch.Add(-48 * time.Hour),
		UpdatedAt:  Epoch.Add(-24 * time.Hour),
	}
}

// Job returns an open paralegal posting.
func Job(id, tenant string) *model.Job {
	return &model.Job{
		ID:        id,
		GuildID:   tenant,
		Title:     "Paralegal",
		Role:      "Paralegal",
		IsOpen:    true,
		CreatedAt: Epoch.Add(-72 * time.Hour),
	}
}

// Application returns a pending application to jobID.
func Application(id, tenant, jobID string) *model.Application {
	return &model.Application{
		ID:          id,
		GuildID:     tenant,
		ApplicantID: "applicant-" + id,
		JobID:       jobID,
		Status:      model.ApplicationPending,
		CreatedAt:   Epoch.Add(-24 * time.Hour),
	}
}

// Retainer returns a pending retainer with lawyerID.
func Retainer(id, tenant, lawyerID string) *model.Retainer {
	return &model.Retainer{
		ID:        id,
		GuildID:   tenant,
		ClientID:  "client-" + id,
		LawyerID:  lawyerID,
		Status:    model.RetainerPending,
		CreatedAt: Epoch.Add(-24 * time.Hour),
	}
}

// Feedback returns a firm-wide five star rating.
func Feedback(id, tenant string) *model.Feedback {
	return &model.Feedback{
		ID:          id,
		GuildID:     tenant,
		SubmitterID: "client-" + id,
		Rating:      5,
		CreatedAt:   Epoch.Add(-1 * time.Hour),
	}
}

// Reminder returns an active reminder scheduled a day ahead.
func Reminder(id, tenant string) *model.Reminder {
	return &model.Reminder{
		ID:           id,
		GuildID:      tenant,
		UserID:       "user-" + id,
		Message:      "Follow up",
		ScheduledFor: Epoch.Add(24 * time.Hour),
		IsActive:     true,
		CreatedAt:    Epoch,
	}
}
