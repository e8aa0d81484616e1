package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Entity is implemented by every record the engine validates.
type Entity interface {
	EntityType() EntityType
	EntityID() string
	Tenant() string
}

// Staff statuses.
const (
	StaffActive     = "active"
	StaffInactive   = "inactive"
	StaffTerminated = "terminated"
)

// StaffRoles is the firm hierarchy, most senior first.
var StaffRoles = []string{
	"Managing Partner",
	"Senior Partner",
	"Junior Partner",
	"Senior Associate",
	"Junior Associate",
	"Paralegal",
}

// IsStaffRole reports whether role is part of the firm hierarchy.
func IsStaffRole(role string) bool {
	for _, r := range StaffRoles {
		if r == role {
			return true
		}
	}
	return false
}

// PromotionRecord is one entry of a staff member's role history.
type PromotionRecord struct {
	FromRole   string    `json:"fromRole"`
	ToRole     string    `json:"toRole"`
	PromotedBy string    `json:"promotedBy"`
	PromotedAt time.Time `json:"promotedAt"`
	ActionType string    `json:"actionType"`
}

// Staff is an employee of the firm.
type Staff struct {
	ID               string            `json:"id"`
	GuildID          string            `json:"guildId"`
	UserID           string            `json:"userId"`
	Username         string            `json:"username,omitempty"`
	Role             string            `json:"role"`
	Status           string            `json:"status"`
	HiredAt          time.Time         `json:"hiredAt"`
	HiredBy          string            `json:"hiredBy,omitempty"`
	PromotionHistory []PromotionRecord `json:"promotionHistory,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

func (s *Staff) EntityType() EntityType { return EntityStaff }
func (s *Staff) EntityID() string       { return s.ID }
func (s *Staff) Tenant() string         { return s.GuildID }

// Case statuses.
const (
	CasePending    = "pending"
	CaseInProgress = "in-progress"
	CaseClosed     = "closed"
)

// Case is a client matter handled by the firm.
type Case struct {
	ID                string     `json:"id"`
	GuildID           string     `json:"guildId"`
	CaseNumber        string     `json:"caseNumber"`
	ClientID          string     `json:"clientId"`
	ClientUsername    string     `json:"clientUsername,omitempty"`
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	Status            string     `json:"status"`
	Priority          string     `json:"priority,omitempty"`
	LeadAttorneyID    string     `json:"leadAttorneyId,omitempty"`
	AssignedLawyerIDs []string   `json:"assignedLawyerIds,omitempty"`
	ChannelID         string     `json:"channelId,omitempty"`
	Result            string     `json:"result,omitempty"`
	ClosedBy          string     `json:"closedBy,omitempty"`
	ClosedAt          *time.Time `json:"closedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func (c *Case) EntityType() EntityType { return EntityCase }
func (c *Case) EntityID() string       { return c.ID }
func (c *Case) Tenant() string         { return c.GuildID }

// Application statuses.
const (
	ApplicationPending  = "pending"
	ApplicationAccepted = "accepted"
	ApplicationRejected = "rejected"
)

// Application is a candidate's application to a job posting.
type Application struct {
	ID           string     `json:"id"`
	GuildID      string     `json:"guildId"`
	ApplicantID  string     `json:"applicantId"`
	JobID        string     `json:"jobId"`
	Status       string     `json:"status"`
	ReviewedBy   string     `json:"reviewedBy,omitempty"`
	ReviewedAt   *time.Time `json:"reviewedAt,omitempty"`
	ReviewReason string     `json:"reviewReason,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func (a *Application) EntityType() EntityType { return EntityApplication }
func (a *Application) EntityID() string       { return a.ID }
func (a *Application) Tenant() string         { return a.GuildID }

// Job is an open or closed position.
type Job struct {
	ID        string    `json:"id"`
	GuildID   string    `json:"guildId"`
	Title     string    `json:"title"`
	Role      string    `json:"role"`
	IsOpen    bool      `json:"isOpen"`
	PostedBy  string    `json:"postedBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (j *Job) EntityType() EntityType { return EntityJob }
func (j *Job) EntityID() string       { return j.ID }
func (j *Job) Tenant() string         { return j.GuildID }

// Retainer statuses.
const (
	RetainerPending   = "pending"
	RetainerSigned    = "signed"
	RetainerCancelled = "cancelled"
)

// Retainer is an agreement between a client and a lawyer.
type Retainer struct {
	ID               string     `json:"id"`
	GuildID          string     `json:"guildId"`
	ClientID         string     `json:"clientId"`
	LawyerID         string     `json:"lawyerId"`
	Status           string     `json:"status"`
	DigitalSignature string     `json:"digitalSignature,omitempty"`
	SignedAt         *time.Time `json:"signedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func (r *Retainer) EntityType() EntityType { return EntityRetainer }
func (r *Retainer) EntityID() string       { return r.ID }
func (r *Retainer) Tenant() string         { return r.GuildID }

// Feedback rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// Feedback is a client rating of the firm or of one staff member.
// An empty TargetStaffID means the feedback addresses the whole firm.
type Feedback struct {
	ID            string    `json:"id"`
	GuildID       string    `json:"guildId"`
	SubmitterID   string    `json:"submitterId"`
	TargetStaffID string    `json:"targetStaffId,omitempty"`
	Rating        int       `json:"rating"`
	Comment       string    `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (f *Feedback) EntityType() EntityType { return EntityFeedback }
func (f *Feedback) EntityID() string       { return f.ID }
func (f *Feedback) Tenant() string         { return f.GuildID }

// Reminder is a scheduled message, optionally tied to a case.
type Reminder struct {
	ID           string    `json:"id"`
	GuildID      string    `json:"guildId"`
	UserID       string    `json:"userId"`
	ChannelID    string    `json:"channelId,omitempty"`
	CaseID       string    `json:"caseId,omitempty"`
	Message      string    `json:"message"`
	ScheduledFor time.Time `json:"scheduledFor"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (r *Reminder) EntityType() EntityType { return EntityReminder }
func (r *Reminder) EntityID() string       { return r.ID }
func (r *Reminder) Tenant() string         { return r.GuildID }

// NewEntity allocates an empty entity of type t.
func NewEntity(t EntityType) (Entity, error) {
	switch t {
	case EntityStaff:
		return &Staff{}, nil
	case EntityCase:
		return &Case{}, nil
	case EntityApplication:
		return &Application{}, nil
	case EntityJob:
		return &Job{}, nil
	case EntityRetainer:
		return &Retainer{}, nil
	case EntityFeedback:
		return &Feedback{}, nil
	case EntityReminder:
		return &Reminder{}, nil
	default:
		return nil, fmt.Errorf("unknown entity type %q", t)
	}
}

// DecodeEntity decodes a JSON document into an entity of type t.
func DecodeEntity(t EntityType, data []byte) (Entity, error) {
	e, err := NewEntity(t)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	return e, nil
}

// Key returns the "type:id" key identifying an entity across types.
func Key(t EntityType, id string) string {
	return string(t) + ":" + id
}

// KeyOf returns Key for an entity.
func KeyOf(e Entity) string {
	return Key(e.EntityType(), e.EntityID())
}
