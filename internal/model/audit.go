package model

import "time"

// Audit record constants for engine-initiated repairs.
const (
	AuditActionSystemRepair = "system_repair"
	AuditActorSystem        = "SYSTEM"
)

// Repair outcomes recorded in audit metadata.
const (
	OutcomeRepaired = "repaired"
	OutcomeFailed   = "failed"
)

// AuditRecord is one entry of the audit trail.
type AuditRecord struct {
	ID        string       `json:"id"`
	TenantID  string       `json:"tenantId"`
	Action    string       `json:"action"`
	ActorID   string       `json:"actorId"`
	TargetID  string       `json:"targetId"`
	Details   AuditDetails `json:"details"`
	Timestamp time.Time    `json:"timestamp"`
}

// AuditDetails captures the intent of a repair.
type AuditDetails struct {
	Before   string        `json:"before"`
	After    string        `json:"after"`
	Reason   string        `json:"reason"`
	Metadata AuditMetadata `json:"metadata"`
}

// AuditMetadata carries issue context. RetryCount is set only for smart
// repairs and holds the zero-based attempt index of the final attempt.
type AuditMetadata struct {
	Severity   Severity   `json:"severity"`
	Field      string     `json:"field,omitempty"`
	EntityType EntityType `json:"entityType"`
	Rule       string     `json:"rule,omitempty"`
	Outcome    string     `json:"outcome"`
	Error      string     `json:"error,omitempty"`
	RetryCount *int       `json:"retryCount,omitempty"`
}
