package model

import "fmt"

// EntityType identifies one of the firm record kinds.
type EntityType string

const (
	EntityStaff       EntityType = "staff"
	EntityCase        EntityType = "case"
	EntityApplication EntityType = "application"
	EntityJob         EntityType = "job"
	EntityRetainer    EntityType = "retainer"
	EntityFeedback    EntityType = "feedback"
	EntityReminder    EntityType = "reminder"
)

// AllEntityTypes lists every entity type in scan order.
var AllEntityTypes = []EntityType{
	EntityStaff,
	EntityCase,
	EntityApplication,
	EntityJob,
	EntityRetainer,
	EntityFeedback,
	EntityReminder,
}

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	for _, known := range AllEntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseEntityType converts a string to an EntityType.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown entity type %q", s)
	}
	return t, nil
}

// Severity classifies a validation issue.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// AllSeverities lists severities in repair precedence order.
var AllSeverities = []Severity{SeverityCritical, SeverityWarning, SeverityInfo}

// Rank returns the repair precedence of s. Lower ranks are repaired first.
// Unknown severities sort last.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	default:
		return 3
	}
}

// ValidationLevel controls how much of a validation result is returned.
type ValidationLevel string

const (
	// LevelStrict returns every issue.
	LevelStrict ValidationLevel = "strict"
	// LevelLenient drops informational issues from results.
	LevelLenient ValidationLevel = "lenient"
)
