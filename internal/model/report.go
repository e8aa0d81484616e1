package model

import "time"

// ScanGap records an entity type that could not be scanned.
type ScanGap struct {
	EntityType EntityType `json:"entityType"`
	Reason     string     `json:"reason"`
}

// IntegrityReport aggregates the issues found by a tenant scan.
type IntegrityReport struct {
	ScanID               string             `json:"scanId"`
	TenantID             string             `json:"tenantId"`
	StartedAt            time.Time          `json:"startedAt"`
	CompletedAt          time.Time          `json:"completedAt"`
	TotalEntitiesScanned int                `json:"totalEntitiesScanned"`
	Issues               []ValidationIssue  `json:"issues"`
	IssuesBySeverity     map[Severity]int   `json:"issuesBySeverity"`
	IssuesByEntityType   map[EntityType]int `json:"issuesByEntityType"`
	RepairableIssues     int                `json:"repairableIssues"`
	Gaps                 []ScanGap          `json:"gaps,omitempty"`
}

// NewReport creates an empty report with zeroed counters.
func NewReport(scanID, tenantID string, startedAt time.Time) *IntegrityReport {
	r := &IntegrityReport{
		ScanID:             scanID,
		TenantID:           tenantID,
		StartedAt:          startedAt,
		Issues:             []ValidationIssue{},
		IssuesBySeverity:   make(map[Severity]int, len(AllSeverities)),
		IssuesByEntityType: make(map[EntityType]int, len(AllEntityTypes)),
	}
	for _, s := range AllSeverities {
		r.IssuesBySeverity[s] = 0
	}
	for _, t := range AllEntityTypes {
		r.IssuesByEntityType[t] = 0
	}
	return r
}

// Add appends issues and updates the per-type counter.
// Severity and repairable counters are computed by Recount.
func (r *IntegrityReport) Add(issues ...ValidationIssue) {
	for _, issue := range issues {
		r.Issues = append(r.Issues, issue)
		r.IssuesByEntityType[issue.EntityType]++
	}
}

// Recount recomputes the severity and repairable counters from Issues.
func (r *IntegrityReport) Recount() {
	for _, s := range AllSeverities {
		r.IssuesBySeverity[s] = 0
	}
	r.RepairableIssues = 0
	for _, issue := range r.Issues {
		r.IssuesBySeverity[issue.Severity]++
		if issue.Repairable() {
			r.RepairableIssues++
		}
	}
}

// Complete reports whether every entity type was scanned.
func (r *IntegrityReport) Complete() bool {
	return len(r.Gaps) == 0
}

// FailedRepair pairs an issue with the error its repair produced.
type FailedRepair struct {
	Issue ValidationIssue `json:"issue"`
	Error string          `json:"error"`
}

// RepairResult summarizes a repair run.
type RepairResult struct {
	TotalIssues    int               `json:"totalIssues"`
	Repaired       int               `json:"repaired"`
	Failed         int               `json:"failed"`
	Skipped        int               `json:"skipped"`
	DryRun         bool              `json:"dryRun"`
	RepairedIssues []ValidationIssue `json:"repairedIssues"`
	FailedRepairs  []FailedRepair    `json:"failedRepairs"`
}
