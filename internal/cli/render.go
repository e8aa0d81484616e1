package cli

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/firmkeeper/internal/model"
	"github.com/roach88/firmkeeper/internal/rules"
)

// Views pair a JSON payload with its text rendering.

func typeTitle(t model.EntityType) string {
	return cases.Title(language.English).String(string(t))
}

func writeIssue(b *strings.Builder, issue model.ValidationIssue) {
	fmt.Fprintf(b, "- [%s] %s %s", issue.Severity, typeTitle(issue.EntityType), issue.EntityID)
	if issue.Field != "" {
		fmt.Fprintf(b, " %s", issue.Field)
	}
	fmt.Fprintf(b, ": %s", issue.Message)

	var tags []string
	if issue.Rule != "" {
		tags = append(tags, issue.Rule)
	}
	if issue.Repairable() {
		tags = append(tags, "repairable")
	}
	if len(tags) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(tags, ", "))
	}
	b.WriteString("\n")
}

type reportView struct {
	*model.IntegrityReport
	Deep bool `json:"deep"`
}

func (v reportView) String() string {
	var b strings.Builder
	kind := "Scan"
	if v.Deep {
		kind = "Deep check"
	}
	fmt.Fprintf(&b, "%s %s for tenant %s\n", kind, v.ScanID, v.TenantID)
	fmt.Fprintf(&b, "Entities scanned: %d\n", v.TotalEntitiesScanned)
	fmt.Fprintf(&b, "Issues: %d (critical %d, warning %d, info %d), repairable %d\n",
		len(v.Issues),
		v.IssuesBySeverity[model.SeverityCritical],
		v.IssuesBySeverity[model.SeverityWarning],
		v.IssuesBySeverity[model.SeverityInfo],
		v.RepairableIssues)
	for _, gap := range v.Gaps {
		fmt.Fprintf(&b, "Not scanned: %s (%s)\n", typeTitle(gap.EntityType), gap.Reason)
	}
	for _, issue := range v.Issues {
		writeIssue(&b, issue)
	}
	return b.String()
}

type repairView struct {
	*model.RepairResult
	Smart bool `json:"smart"`
}

func (v repairView) String() string {
	var b strings.Builder
	kind := "Repair"
	if v.Smart {
		kind = "Smart repair"
	}
	if v.DryRun {
		kind += " (dry run)"
	}
	fmt.Fprintf(&b, "%s: %d issues, %d repaired, %d failed, %d skipped\n",
		kind, v.TotalIssues, v.Repaired, v.Failed, v.Skipped)
	for _, issue := range v.RepairedIssues {
		writeIssue(&b, issue)
	}
	for _, failed := range v.FailedRepairs {
		writeIssue(&b, failed.Issue)
		fmt.Fprintf(&b, "  failed: %s\n", failed.Error)
	}
	return b.String()
}

type issuesView struct {
	EntityType model.EntityType        `json:"entityType"`
	EntityID   string                  `json:"entityId"`
	Operation  string                  `json:"operation,omitempty"`
	Issues     []model.ValidationIssue `json:"issues"`
}

func (v issuesView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", typeTitle(v.EntityType), v.EntityID)
	if v.Operation != "" {
		fmt.Fprintf(&b, " (before %s)", v.Operation)
	}
	fmt.Fprintf(&b, "\nIssues: %d\n", len(v.Issues))
	for _, issue := range v.Issues {
		writeIssue(&b, issue)
	}
	return b.String()
}

type ruleView struct {
	Name         string           `json:"name"`
	EntityType   model.EntityType `json:"entityType"`
	Priority     int              `json:"priority"`
	Dependencies []string         `json:"dependencies,omitempty"`
}

type rulesView struct {
	Rules    []ruleView                `json:"rules"`
	Warnings []rules.DependencyWarning `json:"warnings"`
}

func newRulesView(ordered []rules.Rule, warnings []rules.DependencyWarning) rulesView {
	v := rulesView{Rules: make([]ruleView, 0, len(ordered)), Warnings: warnings}
	for _, r := range ordered {
		v.Rules = append(v.Rules, ruleView{
			Name:         r.Name,
			EntityType:   r.EntityType,
			Priority:     r.Priority,
			Dependencies: r.Dependencies,
		})
	}
	return v
}

func (v rulesView) String() string {
	var b strings.Builder
	var current model.EntityType
	n := 0
	for _, r := range v.Rules {
		if r.EntityType != current {
			current, n = r.EntityType, 0
			fmt.Fprintf(&b, "%s\n", typeTitle(current))
		}
		n++
		fmt.Fprintf(&b, "  %d. %s (priority %d", n, r.Name, r.Priority)
		if len(r.Dependencies) > 0 {
			fmt.Fprintf(&b, ", after %s", strings.Join(r.Dependencies, ", "))
		}
		b.WriteString(")\n")
	}
	for _, w := range v.Warnings {
		fmt.Fprintf(&b, "%s: %s\n", w.Level, w.Message)
	}
	return b.String()
}

type auditView struct {
	TenantID string              `json:"tenantId"`
	Records  []model.AuditRecord `json:"records"`
}

func (v auditView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Audit trail for tenant %s: %d records\n", v.TenantID, len(v.Records))
	for _, rec := range v.Records {
		meta := rec.Details.Metadata
		target := typeTitle(meta.EntityType) + " " + rec.TargetID
		if meta.Field != "" {
			target += " " + meta.Field
		}
		fmt.Fprintf(&b, "- %s %s %s: %s -> %s",
			rec.Timestamp.UTC().Format(time.RFC3339), meta.Outcome, target,
			orUnset(rec.Details.Before), orUnset(rec.Details.After))
		if meta.RetryCount != nil {
			fmt.Fprintf(&b, " (attempt %d)", *meta.RetryCount+1)
		}
		b.WriteString("\n")
	}
	return b.String()
}

type seedView struct {
	TenantID string `json:"tenantId"`
	Database string `json:"database"`
	Entities int    `json:"entities"`
}

func (v seedView) String() string {
	return fmt.Sprintf("Seeded %d entities for tenant %s into %s\n", v.Entities, v.TenantID, v.Database)
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}
