package cli

import (
	"context"

	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/firmkeeper/internal/integrity"
	"github.com/roach88/firmkeeper/internal/testutil"
)

const fixturePath = "testdata/guild.yaml"

// execute runs the CLI with a fixed clock and sequential ids, returning
// stdout. Logs are discarded.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	opts := &RootOptions{
		Clock: func() time.Time { return testutil.Epoch },
		IDs:   integrity.NewSequentialGenerator("id"),
	}
	root := newRootCommand(opts)
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// seededDB returns a database seeded from the test fixture.
func seededDB(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "firm.db")
	out, err := execute(t, "seed", "--db", db, fixturePath)
	require.NoError(t, err)
	require.Contains(t, out, "Seeded 5 entities for tenant guild-1")
	return db
}

func assertGolden(t *testing.T, name, got string) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(got))
}

func TestRules_Text(t *testing.T) {
	out, err := execute(t, "rules")
	require.NoError(t, err)
	assertGolden(t, "rules", out)
}

func TestRules_TypeFilter(t *testing.T) {
	out, err := execute(t, "rules", "--type", "job")
	require.NoError(t, err)
	assert.Equal(t, "Job\n  1. job-title-present (priority 100)\n  2. job-role-valid (priority 90)\n", out)
}

func TestRules_JSON(t *testing.T) {
	out, err := execute(t, "rules", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   rulesView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Data.Rules, 19)
	assert.Empty(t, resp.Data.Warnings)
}

func TestRules_BadType(t *testing.T) {
	_, err := execute(t, "rules", "--type", "lawsuit")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSeed_BadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("members: [u]\n"), 0o644))

	out, err := execute(t, "seed", "--db", filepath.Join(t.TempDir(), "firm.db"), path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E021]")
}

func TestScan_Text(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "scan", "--db", db, "--fixture", fixturePath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assertGolden(t, "scan", out)
}

func TestScan_JSON(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "scan", "--db", db, "--tenant", "guild-1", "--format", "json")
	require.Error(t, err)

	var resp struct {
		Data struct {
			ScanID           string         `json:"scanId"`
			Issues           []any          `json:"issues"`
			IssuesBySeverity map[string]int `json:"issuesBySeverity"`
			RepairableIssues int            `json:"repairableIssues"`
			Deep             bool           `json:"deep"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "id-1", resp.Data.ScanID)
	// Without a fixture there is no directory, so the client sweep is skipped.
	assert.Len(t, resp.Data.Issues, 4)
	assert.Equal(t, map[string]int{"critical": 2, "warning": 1, "info": 1}, resp.Data.IssuesBySeverity)
	assert.Equal(t, 4, resp.Data.RepairableIssues)
	assert.False(t, resp.Data.Deep)
}

func TestScan_Lenient(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "scan", "--db", db, "--fixture", fixturePath, "--lenient")
	require.Error(t, err)
	assert.Contains(t, out, "Issues: 4 (critical 2, warning 2, info 0), repairable 3")
	assert.NotContains(t, out, "[info]")
}

func TestScan_Deep(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "scan", "--db", db, "--fixture", fixturePath, "--deep")
	require.Error(t, err)
	assert.Contains(t, out, "Deep check id-1 for tenant guild-1")
}

func TestScan_CommandErrors(t *testing.T) {
	db := seededDB(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing database", []string{"scan", "--db", filepath.Join(t.TempDir(), "absent.db"), "--tenant", "guild-1"}},
		{"missing tenant", []string{"scan", "--db", db}},
		{"missing fixture", []string{"scan", "--db", db, "--fixture", "testdata/absent.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestRepair_ThenAudit(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "repair", "--db", db, "--fixture", fixturePath)
	require.NoError(t, err)
	assertGolden(t, "repair", out)

	out, err = execute(t, "audit", "--db", db, "--tenant", "guild-1")
	require.NoError(t, err)
	assertGolden(t, "audit", out)

	// Only the non-repairable client issue survives.
	out, err = execute(t, "scan", "--db", db, "--fixture", fixturePath)
	require.Error(t, err)
	assert.Contains(t, out, "Issues: 1 (critical 0, warning 1, info 0), repairable 0")
	assert.Contains(t, out, "sweep-case-client")

	out, err = execute(t, "scan", "--db", db, "--tenant", "guild-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Entities scanned: 4\nIssues: 0")
}

func TestRepair_DryRun(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "repair", "--db", db, "--tenant", "guild-1", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Repair (dry run): 4 issues, 4 repaired, 0 failed, 0 skipped\n")

	out, err = execute(t, "audit", "--db", db, "--tenant", "guild-1")
	require.NoError(t, err)
	assert.Equal(t, "Audit trail for tenant guild-1: 0 records\n", out)

	out, err = execute(t, "scan", "--db", db, "--tenant", "guild-1")
	require.Error(t, err)
	assert.Contains(t, out, "Issues: 4 ")
}

func TestRepair_Smart(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "repair", "--db", db, "--fixture", fixturePath, "--smart", "--max-retries", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Smart repair: 5 issues, 4 repaired, 0 failed, 1 skipped\n")

	out, err = execute(t, "audit", "--db", db, "--tenant", "guild-1", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data auditView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Records, 4)
	for _, rec := range resp.Data.Records {
		require.NotNil(t, rec.Details.Metadata.RetryCount)
		assert.Equal(t, 0, *rec.Details.Metadata.RetryCount, "first attempt succeeds")
		assert.Equal(t, "SYSTEM", rec.ActorID)
	}
}

func TestRepair_NegativeRetries(t *testing.T) {
	_, err := execute(t, "repair", "--tenant", "guild-1", "--smart", "--max-retries", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidate(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, "validate", "--db", db, "--tenant", "guild-1", "--type", "feedback", "--id", "f-1", "--operation", "update")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "Feedback f-1 (before update)\nIssues: 1\n"+
		"- [critical] Feedback f-1 rating: rating 9 outside 1..5 (feedback-rating-range, repairable)\n", out)

	out, err = execute(t, "validate", "--db", db, "--tenant", "guild-1", "--type", "staff", "--id", "s-partner")
	require.NoError(t, err)
	assert.Equal(t, "Staff s-partner\nIssues: 0\n", out)
}

func TestValidate_Errors(t *testing.T) {
	db := seededDB(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown id", []string{"--tenant", "guild-1", "--type", "case", "--id", "c-404"}},
		{"other tenant", []string{"--tenant", "guild-2", "--type", "case", "--id", "c-1"}},
		{"bad type", []string{"--tenant", "guild-1", "--type", "lawsuit", "--id", "c-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"validate", "--db", db}, tt.args...)
			_, err := execute(t, args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestConfigFile(t *testing.T) {
	db := seededDB(t)
	dir := t.TempDir()

	good := filepath.Join(dir, "good.cue")
	require.NoError(t, os.WriteFile(good, []byte(`database: "`+db+`"`+"\n"+`logLevel: "error"`+"\n"), 0o644))
	out, err := execute(t, "scan", "--config", good, "--tenant", "guild-1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Scan id-1 for tenant guild-1")

	bad := filepath.Join(dir, "bad.cue")
	require.NoError(t, os.WriteFile(bad, []byte(`maxConcurrent: 0`), 0o644))
	_, err = execute(t, "scan", "--config", bad, "--db", db, "--tenant", "guild-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}
