package integrity

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/firmkeeper/internal/model"
	"github.com/roach88/firmkeeper/internal/rules"
	"github.com/roach88/firmkeeper/internal/testutil"
)

// countingRule returns a case rule that counts its calls and reports one
// warning per entity.
func countingRule(name string, calls *atomic.Int32) rules.Rule {
	return rules.Rule{
		Name:       name,
		EntityType: model.EntityCase,
		Priority:   10,
		Validate: func(_ context.Context, e model.Entity, _ *rules.ValidationContext) ([]model.ValidationIssue, error) {
			calls.Add(1)
			return []model.ValidationIssue{model.NewIssue(e, model.SeverityWarning, "", "counted")}, nil
		},
	}
}

func TestValidate_CachesWithinTTL(t *testing.T) {
	env := newTestEnv(t, nil)
	var calls atomic.Int32
	require.NoError(t, env.engine.AddCustomRule(countingRule("count", &calls)))

	c := testutil.Case("c1", tenant)
	first, err := env.engine.ValidateBeforeOperation(context.Background(), c, "update", nil)
	require.NoError(t, err)
	second, err := env.engine.ValidateBeforeOperation(context.Background(), c, "update", nil)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, first, second)
}

func TestValidate_CachedCallSkipsRepositoryLookups(t *testing.T) {
	var staff *countingRepo
	env := newTestEnv(t, func(r model.Repositories) { staff = counting(r, model.EntityStaff) })

	c := testutil.Case("c1", tenant)
	c.LeadAttorneyID = "lawyer-1"
	env.put(t, testutil.Staff("s1", tenant, "lawyer-1"))

	for i := 0; i < 2; i++ {
		issues, err := env.engine.ValidateBeforeOperation(context.Background(), c, "update", nil)
		require.NoError(t, err)
		assert.Empty(t, issues)
	}
	assert.Equal(t, 1, staff.findCount())
}

func TestValidate_RerunsAfterTTL(t *testing.T) {
	env := newTestEnv(t, nil, WithCacheTTL(time.Minute))
	var calls atomic.Int32
	require.NoError(t, env.engine.AddCustomRule(countingRule("count", &calls)))

	c := testutil.Case("c1", tenant)
	_, err := env.engine.ValidateBeforeOperation(context.Background(), c, "update", nil)
	require.NoError(t, err)

	env.clock.Advance(time.Minute)
	_, err = env.engine.ValidateBeforeOperation(context.Background(), c, "update", nil)
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
}

func TestValidate_ClearValidationCache(t *testing.T) {
	env := newTestEnv(t, nil)
	var calls atomic.Int32
	require.NoError(t, env.engine.AddCustomRule(countingRule("count", &calls)))

	c := testutil.Case("c1", tenant)
	_, _ = env.engine.ValidateBeforeOperation(context.Background(), c, "update", nil)
	assert.Equal(t, 1, env.engine.CachedResults())

	env.engine.ClearValidationCache()
	assert.Equal(t, 0, env.engine.CachedResults())

	_, _ = env.engine.ValidateBeforeOperation(context.Background(), c, "update", nil)
	assert.Equal(t, int32(2), calls.Load())
}

func TestValidate_RuleIsolation(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.engine.AddCustomRule(rules.Rule{
		Name: "broken", EntityType: model.EntityCase, Priority: 1000,
		Validate: func(context.Context, model.Entity, *rules.ValidationContext) ([]model.ValidationIssue, error) {
			return nil, errors.New("boom")
		},
	}))
	require.NoError(t, env.engine.AddCustomRule(rules.Rule{
		Name: "panics", EntityType: model.EntityCase, Priority: 999,
		Validate: func(context.Context, model.Entity, *rules.ValidationContext) ([]model.ValidationIssue, error) {
			panic("unexpected")
		},
	}))

	bad := testutil.Case("c1", tenant)
	bad.Status = "archived"
	other := testutil.Case("c2", tenant)
	other.Status = "archived"

	for _, c := range []*model.Case{bad, other} {
		issues, err := env.engine.ValidateBeforeOperation(context.Background(), c, "update", nil)
		require.NoError(t, err)
		require.Len(t, issues, 1)
		assert.Equal(t, "case-status-valid", issues[0].Rule)
	}
}

func TestValidate_LenientDropsInfo(t *testing.T) {
	env := newTestEnv(t, nil)
	r := testutil.Reminder("r1", tenant)
	r.Message = "  "

	strict, err := env.engine.ValidateBeforeOperation(context.Background(), r, "create", nil)
	require.NoError(t, err)
	require.Len(t, strict, 1)
	assert.Equal(t, model.SeverityInfo, strict[0].Severity)

	lenient, err := env.engine.ValidateBeforeOperation(context.Background(), r, "create",
		&rules.ValidationContext{Level: model.LevelLenient})
	require.NoError(t, err)
	assert.Empty(t, lenient)
}

func TestValidate_RuleTimeout(t *testing.T) {
	env := newTestEnv(t, nil, WithRuleTimeout(20*time.Millisecond))
	var calls atomic.Int32
	require.NoError(t, env.engine.AddCustomRule(rules.Rule{
		Name: "stalls", EntityType: model.EntityCase, Priority: 1,
		Validate: func(ctx context.Context, _ model.Entity, _ *rules.ValidationContext) ([]model.ValidationIssue, error) {
			calls.Add(1)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}))

	c := testutil.Case("c1", tenant)
	issues, err := env.engine.ValidateBeforeOperation(context.Background(), c, "update", nil)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, RuleIncompleteMessage, issues[0].Message)
	assert.Equal(t, model.SeverityWarning, issues[0].Severity)
	assert.Equal(t, "stalls", issues[0].Rule)
	assert.False(t, issues[0].CanAutoRepair)

	// Incomplete results are not cached.
	_, err = env.engine.ValidateBeforeOperation(context.Background(), c, "update", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestValidate_InvalidEntity(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.engine.ValidateBeforeOperation(context.Background(), nil, "update", nil)
	require.Error(t, err)

	var ee *EngineError
	_, err = env.engine.ValidateBeforeOperation(context.Background(), testutil.Case("", tenant), "update", nil)
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ErrCodeInvalidEntity, ee.Code)
}

func TestScenario_InvalidStaffStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	s := testutil.Staff("s1", tenant, "u1")
	s.Status = "invalid_status"
	env.put(t, s)

	issues, err := env.engine.ValidateBeforeOperation(context.Background(), s, "update", nil)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	issue := issues[0]
	assert.Equal(t, model.SeverityCritical, issue.Severity)
	assert.Equal(t, "status", issue.Field)
	assert.True(t, issue.CanAutoRepair)

	result, err := env.engine.RepairIntegrityIssues(context.Background(), issues, RepairOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Repaired)
	assert.Equal(t, model.StaffInactive, env.find(t, model.EntityStaff, "s1").(*model.Staff).Status)
}

func TestScenario_DanglingLeadAttorney(t *testing.T) {
	env := newTestEnv(t, nil)
	c := testutil.Case("c1", tenant)
	c.LeadAttorneyID = "ghost"
	env.put(t, c)

	issues, err := env.engine.ValidateBeforeOperation(context.Background(), c, "update", nil)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, model.SeverityCritical, issues[0].Severity)
	assert.Equal(t, "leadAttorneyId", issues[0].Field)
	assert.True(t, issues[0].CanAutoRepair)

	_, err = env.engine.RepairIntegrityIssues(context.Background(), issues, RepairOptions{})
	require.NoError(t, err)
	assert.Empty(t, env.find(t, model.EntityCase, "c1").(*model.Case).LeadAttorneyID)
}

func TestScenario_ClosedBeforeCreated(t *testing.T) {
	env := newTestEnv(t, nil)
	c := testutil.Case("c1", tenant)
	closed := c.CreatedAt.Add(-time.Hour)
	c.Status = model.CaseClosed
	c.ClosedAt = &closed
	env.put(t, c)

	issues, err := env.engine.ValidateBeforeOperation(context.Background(), c, "close", nil)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, model.SeverityCritical, issues[0].Severity)
	assert.Equal(t, "closedAt", issues[0].Field)
	assert.True(t, issues[0].CanAutoRepair)

	_, err = env.engine.RepairIntegrityIssues(context.Background(), issues, RepairOptions{})
	require.NoError(t, err)
	assert.Nil(t, env.find(t, model.EntityCase, "c1").(*model.Case).ClosedAt)
}
