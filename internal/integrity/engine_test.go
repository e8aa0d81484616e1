package integrity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/firmkeeper/internal/cache"
	"github.com/roach88/firmkeeper/internal/model"
	"github.com/roach88/firmkeeper/internal/rules"
	"github.com/roach88/firmkeeper/internal/store"
)

func noop(context.Context, model.Entity, *rules.ValidationContext) ([]model.ValidationIssue, error) {
	return nil, nil
}

func TestNew_Defaults(t *testing.T) {
	e, err := New(store.NewMemory().Repositories(), nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxConcurrent, e.maxConcurrent)
	assert.Equal(t, DefaultBatchSize, e.batchSize)
	assert.Equal(t, DefaultOptimizedBatchSize, e.optimizedBatchSize)
	assert.Equal(t, DefaultRuleTimeout, e.ruleTimeout)
	assert.Equal(t, DefaultRetryDelay, e.retryDelay)
	assert.Equal(t, cache.DefaultTTL, e.cache.TTL())
	assert.Len(t, e.ValidationRules(), 19)
}

func TestNew_RejectsBadOptions(t *testing.T) {
	repos := store.NewMemory().Repositories()

	_, err := New(repos, nil, WithMaxConcurrent(0))
	assert.Error(t, err)
	_, err = New(repos, nil, WithBatchSize(0))
	assert.Error(t, err)
}

func TestAddCustomRule(t *testing.T) {
	env := newTestEnv(t, nil)

	require.NoError(t, env.engine.AddCustomRule(rules.Rule{
		Name: "case-status-valid", EntityType: model.EntityCase, Priority: 1, Validate: noop,
	}))
	assert.Len(t, env.engine.ValidationRules(), 19, "same name overwrites")

	got, ok := ruleNamed(env.engine.ValidationRules(), "case-status-valid")
	require.True(t, ok)
	assert.Equal(t, 1, got.Priority)

	assert.Error(t, env.engine.AddCustomRule(rules.Rule{Name: "", EntityType: model.EntityCase, Validate: noop}))
}

func ruleNamed(all []rules.Rule, name string) (rules.Rule, bool) {
	for _, r := range all {
		if r.Name == name {
			return r, true
		}
	}
	return rules.Rule{}, false
}

func TestRulesForType_HonoursDependencies(t *testing.T) {
	env := newTestEnv(t, nil)

	require.NoError(t, env.engine.AddCustomRule(rules.Rule{
		Name: "job-first", EntityType: model.EntityJob, Priority: 500,
		Dependencies: []string{"job-role-valid"}, Validate: noop,
	}))

	var names []string
	for _, r := range env.engine.RulesForType(model.EntityJob) {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"job-title-present", "job-role-valid", "job-first"}, names)
}

func TestDependencyWarnings(t *testing.T) {
	env := newTestEnv(t, nil)
	assert.Empty(t, env.engine.DependencyWarnings())

	require.NoError(t, env.engine.AddCustomRule(rules.Rule{
		Name: "a", EntityType: model.EntityFeedback, Dependencies: []string{"b"}, Validate: noop,
	}))
	require.NoError(t, env.engine.AddCustomRule(rules.Rule{
		Name: "b", EntityType: model.EntityFeedback, Dependencies: []string{"a"}, Validate: noop,
	}))

	warnings := env.engine.DependencyWarnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, model.EntityFeedback, warnings[0].EntityType)
	assert.Equal(t, "warning", warnings[0].Level)
}

func TestErrorHelpers(t *testing.T) {
	err := &EngineError{Code: ErrCodeEntityNotFound, Message: "gone", EntityType: model.EntityCase, EntityID: "c1"}
	assert.Equal(t, "ENTITY_NOT_FOUND: gone (case:c1)", err.Error())
	assert.True(t, IsEntityNotFound(err))
	assert.False(t, IsMalformedIssue(err))

	wrapped := &EngineError{Code: ErrCodeMalformedIssue, Message: "bad", Err: model.ErrMalformedIssue}
	assert.ErrorIs(t, wrapped, model.ErrMalformedIssue)
	assert.True(t, IsMalformedIssue(wrapped))
}

func TestGenerators(t *testing.T) {
	fixed := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", fixed.Generate())
	assert.Equal(t, "b", fixed.Generate())
	assert.Panics(t, func() { fixed.Generate() })

	seq := NewSequentialGenerator("audit")
	assert.Equal(t, "audit-1", seq.Generate())
	assert.Equal(t, "audit-2", seq.Generate())

	assert.Len(t, UUIDv7Generator{}.Generate(), 36)
}
