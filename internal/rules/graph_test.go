package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/firmkeeper/internal/model"
)

func TestExecutionOrder(t *testing.T) {
	tests := []struct {
		name  string
		rules []Rule
		want  []string
	}{
		{
			name: "no dependencies equals priority order",
			rules: []Rule{
				rule("a", model.EntityCase, 10),
				rule("b", model.EntityCase, 30),
				rule("c", model.EntityCase, 20),
			},
			want: []string{"b", "c", "a"},
		},
		{
			name: "dependency runs first",
			rules: []Rule{
				rule("a", model.EntityCase, 10),
				rule("b", model.EntityCase, 30, "a"),
				rule("c", model.EntityCase, 20),
			},
			want: []string{"c", "a", "b"},
		},
		{
			name: "chain",
			rules: []Rule{
				rule("a", model.EntityCase, 30, "b"),
				rule("b", model.EntityCase, 20, "c"),
				rule("c", model.EntityCase, 10),
			},
			want: []string{"c", "b", "a"},
		},
		{
			name: "unknown and cross-type dependencies are ignored",
			rules: []Rule{
				rule("a", model.EntityCase, 30, "missing", "s"),
				rule("b", model.EntityCase, 20),
				rule("s", model.EntityStaff, 10),
			},
			want: []string{"a", "b"},
		},
		{
			name: "cycle members follow the acyclic part",
			rules: []Rule{
				rule("x", model.EntityCase, 40, "y"),
				rule("y", model.EntityCase, 30, "x"),
				rule("z", model.EntityCase, 10),
			},
			want: []string{"z", "x", "y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRegistry(tt.rules...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(r.ExecutionOrder(model.EntityCase)))
		})
	}
}

func TestAnalyzeCycles_NoCycles(t *testing.T) {
	warnings := AnalyzeCycles([]Rule{
		rule("a", model.EntityCase, 1, "b"),
		rule("b", model.EntityCase, 1),
	})
	assert.Empty(t, warnings)
}

func TestAnalyzeCycles_TwoRuleCycle(t *testing.T) {
	warnings := AnalyzeCycles([]Rule{
		rule("a", model.EntityCase, 1, "b"),
		rule("b", model.EntityCase, 1, "a"),
	})
	require.Len(t, warnings, 1)

	w := warnings[0]
	assert.Equal(t, "warning", w.Level)
	assert.Equal(t, model.EntityCase, w.EntityType)
	require.Len(t, w.Path, 3)
	assert.Equal(t, w.Path[0], w.Path[2], "path should return to its start")
	assert.Contains(t, w.Message, "dependency cycle detected")
}

func TestAnalyzeCycles_SelfLoop(t *testing.T) {
	warnings := AnalyzeCycles([]Rule{rule("a", model.EntityJob, 1, "a")})
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"a", "a"}, warnings[0].Path)
	assert.Contains(t, warnings[0].Message, "depends on itself")
}

func TestAnalyzeCycles_ThreeRuleCycle(t *testing.T) {
	warnings := AnalyzeCycles([]Rule{
		rule("a", model.EntityCase, 1, "b"),
		rule("b", model.EntityCase, 1, "c"),
		rule("c", model.EntityCase, 1, "a"),
		rule("d", model.EntityCase, 1, "a"),
	})
	require.Len(t, warnings, 1)
	assert.Len(t, warnings[0].Path, 4)
}

func TestAnalyzeCycles_UnresolvedDependencies(t *testing.T) {
	warnings := AnalyzeCycles([]Rule{
		rule("a", model.EntityCase, 1, "ghost"),
		rule("b", model.EntityCase, 1, "s"),
		rule("s", model.EntityStaff, 1),
	})
	require.Len(t, warnings, 2)
	assert.Equal(t, "info", warnings[0].Level)
	assert.Contains(t, warnings[0].Message, "unknown rule ghost")
	assert.Contains(t, warnings[1].Message, "cross-type")
}

func TestAnalyzeCycles_Builtin(t *testing.T) {
	assert.Empty(t, AnalyzeCycles(Builtin(model.Repositories{})))
}
