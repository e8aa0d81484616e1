package fixture

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/firmkeeper/internal/model"
	"github.com/roach88/firmkeeper/internal/store"
)

func TestLoad(t *testing.T) {
	f, err := Load(filepath.Join("testdata", "firm.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "guild-1", f.Tenant)
	entities := f.Entities()
	require.Len(t, entities, 5)

	var keys []string
	for _, e := range entities {
		keys = append(keys, model.KeyOf(e))
		assert.Equal(t, "guild-1", e.Tenant(), "guildId defaults to the tenant")
	}
	assert.Equal(t, []string{"staff:s-partner", "staff:s-assoc", "case:c-1", "job:j-1", "reminder:m-1"}, keys)

	assoc, ok := entities[1].(*model.Staff)
	require.True(t, ok)
	require.Len(t, assoc.PromotionHistory, 1)
	assert.Equal(t, time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC), assoc.PromotionHistory[0].PromotedAt.UTC())

	c, ok := entities[2].(*model.Case)
	require.True(t, ok)
	assert.Equal(t, []string{"u-partner", "u-assoc"}, c.AssignedLawyerIDs)
	assert.Nil(t, c.ClosedAt)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no tenant", "members: [a]\n", "tenant is required"},
		{"unknown key", "tenant: g\nmembres: [a]\n", "field membres not found"},
		{"unknown type", "tenant: g\nentities:\n  lawsuit:\n    - id: x\n", `unknown entity type "lawsuit"`},
		{"missing id", "tenant: g\nentities:\n  job:\n    - title: T\n", "job[0]: id is required"},
		{"foreign tenant", "tenant: g\nentities:\n  job:\n    - id: j\n      guildId: other\n", `does not match tenant "g"`},
		{"bad field type", "tenant: g\nentities:\n  feedback:\n    - id: f\n      rating: lots\n", "feedback[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSeed(t *testing.T) {
	f, err := Load(filepath.Join("testdata", "firm.yaml"))
	require.NoError(t, err)

	mem := store.NewMemory()
	n, err := f.Seed(context.Background(), mem)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	staff, err := mem.Repository(model.EntityStaff).Find(context.Background(), "guild-1", nil)
	require.NoError(t, err)
	assert.Len(t, staff, 2)
}

type failingPutter struct{ after int }

func (p *failingPutter) Put(context.Context, model.Entity) error {
	if p.after == 0 {
		return errors.New("disk full")
	}
	p.after--
	return nil
}

func TestSeed_StopsOnError(t *testing.T) {
	f, err := Load(filepath.Join("testdata", "firm.yaml"))
	require.NoError(t, err)

	n, err := f.Seed(context.Background(), &failingPutter{after: 2})
	require.Error(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, err.Error(), "case:c-1")
}

func TestDirectory(t *testing.T) {
	f, err := Parse([]byte("tenant: guild-1\nmembers: [u-1]\nchannels: [ch-1]\n"))
	require.NoError(t, err)
	dir := f.Directory()
	ctx := context.Background()

	ok, err := dir.MemberExists(ctx, "guild-1", "u-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = dir.MemberExists(ctx, "guild-1", "u-2")
	assert.False(t, ok)

	ok, _ = dir.MemberExists(ctx, "guild-2", "u-1")
	assert.False(t, ok, "other tenants are unknown")

	ok, _ = dir.ChannelExists(ctx, "guild-1", "ch-1")
	assert.True(t, ok)

	ok, _ = dir.ChannelExists(ctx, "guild-1", "ch-2")
	assert.False(t, ok)
}
