package integrity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/firmkeeper/internal/model"
	"github.com/roach88/firmkeeper/internal/store"
	"github.com/roach88/firmkeeper/internal/testutil"
)

const tenant = "guild-1"

// testEnv wires an engine to an in-memory store with a manual clock and a
// recording sleeper.
type testEnv struct {
	store   *store.Memory
	repos   model.Repositories
	engine  *Engine
	clock   *testutil.ManualClock
	sleeper *testutil.RecordingSleeper
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEnv creates an engine over an empty memory store. wrap may
// replace repositories before the engine is built.
func newTestEnv(t *testing.T, wrap func(model.Repositories), opts ...Option) *testEnv {
	t.Helper()
	mem := store.NewMemory()
	repos := mem.Repositories()
	if wrap != nil {
		wrap(repos)
	}
	env := &testEnv{
		store:   mem,
		repos:   repos,
		clock:   testutil.NewManualClock(),
		sleeper: &testutil.RecordingSleeper{},
	}
	base := []Option{
		WithClock(env.clock.Now),
		WithSleeper(env.sleeper.Sleep),
		WithLogger(discardLogger()),
		WithIDGenerator(NewSequentialGenerator("id")),
	}
	engine, err := New(repos, mem, append(base, opts...)...)
	require.NoError(t, err)
	env.engine = engine
	return env
}

func (env *testEnv) put(t *testing.T, entities ...model.Entity) {
	t.Helper()
	for _, e := range entities {
		require.NoError(t, env.store.Put(context.Background(), e))
	}
}

func (env *testEnv) audit(t *testing.T) []model.AuditRecord {
	t.Helper()
	recs, err := env.store.AuditRecords(context.Background(), tenant)
	require.NoError(t, err)
	return recs
}

func (env *testEnv) find(t *testing.T, et model.EntityType, id string) model.Entity {
	t.Helper()
	e, err := env.repos[et].FindByID(context.Background(), id)
	require.NoError(t, err)
	return e
}

// countingRepo counts calls and records FindByID order.
type countingRepo struct {
	model.Repository

	mu      sync.Mutex
	finds   int
	byID    []string
	updates int
	deletes int
}

func (r *countingRepo) Find(ctx context.Context, tenantID string, f model.Filter) ([]model.Entity, error) {
	r.mu.Lock()
	r.finds++
	r.mu.Unlock()
	return r.Repository.Find(ctx, tenantID, f)
}

func (r *countingRepo) FindByID(ctx context.Context, id string) (model.Entity, error) {
	r.mu.Lock()
	r.byID = append(r.byID, id)
	r.mu.Unlock()
	return r.Repository.FindByID(ctx, id)
}

func (r *countingRepo) Update(ctx context.Context, id string, p model.Patch) (model.Entity, error) {
	r.mu.Lock()
	r.updates++
	r.mu.Unlock()
	return r.Repository.Update(ctx, id, p)
}

func (r *countingRepo) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	r.deletes++
	r.mu.Unlock()
	return r.Repository.Delete(ctx, id)
}

func (r *countingRepo) findCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finds
}

func (r *countingRepo) lookups() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.byID...)
}

func (r *countingRepo) writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates + r.deletes
}

func counting(repos model.Repositories, t model.EntityType) *countingRepo {
	c := &countingRepo{Repository: repos[t]}
	repos[t] = c
	return c
}

var errUnavailable = errors.New("repository unavailable")

// failingFindRepo fails every Find.
type failingFindRepo struct {
	model.Repository
}

func (failingFindRepo) Find(context.Context, string, model.Filter) ([]model.Entity, error) {
	return nil, errUnavailable
}

// flakyRepo fails the first failures updates, then delegates.
type flakyRepo struct {
	model.Repository
	failures int32
	calls    atomic.Int32
}

func (r *flakyRepo) Update(ctx context.Context, id string, p model.Patch) (model.Entity, error) {
	n := r.calls.Add(1)
	if n <= r.failures {
		return nil, errUnavailable
	}
	return r.Repository.Update(ctx, id, p)
}
