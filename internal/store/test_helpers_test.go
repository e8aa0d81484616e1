package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/firmkeeper/internal/model"
)

// createTestStore creates a new SQLite store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testTime = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

// createTestStaff creates a staff record with minimal required fields.
func createTestStaff(id, tenant, userID, status string) *model.Staff {
	return &model.Staff{
		ID:        id,
		GuildID:   tenant,
		UserID:    userID,
		Role:      "Paralegal",
		Status:    status,
		HiredAt:   testTime,
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}
}

// putter is satisfied by both Store and Memory.
type putter interface {
	Put(ctx context.Context, e model.Entity) error
	Repositories() model.Repositories
	Add(ctx context.Context, rec model.AuditRecord) error
	AuditRecords(ctx context.Context, tenantID string) ([]model.AuditRecord, error)
}

var (
	_ putter = (*Store)(nil)
	_ putter = (*Memory)(nil)

	_ model.Repository = (*EntityRepository)(nil)
	_ model.AuditLog   = (*Store)(nil)
	_ model.AuditLog   = (*Memory)(nil)
)

// backends returns every store implementation under test.
func backends(t *testing.T) map[string]putter {
	t.Helper()
	return map[string]putter{
		"sqlite": createTestStore(t),
		"memory": NewMemory(),
	}
}
