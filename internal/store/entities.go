package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/firmkeeper/internal/model"
)

// EntityRepository implements model.Repository for one entity type.
type EntityRepository struct {
	db         *sql.DB
	entityType model.EntityType
}

// Put inserts an entity, or replaces the stored document if one with the
// same id exists. Replacing keeps the original seq.
func (r *EntityRepository) Put(ctx context.Context, e model.Entity) error {
	if e.EntityType() != r.entityType {
		return fmt.Errorf("put: %s repository cannot store %s", r.entityType, e.EntityType())
	}
	doc, err := marshalDoc(e)
	if err != nil {
		return fmt.Errorf("put %s %s: %w", r.entityType, e.EntityID(), err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO entities (id, entity_type, tenant_id, doc)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(entity_type, id) DO UPDATE SET
			tenant_id = excluded.tenant_id,
			doc       = excluded.doc
	`, e.EntityID(), string(r.entityType), e.Tenant(), doc)
	if err != nil {
		return fmt.Errorf("put %s %s: %w", r.entityType, e.EntityID(), err)
	}
	return nil
}

// Find returns the tenant's entities matching filter, in insertion order.
func (r *EntityRepository) Find(ctx context.Context, tenantID string, filter model.Filter) ([]model.Entity, error) {
	query, params := compileFind(r.entityType, tenantID, filter)
	rows, err := r.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", r.entityType, err)
	}
	defer rows.Close()

	var out []model.Entity
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("find %s: scan: %w", r.entityType, err)
		}
		e, err := unmarshalEntity(r.entityType, doc)
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", r.entityType, err)
		}
		ok, err := model.Matches(e, filter)
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", r.entityType, err)
		}
		if ok {
			out = append(out, e)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find %s: %w", r.entityType, err)
	}
	return out, nil
}

// FindByID returns the entity with id, or (nil, nil) if there is none.
func (r *EntityRepository) FindByID(ctx context.Context, id string) (model.Entity, error) {
	return findByID(ctx, r.db, r.entityType, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func findByID(ctx context.Context, q queryer, t model.EntityType, id string) (model.Entity, error) {
	var doc string
	err := q.QueryRowContext(ctx, `
		SELECT doc FROM entities WHERE entity_type = ? AND id = ?
	`, string(t), id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s %s: %w", t, id, err)
	}
	return unmarshalEntity(t, doc)
}

// Update applies patch to the entity with id and returns the result.
// Returns (nil, nil) if the entity does not exist.
func (r *EntityRepository) Update(ctx context.Context, id string, patch model.Patch) (model.Entity, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update %s %s: begin tx: %w", r.entityType, id, err)
	}
	defer tx.Rollback() // No-op if committed

	current, err := findByID(ctx, tx, r.entityType, id)
	if err != nil || current == nil {
		return nil, err
	}

	patched, err := model.ApplyPatch(current, patch)
	if err != nil {
		return nil, fmt.Errorf("update %s %s: %w", r.entityType, id, err)
	}
	doc, err := marshalDoc(patched)
	if err != nil {
		return nil, fmt.Errorf("update %s %s: %w", r.entityType, id, err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE entities SET doc = ? WHERE entity_type = ? AND id = ?
	`, doc, string(r.entityType), id); err != nil {
		return nil, fmt.Errorf("update %s %s: %w", r.entityType, id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update %s %s: commit: %w", r.entityType, id, err)
	}
	return patched, nil
}

// Delete removes the entity with id. Returns false if it did not exist.
func (r *EntityRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM entities WHERE entity_type = ? AND id = ?
	`, string(r.entityType), id)
	if err != nil {
		return false, fmt.Errorf("delete %s %s: %w", r.entityType, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %s %s: rows affected: %w", r.entityType, id, err)
	}
	return n > 0, nil
}
