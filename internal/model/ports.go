package model

import "context"

// Repository is the per-type entity store capability.
//
// FindByID and Update return (nil, nil) when the entity does not exist.
type Repository interface {
	Find(ctx context.Context, tenantID string, filter Filter) ([]Entity, error)
	FindByID(ctx context.Context, id string) (Entity, error)
	Update(ctx context.Context, id string, patch Patch) (Entity, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Repositories maps each entity type to its repository.
type Repositories map[EntityType]Repository

// AuditLog receives one record per executed repair.
type AuditLog interface {
	Add(ctx context.Context, record AuditRecord) error
}

// Directory answers tenant-scoped existence questions against the chat
// platform. Checks that need a Directory are skipped when none is supplied.
type Directory interface {
	MemberExists(ctx context.Context, tenantID, userID string) (bool, error)
	ChannelExists(ctx context.Context, tenantID, channelID string) (bool, error)
}
