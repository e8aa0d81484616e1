// Package store provides the entity repositories and audit trail consumed by
// the integrity engine.
//
// Two implementations share one contract:
//   - Store: SQLite-backed, durable. Entities are kept as JSON documents in a
//     single table keyed by (entity_type, id); the audit trail is append-only.
//   - Memory: in-process, for tests and dry experiments.
//
// # Query Ordering
//
// Find returns entities in insertion order (ORDER BY seq ASC, id ASC) so
// scans over an unchanged store are reproducible.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// Filters and patches address entity fields by their JSON names
// (see model.Patch and model.Filter).
package store
