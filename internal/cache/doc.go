// Package cache provides the validation result cache used by the
// integrity engine.
//
// Entries are keyed by "entityType:entityId" and expire after a fixed TTL.
// Expired entries are pruned lazily on read; there is no background sweep.
package cache
