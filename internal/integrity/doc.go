// Package integrity implements the firm's integrity engine: per-entity
// validation with caching, tenant scans, deep consistency checks, audited
// repairs, and batch validation with a concurrency cap.
//
// The engine owns its rule registry and validation cache. Entity storage
// and the audit trail are supplied by the caller as model.Repositories and
// model.AuditLog.
//
// Failure policy: infrastructure failures are logged and absorbed at the
// smallest scope that can continue. A failing rule contributes no issues,
// a failing fetch leaves a gap in the report, and a failing repair is
// recorded without blocking the rest of the batch. Only caller misuse,
// such as malformed issues handed to the repair engine, is returned as an
// error.
package integrity
