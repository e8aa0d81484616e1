// Package model defines the records validated by the integrity engine and
// the values it produces.
//
// There are three groups of types:
//   - Entities: the seven firm record kinds (staff, case, application, job,
//     retainer, feedback, reminder). Each is a plain struct with camelCase
//     JSON tags; the JSON field names double as the patch and filter keys
//     understood by repositories.
//   - Issues: ValidationIssue plus its optional RepairCommand. A repair is a
//     tagged command rather than a closure so it can be audited, replayed and
//     serialized.
//   - Results: IntegrityReport, RepairResult and AuditRecord.
//
// The package also declares the external capabilities the engine consumes
// (Repository, AuditLog, Directory). Concrete adapters live in internal/store
// and internal/fixture.
package model
