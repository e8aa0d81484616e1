// Package rules holds the validation rule model, the rule registry and the
// built-in integrity rules for firm records.
//
// A Rule targets one entity type and produces zero or more issues for one
// entity. Rules never return errors for business conditions; an error means
// the rule could not run (for example a repository round-trip failed) and the
// caller isolates it.
//
// Execution order within a type is priority-descending, refined by declared
// dependencies: a rule always runs after the rules it depends on. Rules caught
// in a dependency cycle fall back to plain priority order and are reported by
// AnalyzeCycles.
package rules
