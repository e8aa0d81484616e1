package model

import (
	"errors"
	"fmt"
)

// ValidationIssue is a single detected inconsistency.
//
// INVARIANT: Repair != nil iff CanAutoRepair. Use WithRepair to attach a
// command so both fields stay in sync.
type ValidationIssue struct {
	TenantID      string         `json:"tenantId"`
	Severity      Severity       `json:"severity"`
	EntityType    EntityType     `json:"entityType"`
	EntityID      string         `json:"entityId"`
	Field         string         `json:"field,omitempty"`
	Message       string         `json:"message"`
	Rule          string         `json:"rule,omitempty"`
	CanAutoRepair bool           `json:"canAutoRepair"`
	Repair        *RepairCommand `json:"repair,omitempty"`
}

// NewIssue creates a non-repairable issue for entity e.
func NewIssue(e Entity, severity Severity, field, message string) ValidationIssue {
	return ValidationIssue{
		TenantID:   e.Tenant(),
		Severity:   severity,
		EntityType: e.EntityType(),
		EntityID:   e.EntityID(),
		Field:      field,
		Message:    message,
	}
}

// WithRepair returns a copy of the issue carrying cmd.
// Passing nil makes the issue non-repairable.
func (i ValidationIssue) WithRepair(cmd *RepairCommand) ValidationIssue {
	i.Repair = cmd
	i.CanAutoRepair = cmd != nil
	return i
}

// Key returns the "type:id" key of the entity the issue belongs to.
func (i ValidationIssue) Key() string {
	return Key(i.EntityType, i.EntityID)
}

// Repairable reports whether the issue can be handed to the repair engine.
func (i ValidationIssue) Repairable() bool {
	return i.CanAutoRepair && i.Repair != nil
}

// ErrMalformedIssue is returned for issues that violate the repair invariant.
var ErrMalformedIssue = errors.New("malformed validation issue")

// Validate checks the structural invariants of the issue.
func (i ValidationIssue) Validate() error {
	if i.EntityID == "" || !i.EntityType.Valid() {
		return fmt.Errorf("%w: missing entity reference", ErrMalformedIssue)
	}
	if i.CanAutoRepair != (i.Repair != nil) {
		return fmt.Errorf("%w: %s canAutoRepair=%t but repair present=%t",
			ErrMalformedIssue, i.Key(), i.CanAutoRepair, i.Repair != nil)
	}
	if i.Repair != nil {
		if err := i.Repair.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformedIssue, i.Key(), err)
		}
	}
	return nil
}

// RepairKind enumerates the mutations a RepairCommand can describe.
type RepairKind string

const (
	RepairSetField       RepairKind = "set_field"
	RepairClearField     RepairKind = "clear_field"
	RepairAppendToList   RepairKind = "append_to_list"
	RepairRemoveFromList RepairKind = "remove_from_list"
	RepairDeleteEntity   RepairKind = "delete_entity"
)

// RepairCommand is a corrective mutation of one entity, interpreted by the
// integrity engine's dispatcher against the entity's repository.
type RepairCommand struct {
	Kind       RepairKind `json:"kind"`
	EntityType EntityType `json:"entityType"`
	EntityID   string     `json:"entityId"`
	Field      string     `json:"field,omitempty"`
	Value      any        `json:"value,omitempty"`
}

// SetField sets field to value.
func SetField(e Entity, field string, value any) *RepairCommand {
	return &RepairCommand{Kind: RepairSetField, EntityType: e.EntityType(), EntityID: e.EntityID(), Field: field, Value: value}
}

// ClearField unsets field.
func ClearField(e Entity, field string) *RepairCommand {
	return &RepairCommand{Kind: RepairClearField, EntityType: e.EntityType(), EntityID: e.EntityID(), Field: field}
}

// AppendToList appends value to the list in field unless already present.
func AppendToList(e Entity, field string, value string) *RepairCommand {
	return &RepairCommand{Kind: RepairAppendToList, EntityType: e.EntityType(), EntityID: e.EntityID(), Field: field, Value: value}
}

// RemoveFromList removes every occurrence of value from the list in field.
func RemoveFromList(e Entity, field string, value string) *RepairCommand {
	return &RepairCommand{Kind: RepairRemoveFromList, EntityType: e.EntityType(), EntityID: e.EntityID(), Field: field, Value: value}
}

// DeleteEntity removes the entity.
func DeleteEntity(e Entity) *RepairCommand {
	return &RepairCommand{Kind: RepairDeleteEntity, EntityType: e.EntityType(), EntityID: e.EntityID()}
}

// Validate checks that the command is well formed.
func (c *RepairCommand) Validate() error {
	if c.EntityID == "" || !c.EntityType.Valid() {
		return fmt.Errorf("repair command missing target")
	}
	switch c.Kind {
	case RepairSetField, RepairAppendToList, RepairRemoveFromList:
		if c.Field == "" {
			return fmt.Errorf("%s requires a field", c.Kind)
		}
		if c.Value == nil {
			return fmt.Errorf("%s requires a value", c.Kind)
		}
	case RepairClearField:
		if c.Field == "" {
			return fmt.Errorf("%s requires a field", c.Kind)
		}
	case RepairDeleteEntity:
	default:
		return fmt.Errorf("unknown repair kind %q", c.Kind)
	}
	if c.Field == "id" || c.Field == "guildId" {
		return fmt.Errorf("field %q is immutable", c.Field)
	}
	return nil
}

// Describe renders the intended mutation for audit records.
func (c *RepairCommand) Describe() string {
	switch c.Kind {
	case RepairSetField:
		return fmt.Sprintf("set %s to %v", c.Field, c.Value)
	case RepairClearField:
		return fmt.Sprintf("clear %s", c.Field)
	case RepairAppendToList:
		return fmt.Sprintf("append %v to %s", c.Value, c.Field)
	case RepairRemoveFromList:
		return fmt.Sprintf("remove %v from %s", c.Value, c.Field)
	case RepairDeleteEntity:
		return fmt.Sprintf("delete %s %s", c.EntityType, c.EntityID)
	default:
		return string(c.Kind)
	}
}
