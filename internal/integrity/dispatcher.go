package integrity

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/roach88/firmkeeper/internal/model"
)

// Change records the state of a repaired field before and after a repair,
// rendered as JSON. An empty string means the field was unset.
type Change struct {
	Before string
	After  string
}

// Dispatcher interprets repair commands against entity repositories.
//
// Field commands are applied as a read followed by a patch. Appending a
// value already present, or removing one that is absent, succeeds without
// writing.
type Dispatcher struct {
	repos model.Repositories
}

// NewDispatcher creates a dispatcher over repos.
func NewDispatcher(repos model.Repositories) *Dispatcher {
	return &Dispatcher{repos: repos}
}

// Execute applies cmd and reports the resulting change.
func (d *Dispatcher) Execute(ctx context.Context, cmd *model.RepairCommand) (Change, error) {
	if cmd == nil {
		return Change{}, &EngineError{Code: ErrCodeInvalidRepair, Message: "repair command is nil"}
	}
	if err := cmd.Validate(); err != nil {
		return Change{}, &EngineError{
			Code:       ErrCodeInvalidRepair,
			Message:    "malformed repair command",
			EntityType: cmd.EntityType,
			EntityID:   cmd.EntityID,
			Err:        err,
		}
	}

	repo, ok := d.repos[cmd.EntityType]
	if !ok || repo == nil {
		return Change{}, newNoRepositoryError(cmd.EntityType)
	}

	if cmd.Kind == model.RepairDeleteEntity {
		deleted, err := repo.Delete(ctx, cmd.EntityID)
		if err != nil {
			return Change{}, fmt.Errorf("delete %s: %w", model.Key(cmd.EntityType, cmd.EntityID), err)
		}
		if !deleted {
			return Change{}, newNotFoundError(cmd.EntityType, cmd.EntityID)
		}
		return Change{Before: "present", After: "deleted"}, nil
	}

	current, err := repo.FindByID(ctx, cmd.EntityID)
	if err != nil {
		return Change{}, fmt.Errorf("load %s: %w", model.Key(cmd.EntityType, cmd.EntityID), err)
	}
	if current == nil {
		return Change{}, newNotFoundError(cmd.EntityType, cmd.EntityID)
	}
	before, err := renderField(current, cmd.Field)
	if err != nil {
		return Change{}, err
	}

	patch, err := patchFor(current, cmd)
	if err != nil {
		return Change{}, err
	}
	if patch == nil {
		return Change{Before: before, After: before}, nil
	}

	updated, err := repo.Update(ctx, cmd.EntityID, patch)
	if err != nil {
		return Change{}, fmt.Errorf("update %s: %w", model.Key(cmd.EntityType, cmd.EntityID), err)
	}
	if updated == nil {
		return Change{}, newNotFoundError(cmd.EntityType, cmd.EntityID)
	}
	after, err := renderField(updated, cmd.Field)
	if err != nil {
		return Change{}, err
	}
	return Change{Before: before, After: after}, nil
}

// patchFor builds the patch that applies cmd to current. A nil patch means
// the entity already satisfies the command.
func patchFor(current model.Entity, cmd *model.RepairCommand) (model.Patch, error) {
	switch cmd.Kind {
	case model.RepairSetField:
		return model.Patch{cmd.Field: cmd.Value}, nil
	case model.RepairClearField:
		return model.Patch{cmd.Field: nil}, nil
	}

	value, ok := cmd.Value.(string)
	if !ok {
		return nil, &EngineError{
			Code:       ErrCodeInvalidRepair,
			Message:    fmt.Sprintf("%s requires a string value, got %T", cmd.Kind, cmd.Value),
			EntityType: cmd.EntityType,
			EntityID:   cmd.EntityID,
		}
	}
	list, err := model.StringList(current, cmd.Field)
	if err != nil {
		return nil, &EngineError{
			Code:       ErrCodeInvalidRepair,
			Message:    "list repair on non-list field",
			EntityType: cmd.EntityType,
			EntityID:   cmd.EntityID,
			Err:        err,
		}
	}

	switch cmd.Kind {
	case model.RepairAppendToList:
		if slices.Contains(list, value) {
			return nil, nil
		}
		return model.Patch{cmd.Field: append(list, value)}, nil
	case model.RepairRemoveFromList:
		if !slices.Contains(list, value) {
			return nil, nil
		}
		remaining := slices.DeleteFunc(slices.Clone(list), func(s string) bool { return s == value })
		if len(remaining) == 0 {
			return model.Patch{cmd.Field: nil}, nil
		}
		return model.Patch{cmd.Field: remaining}, nil
	default:
		return nil, &EngineError{
			Code:       ErrCodeInvalidRepair,
			Message:    fmt.Sprintf("unknown repair kind %q", cmd.Kind),
			EntityType: cmd.EntityType,
			EntityID:   cmd.EntityID,
		}
	}
}

func renderField(e model.Entity, field string) (string, error) {
	v, ok, err := model.FieldValue(e, field)
	if err != nil {
		return "", err
	}
	if !ok || v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", field, err)
	}
	return string(data), nil
}
