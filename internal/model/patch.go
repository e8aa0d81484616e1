package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Patch is a partial update keyed by JSON field name.
// A nil value unsets the field.
type Patch map[string]any

// Filter selects entities whose JSON fields equal the given values.
type Filter map[string]any

// Document converts an entity to its generic JSON object form.
func Document(e Entity) (map[string]any, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s %s: %w", e.EntityType(), e.EntityID(), err)
	}
	doc := make(map[string]any)
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", e.EntityType(), e.EntityID(), err)
	}
	return doc, nil
}

// ApplyPatch returns a patched copy of e. The original is not modified.
func ApplyPatch(e Entity, patch Patch) (Entity, error) {
	doc, err := Document(e)
	if err != nil {
		return nil, err
	}
	for field, value := range patch {
		if field == "id" || field == "guildId" {
			return nil, fmt.Errorf("patch: field %q is immutable", field)
		}
		if value == nil {
			delete(doc, field)
			continue
		}
		doc[field] = value
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("patch: %w", err)
	}
	return DecodeEntity(e.EntityType(), data)
}

// FieldValue returns the JSON value of field on e.
func FieldValue(e Entity, field string) (any, bool, error) {
	doc, err := Document(e)
	if err != nil {
		return nil, false, err
	}
	v, ok := doc[field]
	return v, ok, nil
}

// StringList reads a list-of-strings field. A missing field yields nil.
func StringList(e Entity, field string) ([]string, error) {
	v, ok, err := FieldValue(e, field)
	if err != nil || !ok || v == nil {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("field %q is not a list", field)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("field %q contains non-string %v", field, item)
		}
		out = append(out, s)
	}
	return out, nil
}

// Matches reports whether e satisfies every condition in f.
// Values are compared by their JSON encoding.
func Matches(e Entity, f Filter) (bool, error) {
	if len(f) == 0 {
		return true, nil
	}
	doc, err := Document(e)
	if err != nil {
		return false, err
	}
	for field, want := range f {
		got, ok := doc[field]
		if !ok {
			return false, nil
		}
		wantJSON, err := json.Marshal(want)
		if err != nil {
			return false, fmt.Errorf("filter %q: %w", field, err)
		}
		gotJSON, err := json.Marshal(got)
		if err != nil {
			return false, fmt.Errorf("filter %q: %w", field, err)
		}
		if !bytes.Equal(wantJSON, gotJSON) {
			return false, nil
		}
	}
	return true, nil
}
