package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/firmkeeper/internal/model"
)

// marshalDoc converts a value to JSON TEXT for storage.
// HTML escaping is disabled so stored documents read the same as the input.
func marshalDoc(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalEntity parses a stored document into an entity of type t.
func unmarshalEntity(t model.EntityType, doc string) (model.Entity, error) {
	e, err := model.DecodeEntity(t, []byte(doc))
	if err != nil {
		return nil, fmt.Errorf("unmarshal entity: %w", err)
	}
	return e, nil
}

// unmarshalDetails parses stored audit details.
func unmarshalDetails(doc string) (model.AuditDetails, error) {
	var d model.AuditDetails
	if err := json.Unmarshal([]byte(doc), &d); err != nil {
		return model.AuditDetails{}, fmt.Errorf("unmarshal audit details: %w", err)
	}
	return d, nil
}
