package store

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/firmkeeper/internal/model"
)

// fieldName matches filter fields that can be addressed as a top-level
// JSON path.
var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// compileFind builds the query behind EntityRepository.Find.
//
// Filter conditions on scalar values become json_extract predicates.
// Conditions on null, lists or objects are not pushed down; callers apply
// model.Matches to the decoded rows, which also decides the scalar cases.
// Every value is parameterized and the result is always ordered.
func compileFind(entityType model.EntityType, tenantID string, filter model.Filter) (string, []any) {
	where := []string{"tenant_id = ?", "entity_type = ?"}
	params := []any{tenantID, string(entityType)}

	// Sorted for deterministic SQL
	fields := make([]string, 0, len(filter))
	for field := range filter {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		if !fieldName.MatchString(field) {
			continue
		}
		param, ok := filterParam(filter[field])
		if !ok {
			continue
		}
		where = append(where, "json_extract(doc, ?) = ?")
		params = append(params, "$."+field, param)
	}

	query := "SELECT doc FROM entities WHERE " + strings.Join(where, " AND ") +
		" ORDER BY seq ASC, id ASC COLLATE BINARY"
	return query, params
}

// filterParam converts a filter value to the SQL value json_extract yields
// for the same JSON scalar. JSON booleans extract as 1 and 0.
func filterParam(v any) (any, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, false
	}
	switch val := decoded.(type) {
	case string:
		return val, true
	case float64:
		return val, true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	default:
		return nil, false
	}
}
