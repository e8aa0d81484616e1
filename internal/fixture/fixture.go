// Package fixture loads tenant descriptions from YAML: the members and
// channels the chat platform knows about, plus the stored firm records.
package fixture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/firmkeeper/internal/model"
)

// Fixture is one tenant's seed data.
type Fixture struct {
	// Tenant is the guild every entity belongs to.
	Tenant string `yaml:"tenant"`

	// Members and Channels back Directory.
	Members  []string `yaml:"members,omitempty"`
	Channels []string `yaml:"channels,omitempty"`

	// RawEntities maps an entity type name to its records. Records use the
	// JSON field names of the model; guildId defaults to Tenant.
	RawEntities map[string][]map[string]any `yaml:"entities,omitempty"`

	parsed []model.Entity
}

// Putter stores one entity.
type Putter interface {
	Put(ctx context.Context, e model.Entity) error
}

// Load reads and parses the fixture at path.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a fixture. Unknown top-level keys are rejected.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if f.Tenant == "" {
		return nil, fmt.Errorf("invalid fixture: tenant is required")
	}

	for name := range f.RawEntities {
		if _, err := model.ParseEntityType(name); err != nil {
			return nil, fmt.Errorf("invalid fixture: %w", err)
		}
	}
	for _, t := range model.AllEntityTypes {
		for i, doc := range f.RawEntities[string(t)] {
			e, err := f.decode(t, doc)
			if err != nil {
				return nil, fmt.Errorf("invalid fixture: %s[%d]: %w", t, i, err)
			}
			f.parsed = append(f.parsed, e)
		}
	}
	return &f, nil
}

func (f *Fixture) decode(t model.EntityType, doc map[string]any) (model.Entity, error) {
	if _, ok := doc["guildId"]; !ok {
		doc["guildId"] = f.Tenant
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	e, err := model.DecodeEntity(t, data)
	if err != nil {
		return nil, err
	}
	if e.EntityID() == "" {
		return nil, fmt.Errorf("id is required")
	}
	if e.Tenant() != f.Tenant {
		return nil, fmt.Errorf("guildId %q does not match tenant %q", e.Tenant(), f.Tenant)
	}
	return e, nil
}

// Entities returns the parsed records in scan type order.
func (f *Fixture) Entities() []model.Entity {
	out := make([]model.Entity, len(f.parsed))
	copy(out, f.parsed)
	return out
}

// Seed writes every record to p and returns how many were written.
func (f *Fixture) Seed(ctx context.Context, p Putter) (int, error) {
	for i, e := range f.parsed {
		if err := p.Put(ctx, e); err != nil {
			return i, fmt.Errorf("seed %s: %w", model.KeyOf(e), err)
		}
	}
	return len(f.parsed), nil
}

// Directory returns a model.Directory that knows the fixture's members and
// channels, and nothing of other tenants.
func (f *Fixture) Directory() model.Directory {
	return &directory{
		tenant:   f.Tenant,
		members:  toSet(f.Members),
		channels: toSet(f.Channels),
	}
}

type directory struct {
	tenant   string
	members  map[string]bool
	channels map[string]bool
}

func (d *directory) MemberExists(_ context.Context, tenantID, userID string) (bool, error) {
	return tenantID == d.tenant && d.members[userID], nil
}

func (d *directory) ChannelExists(_ context.Context, tenantID, channelID string) (bool, error) {
	return tenantID == d.tenant && d.channels[channelID], nil
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
