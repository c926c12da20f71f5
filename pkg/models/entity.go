package models

import (
	"fmt"
	"time"
)

// EntityType identifies one kind of entity node
type EntityType string

const (
	EntityTypePerson       EntityType = "PERSON"
	EntityTypeOrganization EntityType = "ORG"
	EntityTypeLocation     EntityType = "GPE"
)

// SourceStructuredText is the provenance tag written on every node and edge
const SourceStructuredText = "structured_text"

// Rule groups recognised by the engine
const (
	GroupPerson       = "person"
	GroupOrganization = "organization"
)

var entityTypes = []EntityType{EntityTypePerson, EntityTypeOrganization, EntityTypeLocation}

// EntityTypes returns every supported entity type
func EntityTypes() []EntityType {
	return append([]EntityType(nil), entityTypes...)
}

// Label is the specific node label; every entity also carries Entity.
func (t EntityType) Label() string {
	switch t {
	case EntityTypePerson:
		return "Person"
	case EntityTypeOrganization:
		return "Organization"
	case EntityTypeLocation:
		return "Location"
	}
	return ""
}

// PublicName is the lowercase name used on the read API
func (t EntityType) PublicName() string {
	switch t {
	case EntityTypePerson:
		return "person"
	case EntityTypeOrganization:
		return "organization"
	case EntityTypeLocation:
		return "location"
	}
	return ""
}

func (t EntityType) Valid() bool {
	return t.Label() != ""
}

// ParseEntityType accepts the public name, the label or the discriminant
func ParseEntityType(s string) (EntityType, error) {
	for _, t := range entityTypes {
		if s == t.PublicName() || s == t.Label() || s == string(t) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

// Fields holds extracted values keyed by group then field name
type Fields map[string]map[string]string

// Group returns the fields of one group, or nil
func (f Fields) Group(name string) map[string]string {
	if f == nil {
		return nil
	}
	return f[name]
}

// Entity is a node read back from the graph
type Entity struct {
	EntityType    EntityType     `json:"entity_type"`
	CanonicalText string         `json:"canonical_text"`
	Source        string         `json:"source"`
	Attributes    map[string]any `json:"attributes,omitempty"`
	CreatedAt     *time.Time     `json:"created_at,omitempty"`
	UpdatedAt     *time.Time     `json:"updated_at,omitempty"`
}
