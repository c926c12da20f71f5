package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bramerrors "github.com/Ramsey-B/bramble/pkg/errors"
)

const validRules = `
record:
  label: Description
  id_prefix: ROW_
field_patterns:
  person:
    name:
      patterns: ['NAME:\s*(?P<value>[^;]+)']
      normalizers: [collapse_whitespace]
    citizenship: ['Citizenship:\s*(?<value>[^;]+)']
    departure_location: ['Departure:\s*(?P<value>[^;]+)']
  organization:
    name: { patterns: ['ORG:\s*(?P<value>[^;]+)'] }
location_relationships:
  departure_location: DEPARTED_FROM
  place_of_birth: BORN_IN
  arrival_location: DEPARTED_FROM
`

func TestParse_Valid(t *testing.T) {
	rs, err := Parse([]byte(validRules), "rules.yml")
	require.NoError(t, err)

	assert.Equal(t, "Description", rs.RecordLabel)
	assert.Equal(t, "ROW_", rs.IDPrefix)
	assert.Equal(t, "ROW_3", rs.RecordID(3))
	assert.Equal(t, []string{"person", "organization"}, rs.GroupNames())

	require.Len(t, rs.Groups, 2)
	assert.Equal(t, "person", rs.Groups[0].Name)
	assert.Equal(t, "organization", rs.Groups[1].Name)

	person, ok := rs.Group("person")
	require.True(t, ok)
	require.Len(t, person.Fields, 3)
	assert.Equal(t, "name", person.Fields[0].Name)
	assert.Equal(t, []string{"collapse_whitespace"}, person.Fields[0].Normalizers)
	assert.Equal(t, "citizenship", person.Fields[1].Name)
	assert.Len(t, person.Fields[1].Patterns, 1)

	_, ok = rs.Group("vehicle")
	assert.False(t, ok)

	assert.Equal(t, []LocationRelationship{
		{Field: "departure_location", Type: "DEPARTED_FROM"},
		{Field: "place_of_birth", Type: "BORN_IN"},
		{Field: "arrival_location", Type: "DEPARTED_FROM"},
	}, rs.LocationRelationships)
	assert.Equal(t, []string{"DEPARTED_FROM", "BORN_IN"}, rs.RelationshipTypes())
}

func TestParse_Defaults(t *testing.T) {
	rs, err := Parse([]byte(`
field_patterns:
  person:
    name: ['NAME:\s*(?P<value>[^;]+)']
`), "rules.yml")
	require.NoError(t, err)

	assert.Equal(t, DefaultRecordLabel, rs.RecordLabel)
	assert.Equal(t, "DESC_1", rs.RecordID(1))
	assert.Empty(t, rs.LocationRelationships)
}

func TestPattern_Find(t *testing.T) {
	rs, err := Parse([]byte(validRules), "rules.yml")
	require.NoError(t, err)
	person, _ := rs.Group("person")

	value, ok, err := person.Fields[0].Patterns[0].Find("name: Jane Roe; DOB: 1990")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Jane Roe", value)

	_, ok, err = person.Fields[0].Patterns[0].Find("nothing here")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPattern_NamedBackreference(t *testing.T) {
	p, err := compilePattern(`Alias:\s*(?P<quote>["'])(?P<value>.+?)(?P=quote)`)
	require.NoError(t, err)

	value, ok, err := p.Find(`alias: "Johnny 'J' Doe"; DOB: 1990`)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Johnny 'J' Doe", value)

	_, ok, err = p.Find(`Alias: "unterminated'`)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{
			name:  "malformed yaml",
			doc:   "field_patterns: [",
			field: "",
		},
		{
			name:  "no groups",
			doc:   "record: {label: Record}",
			field: "field_patterns",
		},
		{
			name:  "bad record label",
			doc:   "record: {label: 'Record) DETACH DELETE (n'}\nfield_patterns: {person: {name: ['(?P<value>x)']}}",
			field: "record.label",
		},
		{
			name:  "field without patterns",
			doc:   "field_patterns: {person: {name: []}}",
			field: "field_patterns.person.name",
		},
		{
			name:  "pattern without value group",
			doc:   "field_patterns: {person: {name: ['NAME: (.+)']}}",
			field: "field_patterns.person.name.patterns[0]",
		},
		{
			name:  "pattern does not compile",
			doc:   "field_patterns: {person: {name: ['(?P<value>[a-z']}}",
			field: "field_patterns.person.name.patterns[0]",
		},
		{
			name:  "reserved field name",
			doc:   "field_patterns: {person: {canonical_text: ['(?P<value>x)']}}",
			field: "field_patterns.person.canonical_text",
		},
		{
			name:  "record_id is reserved",
			doc:   "field_patterns: {person: {record_id: ['(?P<value>x)']}}",
			field: "field_patterns.person.record_id",
		},
		{
			name:  "field name not snake case",
			doc:   "field_patterns: {person: {FullName: ['(?P<value>x)']}}",
			field: "field_patterns.person.FullName",
		},
		{
			name:  "unknown normalizer",
			doc:   "field_patterns: {person: {name: {patterns: ['(?P<value>x)'], normalizers: [soundex]}}}",
			field: "field_patterns.person.name",
		},
		{
			name:  "relationship type injection",
			doc:   "field_patterns: {person: {name: ['(?P<value>x)']}}\nlocation_relationships: {departure_location: 'X]->() DETACH DELETE p //'}",
			field: "location_relationships.departure_location",
		},
		{
			name:  "reserved relationship type",
			doc:   "field_patterns: {person: {name: ['(?P<value>x)']}}\nlocation_relationships: {departure_location: DESCRIBES}",
			field: "location_relationships.departure_location",
		},
		{
			name:  "group is a list",
			doc:   "field_patterns: {person: ['(?P<value>x)']}",
			field: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := Parse([]byte(tt.doc), "rules.yml")
			require.Error(t, err)
			assert.Nil(t, rs)

			var ce *bramerrors.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, "rules.yml", ce.Source)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestLoad(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	assert.True(t, bramerrors.IsConfigError(err))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "rules.yml")
	require.NoError(t, os.WriteFile(path, []byte(validRules), 0o600))
	rs, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, rs.Path)
}

func TestLoad_RepositoryRules(t *testing.T) {
	rs, err := Load(filepath.Join("..", "..", "relation_rules.yml"))
	require.NoError(t, err)

	person, ok := rs.Group("person")
	require.True(t, ok)
	assert.Equal(t, "name", person.Fields[0].Name)
	assert.Len(t, rs.LocationRelationships, 4)
}

func TestIsCypherIdentifier(t *testing.T) {
	assert.True(t, IsCypherIdentifier("BORN_IN"))
	assert.True(t, IsCypherIdentifier("Record"))
	assert.False(t, IsCypherIdentifier("born_in"))
	assert.False(t, IsCypherIdentifier("A-B"))
	assert.False(t, IsCypherIdentifier(""))
}
