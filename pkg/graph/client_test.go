package graph

import (
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstraintStatement(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		label   string
		keys    []string
		want    string
	}{
		{
			name:    "neo4j single key",
			dialect: DialectNeo4j,
			label:   "Record",
			keys:    []string{"record_id"},
			want:    "CREATE CONSTRAINT IF NOT EXISTS FOR (n:Record) REQUIRE n.record_id IS UNIQUE",
		},
		{
			name:    "neo4j composite",
			dialect: DialectNeo4j,
			label:   "Entity",
			keys:    []string{"entity_type", "canonical_text"},
			want:    "CREATE CONSTRAINT IF NOT EXISTS FOR (n:Entity) REQUIRE (n.entity_type, n.canonical_text) IS UNIQUE",
		},
		{
			name:    "memgraph composite",
			dialect: DialectMemgraph,
			label:   "Entity",
			keys:    []string{"entity_type", "canonical_text"},
			want:    "CREATE CONSTRAINT ON (n:Entity) ASSERT n.entity_type, n.canonical_text IS UNIQUE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := constraintStatement(tt.dialect, tt.label, tt.keys...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConstraintStatement_Rejects(t *testing.T) {
	_, err := constraintStatement(DialectNeo4j, "Record) DETACH DELETE (x", "record_id")
	assert.Error(t, err)

	_, err = constraintStatement(DialectNeo4j, "Record", "record_id IS UNIQUE //")
	assert.Error(t, err)

	_, err = constraintStatement(DialectNeo4j, "Record")
	assert.Error(t, err)

	_, err = constraintStatement(Dialect("neptune"), "Record", "record_id")
	assert.Error(t, err)
}

func TestPlainValue(t *testing.T) {
	now := time.Now()
	node := neo4j.Node{Labels: []string{"Entity", "Person"}, Props: map[string]any{"name": "Jane"}}

	got := plainValue([]any{node, map[string]any{"at": now}, "x"})
	assert.Equal(t, []any{map[string]any{"name": "Jane"}, map[string]any{"at": now}, "x"}, got)
}

func TestMergePolicy_Split(t *testing.T) {
	policy := MergePolicy{
		Default: Coalesce,
		Fields:  map[string]Strategy{"description": Overwrite},
	}

	fill, overwrite := policy.Split(map[string]any{
		"description":    "new text",
		"row_index":      3,
		"source_file":    "",
		"dob":            nil,
		"canonical_text": "spoofed",
		"created_at":     "spoofed",
	})

	assert.Equal(t, map[string]any{"row_index": 3}, fill)
	assert.Equal(t, map[string]any{"description": "new text"}, overwrite)
	assert.Equal(t, Overwrite, policy.Strategy("description"))
	assert.Equal(t, Coalesce, policy.Strategy("anything"))
	assert.Equal(t, "coalesce", EntityPolicy.Strategy("dob").String())
}
