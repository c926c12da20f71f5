package graph_test

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bramerrors "github.com/Ramsey-B/bramble/pkg/errors"
	"github.com/Ramsey-B/bramble/pkg/graph"
	"github.com/Ramsey-B/bramble/pkg/graph/graphtest"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/rules"
)

func newTestQueryService(t *testing.T) (*graph.QueryService, *graphtest.MemoryStore, *graph.Statements) {
	t.Helper()
	rs, err := rules.Parse([]byte(engineRules), "test.yml")
	require.NoError(t, err)
	statements, err := graph.NewStatements(rs)
	require.NoError(t, err)

	store := graphtest.NewMemoryStore(statements)
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return graph.NewQueryService(store, statements, logger), store, statements
}

func TestQueryService_GetRecord(t *testing.T) {
	qs, store, statements := newTestQueryService(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	store.ReadRows = []map[string]any{{
		"props": map[string]any{
			"record_id":   "DESC_4",
			"description": "NAME: Jane Roe",
			"row_index":   int64(4),
			"source_file": "descriptions.csv",
			"created_at":  created,
			"updated_at":  dbtype.LocalDateTime(created),
		},
	}}

	rec, err := qs.GetRecord(context.Background(), "DESC_4")
	require.NoError(t, err)
	assert.Equal(t, "DESC_4", rec.RecordID)
	assert.Equal(t, 4, rec.RowIndex)
	assert.Equal(t, "descriptions.csv", rec.SourceFile)
	require.NotNil(t, rec.CreatedAt)
	assert.True(t, created.Equal(*rec.CreatedAt))
	require.NotNil(t, rec.UpdatedAt)

	require.Len(t, store.Calls, 1)
	assert.Equal(t, statements.GetRecord, store.Calls[0].Statement)
	assert.Equal(t, map[string]any{"record_id": "DESC_4"}, store.Calls[0].Params)
}

func TestQueryService_NotFound(t *testing.T) {
	qs, _, _ := newTestQueryService(t)

	_, err := qs.GetRecord(context.Background(), "DESC_9")
	assert.ErrorIs(t, err, graph.ErrNotFound)

	_, err = qs.GetEntity(context.Background(), models.EntityTypePerson, "Nobody")
	assert.ErrorIs(t, err, graph.ErrNotFound)
}

func TestQueryService_GetEntity(t *testing.T) {
	qs, store, _ := newTestQueryService(t)
	store.ReadRows = []map[string]any{{
		"props": map[string]any{
			"entity_type":    "PERSON",
			"canonical_text": "Jane Roe",
			"name":           "Jane Roe",
			"citizenship":    "USA",
			"source":         "structured_text",
		},
	}}

	entity, err := qs.GetEntity(context.Background(), models.EntityTypePerson, "Jane Roe")
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", entity.CanonicalText)
	assert.Equal(t, "structured_text", entity.Source)
	assert.Equal(t, map[string]any{"name": "Jane Roe", "citizenship": "USA"}, entity.Attributes)
	assert.Equal(t, map[string]any{"entity_type": "PERSON", "canonical_text": "Jane Roe"}, store.Calls[0].Params)
}

func TestQueryService_GetRelationships(t *testing.T) {
	qs, store, _ := newTestQueryService(t)
	store.ReadRows = []map[string]any{
		{"type": "DEPARTED_FROM", "direction": "out", "props": map[string]any{"source": "structured_text"}, "entity_type": "GPE", "canonical_text": "JFK"},
		{"type": "DESCRIBES", "direction": "in", "props": map[string]any{}, "record_id": "DESC_1"},
	}

	rels, err := qs.GetRelationships(context.Background(), models.EntityTypePerson, "Jane Roe")
	require.NoError(t, err)
	require.Len(t, rels, 2)
	assert.Equal(t, models.EntityRef(models.EntityTypeLocation, "JFK"), rels[0].Other)
	assert.Equal(t, "out", rels[0].Direction)
	assert.Equal(t, models.RecordRef("DESC_1"), rels[1].Other)
}

func TestQueryService_SamplePeople(t *testing.T) {
	qs, store, statements := newTestQueryService(t)
	store.ReadRows = []map[string]any{
		{"name": "Jane Roe", "dob": nil, "organization": nil, "departed_from": "JFK", "arrived_at": nil},
	}

	people, err := qs.SamplePeople(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []models.PersonOverview{{Person: "Jane Roe", DepartedFrom: "JFK"}}, people)
	assert.Equal(t, statements.SamplePeople, store.Calls[0].Statement)
	assert.Equal(t, int64(graph.DefaultSampleLimit), store.Calls[0].Params["limit"])
}

func TestQueryService_StoreError(t *testing.T) {
	qs, store, _ := newTestQueryService(t)
	store.FailOn = -1

	_, err := qs.SamplePeople(context.Background(), 5)
	assert.True(t, bramerrors.IsStoreError(err))
}
