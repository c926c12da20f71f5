package graph_test

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bramerrors "github.com/Ramsey-B/bramble/pkg/errors"
	"github.com/Ramsey-B/bramble/pkg/graph"
	"github.com/Ramsey-B/bramble/pkg/graph/graphtest"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/rules"
)

const engineRules = `
field_patterns:
  person:
    name: ['NAME:\s*(?P<value>[^;]+)']
location_relationships:
  departure_location: DEPARTED_FROM
  arrival_location: ARRIVED_AT
`

func newTestEngine(t *testing.T) (*graph.Engine, *graphtest.MemoryStore) {
	t.Helper()
	rs, err := rules.Parse([]byte(engineRules), "test.yml")
	require.NoError(t, err)
	statements, err := graph.NewStatements(rs)
	require.NoError(t, err)

	store := graphtest.NewMemoryStore(statements)
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return graph.NewEngine(store, statements, logger), store
}

func TestEngine_EnsureSchema(t *testing.T) {
	engine, store := newTestEngine(t)

	require.NoError(t, engine.EnsureSchema(context.Background()))
	require.NoError(t, engine.EnsureSchema(context.Background()))

	assert.Equal(t, []string{
		"Record[record_id]",
		"Entity[entity_type canonical_text]",
		"Record[record_id]",
		"Entity[entity_type canonical_text]",
	}, store.Constraints)
}

func TestEngine_UpsertRecord(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return first })
	require.NoError(t, engine.UpsertRecord(ctx, "DESC_1", 1, "NAME: Jane Roe", "a.csv"))

	second := first.Add(time.Hour)
	store.SetClock(func() time.Time { return second })
	require.NoError(t, engine.UpsertRecord(ctx, "DESC_1", 1, "NAME: Jane Q. Roe", "b.csv"))

	require.Len(t, store.Records, 1)
	rec := store.Records["DESC_1"]
	assert.Equal(t, "NAME: Jane Q. Roe", rec["description"], "description is overwritten")
	assert.Equal(t, "a.csv", rec["source_file"], "other attributes are coalesced")
	assert.Equal(t, 1, rec["row_index"])
	assert.Equal(t, first, rec["created_at"])
	assert.Equal(t, second, rec["updated_at"])

	writes := store.Writes()
	require.Len(t, writes, 2)
	assert.Equal(t, engine.Statements().UpsertRecord, writes[0].Statement)
	assert.Equal(t, map[string]any{"description": "NAME: Jane Roe"}, writes[0].Params["overwrite"])
	assert.Equal(t, writes[0].Statement, writes[1].Statement, "statement text never varies")
}

func TestEngine_UpsertEntity_CoalesceOnMatch(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	id, ok, err := engine.UpsertEntity(ctx, models.EntityTypePerson, map[string]string{
		"name": "John Doe",
		"dob":  "1980-01-01",
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "John Doe", id)

	_, _, err = engine.UpsertEntity(ctx, models.EntityTypePerson, map[string]string{
		"name":        "John Doe",
		"dob":         "1981-02-02",
		"citizenship": "Canada",
	})
	require.NoError(t, err)

	people := store.EntitiesOfType(models.EntityTypePerson)
	require.Len(t, people, 1)
	person := people["John Doe"]
	assert.Equal(t, "1980-01-01", person["dob"], "first non-null value survives")
	assert.Equal(t, "Canada", person["citizenship"], "absent attribute is filled")
	assert.Equal(t, "PERSON", person["entity_type"])
	assert.Equal(t, models.SourceStructuredText, person["source"])

	writes := store.Writes()
	require.Len(t, writes, 2)
	assert.Equal(t, writes[0].Statement, writes[1].Statement)
	assert.NotContains(t, writes[1].Statement, "Canada")
}

func TestEngine_UpsertEntity_NoIdentity(t *testing.T) {
	engine, store := newTestEngine(t)

	id, ok, err := engine.UpsertEntity(context.Background(), models.EntityTypePerson, map[string]string{"dob": "1980-01-01"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)
	assert.Empty(t, store.Calls)
}

func TestEngine_UpsertEntity_TrimsIdentity(t *testing.T) {
	engine, store := newTestEngine(t)

	id, ok, err := engine.UpsertEntity(context.Background(), models.EntityTypeOrganization, map[string]string{"name": " Acme "})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Acme", id)
	assert.Equal(t, "Acme", store.Entities[graphtest.EntityKey(models.EntityTypeOrganization, "Acme")]["name"])
}

func TestEngine_UpsertRelationship(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.UpsertRecord(ctx, "DESC_1", 1, "x", "a.csv"))
	_, _, err := engine.UpsertEntity(ctx, models.EntityTypePerson, map[string]string{"name": "Jane Roe"})
	require.NoError(t, err)
	_, _, err = engine.UpsertEntity(ctx, models.EntityTypeLocation, map[string]string{"name": "JFK"})
	require.NoError(t, err)

	person := models.EntityRef(models.EntityTypePerson, "Jane Roe")
	jfk := models.EntityRef(models.EntityTypeLocation, "JFK")

	for i := 0; i < 2; i++ {
		require.NoError(t, engine.UpsertRelationship(ctx, "DEPARTED_FROM", person, jfk))
		require.NoError(t, engine.UpsertRelationship(ctx, models.RelationshipDescribes, models.RecordRef("DESC_1"), person))
	}

	departed := store.EdgesOfType("DEPARTED_FROM")
	require.Len(t, departed, 1)
	assert.Equal(t, 2, departed[0].Observed)
	assert.Len(t, store.EdgesOfType(models.RelationshipDescribes), 1)
}

func TestEngine_UpsertRelationship_Rejects(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	person := models.EntityRef(models.EntityTypePerson, "Jane Roe")
	jfk := models.EntityRef(models.EntityTypeLocation, "JFK")

	err := engine.UpsertRelationship(ctx, "ARRESTED_AT", person, jfk)
	assert.ErrorContains(t, err, "unknown relationship type")

	err = engine.UpsertRelationship(ctx, "DEPARTED_FROM]->(x) DETACH DELETE x //", person, jfk)
	assert.Error(t, err)

	err = engine.UpsertRelationship(ctx, models.RelationshipDescribes, person, jfk)
	assert.ErrorContains(t, err, "cannot connect")

	assert.Empty(t, store.Calls)
}

func TestEngine_StoreFailure(t *testing.T) {
	engine, store := newTestEngine(t)
	store.FailOn = 1

	err := engine.UpsertRecord(context.Background(), "DESC_1", 1, "x", "a.csv")
	require.Error(t, err)

	var se *bramerrors.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "upsert_record", se.Op)
}
