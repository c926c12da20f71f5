package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	bramerrors "github.com/Ramsey-B/bramble/pkg/errors"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

// DefaultSampleLimit is the row limit of the people overview
const DefaultSampleLimit = 20

// ErrNotFound is returned when a requested node does not exist
var ErrNotFound = errors.New("not found")

// QueryService reads records, entities and edges back from the graph
type QueryService struct {
	store      Store
	statements *Statements
	logger     ectologger.Logger
}

// NewQueryService creates a new query service
func NewQueryService(store Store, statements *Statements, logger ectologger.Logger) *QueryService {
	return &QueryService{
		store:      store,
		statements: statements,
		logger:     logger,
	}
}

// GetRecord fetches a record by id
func (s *QueryService) GetRecord(ctx context.Context, recordID string) (*models.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.QueryService.GetRecord")
	defer span.End()

	rows, err := s.read(ctx, "get_record", s.statements.GetRecord, map[string]any{"record_id": recordID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("record %s: %w", recordID, ErrNotFound)
	}

	props := asMap(rows[0]["props"])
	return &models.Record{
		RecordID:    asString(props["record_id"]),
		Description: asString(props["description"]),
		RowIndex:    int(asInt64(props["row_index"])),
		SourceFile:  asString(props["source_file"]),
		CreatedAt:   asTime(props["created_at"]),
		UpdatedAt:   asTime(props["updated_at"]),
	}, nil
}

// GetEntity fetches an entity by type and canonical text
func (s *QueryService) GetEntity(ctx context.Context, entityType models.EntityType, canonicalText string) (*models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.QueryService.GetEntity")
	defer span.End()

	statement, ok := s.statements.GetEntity[entityType]
	if !ok {
		return nil, fmt.Errorf("no read statement for entity type %q", entityType)
	}

	rows, err := s.read(ctx, "get_entity", statement, map[string]any{
		"entity_type":    string(entityType),
		"canonical_text": canonicalText,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s %q: %w", entityType.PublicName(), canonicalText, ErrNotFound)
	}

	props := asMap(rows[0]["props"])
	entity := &models.Entity{
		EntityType:    entityType,
		CanonicalText: asString(props["canonical_text"]),
		Source:        asString(props["source"]),
		CreatedAt:     asTime(props["created_at"]),
		UpdatedAt:     asTime(props["updated_at"]),
		Attributes:    map[string]any{},
	}
	for k, v := range props {
		switch k {
		case "entity_type", "canonical_text", "source", "created_at", "updated_at":
			continue
		}
		entity.Attributes[k] = v
	}
	return entity, nil
}

// GetRelationships lists every edge touching an entity
func (s *QueryService) GetRelationships(ctx context.Context, entityType models.EntityType, canonicalText string) ([]models.Relationship, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.QueryService.GetRelationships")
	defer span.End()

	rows, err := s.read(ctx, "get_relationships", s.statements.GetRelationships, map[string]any{
		"entity_type":    string(entityType),
		"canonical_text": canonicalText,
	})
	if err != nil {
		return nil, err
	}

	rels := make([]models.Relationship, 0, len(rows))
	for _, row := range rows {
		props := asMap(row["props"])
		other := models.NodeRef{RecordID: asString(row["record_id"])}
		if other.RecordID == "" {
			other = models.EntityRef(models.EntityType(asString(row["entity_type"])), asString(row["canonical_text"]))
		}
		rels = append(rels, models.Relationship{
			Type:      asString(row["type"]),
			Direction: asString(row["direction"]),
			Other:     other,
			Source:    asString(props["source"]),
			FirstSeen: asTime(props["first_seen"]),
			LastSeen:  asTime(props["last_seen"]),
		})
	}
	return rels, nil
}

// SamplePeople returns the people overview: name, dob, organization and travel endpoints
func (s *QueryService) SamplePeople(ctx context.Context, limit int) ([]models.PersonOverview, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.QueryService.SamplePeople")
	defer span.End()

	if limit <= 0 {
		limit = DefaultSampleLimit
	}

	rows, err := s.read(ctx, "sample_people", s.statements.SamplePeople, map[string]any{"limit": int64(limit)})
	if err != nil {
		return nil, err
	}

	people := make([]models.PersonOverview, 0, len(rows))
	for _, row := range rows {
		people = append(people, models.PersonOverview{
			Person:       asString(row["name"]),
			DOB:          asString(row["dob"]),
			Organization: asString(row["organization"]),
			DepartedFrom: asString(row["departed_from"]),
			ArrivedAt:    asString(row["arrived_at"]),
		})
	}
	return people, nil
}

func (s *QueryService) read(ctx context.Context, op, statement string, params map[string]any) ([]map[string]any, error) {
	rows, err := s.store.ExecuteRead(ctx, statement, params)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"op": op,
		}).Error("Graph read failed")
		return nil, bramerrors.NewStoreError(op, err)
	}
	return rows, nil
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprintf("%v", s)
	}
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

// asTime accepts time.Time and driver temporal types such as LocalDateTime
func asTime(v any) *time.Time {
	switch t := v.(type) {
	case time.Time:
		return &t
	case interface{ Time() time.Time }:
		tt := t.Time()
		return &tt
	}
	return nil
}
