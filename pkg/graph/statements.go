package graph

import (
	"fmt"

	bramerrors "github.com/Ramsey-B/bramble/pkg/errors"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/rules"
)

// EntityLabel is carried by every entity node next to its type label
const EntityLabel = "Entity"

// mergeTail applies a MergePolicy split: $fill only lands where the node has no value,
// $overwrite always lands.
const mergeTail = `
WITH n, properties(n) AS existing
SET n += $fill
SET n += existing
SET n += $overwrite
SET n.updated_at = datetime()`

// RelationshipShape is a pre-built edge statement and the endpoints it connects.
// FromRecord marks a Record start node; otherwise From is the start entity type.
type RelationshipShape struct {
	Type       string
	FromRecord bool
	From       models.EntityType
	To         models.EntityType
	Statement  string
}

// Statements is the registry of every statement the engine may execute. It is built
// once from a rule set; nothing is rendered per call.
type Statements struct {
	RecordLabel   string
	UpsertRecord  string
	upsertEntity  map[models.EntityType]string
	relationships map[string]RelationshipShape

	GetRecord        string
	GetEntity        map[models.EntityType]string
	GetRelationships string
	SamplePeople     string
}

// NewStatements compiles the registry for a rule set
func NewStatements(rs *rules.RuleSet) (*Statements, error) {
	if !labelRegex.MatchString(rs.RecordLabel) {
		return nil, bramerrors.NewConfigError(rs.Path, fmt.Sprintf("invalid record label %q", rs.RecordLabel)).AddField("record.label")
	}

	s := &Statements{
		RecordLabel:   rs.RecordLabel,
		upsertEntity:  map[models.EntityType]string{},
		relationships: map[string]RelationshipShape{},
		GetEntity:     map[models.EntityType]string{},
	}

	s.UpsertRecord = fmt.Sprintf(`MERGE (n:%s {record_id: $record_id})
ON CREATE SET n.created_at = datetime()`, rs.RecordLabel) + mergeTail

	s.GetRecord = fmt.Sprintf(`MATCH (n:%s {record_id: $record_id})
RETURN properties(n) AS props`, rs.RecordLabel)

	for _, t := range models.EntityTypes() {
		s.upsertEntity[t] = fmt.Sprintf(`MERGE (n:%s:%s {entity_type: $entity_type, canonical_text: $canonical_text})
ON CREATE SET n.created_at = datetime(), n.source = $source`, EntityLabel, t.Label()) + mergeTail

		s.GetEntity[t] = fmt.Sprintf(`MATCH (n:%s:%s {entity_type: $entity_type, canonical_text: $canonical_text})
RETURN properties(n) AS props`, EntityLabel, t.Label())
	}

	s.register(RelationshipShape{Type: models.RelationshipDescribes, FromRecord: true, To: models.EntityTypePerson})
	s.register(RelationshipShape{Type: models.RelationshipAssociatedWithOrg, From: models.EntityTypePerson, To: models.EntityTypeOrganization})
	for _, relType := range rs.RelationshipTypes() {
		if !labelRegex.MatchString(relType) {
			return nil, bramerrors.NewConfigError(rs.Path, fmt.Sprintf("invalid relationship type %q", relType)).AddField("location_relationships")
		}
		if _, exists := s.relationships[relType]; exists {
			return nil, bramerrors.NewConfigError(rs.Path, fmt.Sprintf("relationship type %q is reserved", relType)).AddField("location_relationships")
		}
		s.register(RelationshipShape{Type: relType, From: models.EntityTypePerson, To: models.EntityTypeLocation})
	}

	s.GetRelationships = fmt.Sprintf(`MATCH (n:%[1]s {entity_type: $entity_type, canonical_text: $canonical_text})-[r]->(m)
RETURN type(r) AS type, 'out' AS direction, properties(r) AS props, m.record_id AS record_id, m.entity_type AS entity_type, m.canonical_text AS canonical_text
UNION ALL
MATCH (n:%[1]s {entity_type: $entity_type, canonical_text: $canonical_text})<-[r]-(m)
RETURN type(r) AS type, 'in' AS direction, properties(r) AS props, m.record_id AS record_id, m.entity_type AS entity_type, m.canonical_text AS canonical_text`, EntityLabel)

	s.SamplePeople = fmt.Sprintf(`MATCH (p:%[1]s:Person)
OPTIONAL MATCH (p)-[:%[2]s]->(o:%[1]s:Organization)
OPTIONAL MATCH (p)-[:DEPARTED_FROM]->(d:%[1]s:Location)
OPTIONAL MATCH (p)-[:ARRIVED_AT]->(a:%[1]s:Location)
RETURN p.name AS name, p.dob AS dob, o.name AS organization, d.name AS departed_from, a.name AS arrived_at
ORDER BY name
LIMIT $limit`, EntityLabel, models.RelationshipAssociatedWithOrg)

	return s, nil
}

func (s *Statements) register(shape RelationshipShape) {
	start := fmt.Sprintf("MATCH (a:%s:%s {entity_type: $from_type, canonical_text: $from_id})", EntityLabel, shape.From.Label())
	if shape.FromRecord {
		start = fmt.Sprintf("MATCH (a:%s {record_id: $from_id})", s.RecordLabel)
	}
	shape.Statement = fmt.Sprintf(`%s
MATCH (b:%s:%s {entity_type: $to_type, canonical_text: $to_id})
MERGE (a)-[r:%s]->(b)
ON CREATE SET r.source = $source, r.first_seen = datetime(), r.last_seen = datetime()
ON MATCH SET r.last_seen = datetime()`, start, EntityLabel, shape.To.Label(), shape.Type)
	s.relationships[shape.Type] = shape
}

// UpsertEntity returns the upsert statement for an entity type
func (s *Statements) UpsertEntity(t models.EntityType) (string, bool) {
	stmt, ok := s.upsertEntity[t]
	return stmt, ok
}

// Relationship returns the registered shape for a relationship type
func (s *Statements) Relationship(relType string) (RelationshipShape, bool) {
	shape, ok := s.relationships[relType]
	return shape, ok
}

// RelationshipTypes lists every registered relationship type
func (s *Statements) RelationshipTypes() []string {
	types := make([]string, 0, len(s.relationships))
	for t := range s.relationships {
		types = append(types, t)
	}
	return types
}
