// Package graphtest provides an in-memory graph.Store for tests.
//
// MemoryStore understands the statements of one graph.Statements registry and applies
// their parameters with the same merge semantics the real statements have, so callers
// can assert on resulting nodes and edges without a database.
package graphtest

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/Ramsey-B/bramble/pkg/graph"
	"github.com/Ramsey-B/bramble/pkg/models"
)

// Call is one recorded store invocation
type Call struct {
	Kind      string
	Statement string
	Params    map[string]any
}

// Edge is a stored relationship
type Edge struct {
	Type      string
	From      string
	To        string
	Props     map[string]any
	Observed  int
	FirstSeen time.Time
	LastSeen  time.Time
}

// MemoryStore is a recording in-memory graph.Store
type MemoryStore struct {
	mu          sync.Mutex
	statements  *graph.Statements
	clock       func() time.Time
	Calls       []Call
	Records     map[string]map[string]any
	Entities    map[string]map[string]any
	Edges       map[string]*Edge
	Constraints []string

	// FailOn makes the nth write (1-based) fail; a negative value fails every read.
	FailOn int
	// ReadRows is returned verbatim from ExecuteRead when set.
	ReadRows []map[string]any
	writes   int
}

// NewMemoryStore creates a store that understands the given registry
func NewMemoryStore(statements *graph.Statements) *MemoryStore {
	return &MemoryStore{
		statements: statements,
		clock:      time.Now,
		Records:    map[string]map[string]any{},
		Entities:   map[string]map[string]any{},
		Edges:      map[string]*Edge{},
	}
}

// EntityKey is the map key of an entity node
func EntityKey(t models.EntityType, identity string) string {
	return string(t) + "|" + identity
}

func (s *MemoryStore) ExecuteWrite(_ context.Context, statement string, params map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls = append(s.Calls, Call{Kind: "write", Statement: statement, Params: maps.Clone(params)})
	s.writes++
	if s.FailOn > 0 && s.writes == s.FailOn {
		return fmt.Errorf("connection refused")
	}

	now := s.clock()
	if statement == s.statements.UpsertRecord {
		id := params["record_id"].(string)
		s.Records[id] = merge(s.Records[id], map[string]any{"record_id": id}, params, now)
		return nil
	}
	for _, t := range models.EntityTypes() {
		if stmt, _ := s.statements.UpsertEntity(t); stmt == statement {
			key := EntityKey(t, params["canonical_text"].(string))
			create := map[string]any{
				"entity_type":    params["entity_type"],
				"canonical_text": params["canonical_text"],
				"source":         params["source"],
			}
			s.Entities[key] = merge(s.Entities[key], create, params, now)
			return nil
		}
	}
	for _, relType := range s.statements.RelationshipTypes() {
		shape, _ := s.statements.Relationship(relType)
		if shape.Statement != statement {
			continue
		}
		from := fmt.Sprint(params["from_id"])
		if !shape.FromRecord {
			from = EntityKey(models.EntityType(params["from_type"].(string)), from)
			if _, ok := s.Entities[from]; !ok {
				return nil
			}
		} else if _, ok := s.Records[from]; !ok {
			return nil
		}
		to := EntityKey(models.EntityType(params["to_type"].(string)), params["to_id"].(string))
		if _, ok := s.Entities[to]; !ok {
			return nil
		}

		key := relType + "|" + from + "|" + to
		edge, ok := s.Edges[key]
		if !ok {
			edge = &Edge{Type: relType, From: from, To: to, FirstSeen: now, Props: map[string]any{"source": params["source"]}}
			s.Edges[key] = edge
		}
		edge.Observed++
		edge.LastSeen = now
		return nil
	}
	return fmt.Errorf("unrecognised statement: %s", statement)
}

// merge mirrors the MERGE + fill/existing/overwrite statement tail
func merge(existing, onCreate map[string]any, params map[string]any, now time.Time) map[string]any {
	if existing == nil {
		existing = maps.Clone(onCreate)
		existing["created_at"] = now
	}
	node := map[string]any{}
	maps.Copy(node, params["fill"].(map[string]any))
	maps.Copy(node, existing)
	maps.Copy(node, params["overwrite"].(map[string]any))
	node["updated_at"] = now
	return node
}

func (s *MemoryStore) ExecuteRead(_ context.Context, statement string, params map[string]any) ([]map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls = append(s.Calls, Call{Kind: "read", Statement: statement, Params: maps.Clone(params)})
	if s.FailOn < 0 {
		return nil, fmt.Errorf("connection refused")
	}
	return s.ReadRows, nil
}

func (s *MemoryStore) DeclareUniqueConstraint(_ context.Context, label string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls = append(s.Calls, Call{Kind: "constraint", Params: map[string]any{"label": label, "keys": keys}})
	s.Constraints = append(s.Constraints, fmt.Sprintf("%s%v", label, keys))
	return nil
}

// SetClock replaces the time source used for timestamps
func (s *MemoryStore) SetClock(clock func() time.Time) {
	s.clock = clock
}

// Writes returns the recorded write calls
func (s *MemoryStore) Writes() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Call
	for _, c := range s.Calls {
		if c.Kind == "write" {
			out = append(out, c)
		}
	}
	return out
}

// EdgesOfType returns the stored edges of one type
func (s *MemoryStore) EdgesOfType(relType string) []*Edge {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Edge
	for _, e := range s.Edges {
		if e.Type == relType {
			out = append(out, e)
		}
	}
	return out
}

// EntitiesOfType returns the stored entities of one type keyed by canonical text
func (s *MemoryStore) EntitiesOfType(t models.EntityType) map[string]map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := map[string]map[string]any{}
	for _, e := range s.Entities {
		if e["entity_type"] == string(t) {
			out[e["canonical_text"].(string)] = e
		}
	}
	return out
}
