package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/bramble/pkg/canonical"
	bramerrors "github.com/Ramsey-B/bramble/pkg/errors"
	"github.com/Ramsey-B/bramble/pkg/metrics"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

// Engine performs identity-keyed create-or-merge upserts. Every call is one statement
// in one auto-committed transaction.
type Engine struct {
	store      Store
	statements *Statements
	logger     ectologger.Logger
}

// NewEngine creates a new upsert engine
func NewEngine(store Store, statements *Statements, logger ectologger.Logger) *Engine {
	return &Engine{
		store:      store,
		statements: statements,
		logger:     logger,
	}
}

// Statements exposes the registry the engine was built with
func (e *Engine) Statements() *Statements {
	return e.statements
}

// EnsureSchema declares the record and entity uniqueness constraints
func (e *Engine) EnsureSchema(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Engine.EnsureSchema")
	defer span.End()

	constraints := []struct {
		label string
		keys  []string
	}{
		{e.statements.RecordLabel, []string{"record_id"}},
		{EntityLabel, []string{"entity_type", "canonical_text"}},
	}

	for _, c := range constraints {
		start := time.Now()
		err := e.store.DeclareUniqueConstraint(ctx, c.label, c.keys...)
		metrics.RecordStatement("ensure_schema", time.Since(start).Seconds(), err)
		if err != nil {
			e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"label": c.label,
				"keys":  c.keys,
			}).Error("Failed to declare constraint")
			return bramerrors.NewStoreError("ensure_schema", err)
		}
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"record_label": e.statements.RecordLabel,
	}).Info("Graph schema ensured")
	return nil
}

// UpsertRecord creates the record or overwrites its description
func (e *Engine) UpsertRecord(ctx context.Context, recordID string, rowIndex int, description, sourceFile string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Engine.UpsertRecord")
	defer span.End()

	fill, overwrite := RecordPolicy.Split(map[string]any{
		"description": description,
		"row_index":   rowIndex,
		"source_file": sourceFile,
	})

	err := e.write(ctx, "upsert_record", e.statements.UpsertRecord, map[string]any{
		"record_id": recordID,
		"fill":      fill,
		"overwrite": overwrite,
	})
	if err != nil {
		return err
	}

	metrics.NodesUpserted.WithLabelValues(e.statements.RecordLabel).Inc()
	return nil
}

// UpsertEntity merges an entity keyed by its canonical identity. It returns false
// without touching the store when the fields carry no identity.
func (e *Engine) UpsertEntity(ctx context.Context, entityType models.EntityType, fields map[string]string) (string, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Engine.UpsertEntity")
	defer span.End()

	statement, ok := e.statements.UpsertEntity(entityType)
	if !ok {
		return "", false, fmt.Errorf("no upsert statement for entity type %q", entityType)
	}

	identity, ok := canonical.Canonicalize(fields)
	if !ok {
		return "", false, nil
	}

	attrs := make(map[string]any, len(fields))
	for k, v := range fields {
		attrs[k] = v
	}
	attrs[canonical.IdentityField] = identity
	fill, overwrite := EntityPolicy.Split(attrs)

	err := e.write(ctx, "upsert_entity", statement, map[string]any{
		"entity_type":    string(entityType),
		"canonical_text": identity,
		"source":         models.SourceStructuredText,
		"fill":           fill,
		"overwrite":      overwrite,
	})
	if err != nil {
		return "", false, err
	}

	metrics.NodesUpserted.WithLabelValues(entityType.Label()).Inc()
	return identity, true, nil
}

// UpsertRelationship merges a typed edge between two existing nodes. Only registered
// relationship types are accepted.
func (e *Engine) UpsertRelationship(ctx context.Context, relType string, from, to models.NodeRef) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Engine.UpsertRelationship")
	defer span.End()

	shape, ok := e.statements.Relationship(relType)
	if !ok {
		return fmt.Errorf("unknown relationship type %q", relType)
	}
	if shape.FromRecord != from.IsRecord() || (!shape.FromRecord && shape.From != from.Type) || shape.To != to.Type {
		return fmt.Errorf("relationship %s cannot connect %s to %s", relType, from, to)
	}

	params := map[string]any{
		"to_type": string(to.Type),
		"to_id":   to.Identity,
		"source":  models.SourceStructuredText,
	}
	if from.IsRecord() {
		params["from_id"] = from.RecordID
	} else {
		params["from_type"] = string(from.Type)
		params["from_id"] = from.Identity
	}

	if err := e.write(ctx, "upsert_relationship", shape.Statement, params); err != nil {
		return err
	}

	metrics.RelationshipsUpserted.WithLabelValues(relType).Inc()
	return nil
}

func (e *Engine) write(ctx context.Context, op, statement string, params map[string]any) error {
	start := time.Now()
	err := e.store.ExecuteWrite(ctx, statement, params)
	metrics.RecordStatement(op, time.Since(start).Seconds(), err)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"op": op,
		}).Error("Graph write failed")
		return bramerrors.NewStoreError(op, err)
	}
	return nil
}
