// Package events emits graph change events as a side channel of ingestion.
//
// Publishing never fails an ingestion run: failures are logged and counted.
package events

import (
	"context"
	"sync/atomic"

	"github.com/Gobusters/ectologger"

	bramblecontext "github.com/Ramsey-B/bramble/pkg/context"
	"github.com/Ramsey-B/bramble/pkg/kafka"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

const (
	EventRecordUpserted       = "record.upserted"
	EventEntityUpserted       = "entity.upserted"
	EventRelationshipUpserted = "relationship.upserted"
)

// Publisher sends events to the broker
type Publisher interface {
	PublishEntityEvent(ctx context.Context, event *kafka.EntityEvent) error
	PublishRelationshipEvent(ctx context.Context, event *kafka.RelationshipEvent) error
}

// Sink receives notifications of successful upserts
type Sink interface {
	RecordUpserted(ctx context.Context, recordID string)
	EntityUpserted(ctx context.Context, entityType models.EntityType, identity string)
	RelationshipUpserted(ctx context.Context, relType string, from, to models.NodeRef)
	Failures() int64
}

// Emitter publishes change events through a Publisher
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
	failures  atomic.Int64
}

// NewEmitter creates a new event emitter
func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger,
	}
}

// RecordUpserted emits a record.upserted event
func (e *Emitter) RecordUpserted(ctx context.Context, recordID string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.RecordUpserted")
	defer span.End()

	e.check(ctx, EventRecordUpserted, e.publisher.PublishEntityEvent(ctx, &kafka.EntityEvent{
		EventType:     EventRecordUpserted,
		RunID:         bramblecontext.GetRunID(ctx),
		EntityType:    "RECORD",
		CanonicalText: recordID,
		Source:        bramblecontext.GetSource(ctx),
	}))
}

// EntityUpserted emits an entity.upserted event
func (e *Emitter) EntityUpserted(ctx context.Context, entityType models.EntityType, identity string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EntityUpserted")
	defer span.End()

	e.check(ctx, EventEntityUpserted, e.publisher.PublishEntityEvent(ctx, &kafka.EntityEvent{
		EventType:     EventEntityUpserted,
		RunID:         bramblecontext.GetRunID(ctx),
		EntityType:    string(entityType),
		CanonicalText: identity,
		Source:        models.SourceStructuredText,
	}))
}

// RelationshipUpserted emits a relationship.upserted event
func (e *Emitter) RelationshipUpserted(ctx context.Context, relType string, from, to models.NodeRef) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.RelationshipUpserted")
	defer span.End()

	e.check(ctx, EventRelationshipUpserted, e.publisher.PublishRelationshipEvent(ctx, &kafka.RelationshipEvent{
		EventType:        EventRelationshipUpserted,
		RunID:            bramblecontext.GetRunID(ctx),
		RelationshipType: relType,
		From:             from.String(),
		To:               to.String(),
		Source:           models.SourceStructuredText,
	}))
}

// Failures is the number of events that could not be published
func (e *Emitter) Failures() int64 {
	return e.failures.Load()
}

func (e *Emitter) check(ctx context.Context, eventType string, err error) {
	if err == nil {
		return
	}
	e.failures.Add(1)
	e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
		"event_type": eventType,
	}).Warn("Failed to emit event, continuing")
}

// NopSink discards every notification
type NopSink struct{}

func (NopSink) RecordUpserted(context.Context, string) {}

func (NopSink) EntityUpserted(context.Context, models.EntityType, string) {}

func (NopSink) RelationshipUpserted(context.Context, string, models.NodeRef, models.NodeRef) {}

func (NopSink) Failures() int64 { return 0 }
