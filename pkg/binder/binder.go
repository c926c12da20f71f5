// Package binder derives typed relationships from the entities resolved for one record
package binder

import (
	"context"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/rules"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

// Upserter is the part of the graph engine the binder drives
type Upserter interface {
	UpsertEntity(ctx context.Context, entityType models.EntityType, fields map[string]string) (string, bool, error)
	UpsertRelationship(ctx context.Context, relType string, from, to models.NodeRef) error
}

// Observer is notified after every successful upsert the binder makes
type Observer interface {
	EntityUpserted(ctx context.Context, entityType models.EntityType, identity string)
	RelationshipUpserted(ctx context.Context, relType string, from, to models.NodeRef)
}

// Binding is the resolved state of one record handed to the binder
type Binding struct {
	RecordID     string
	PersonID     string
	OrgID        string
	PersonFields map[string]string
}

// Result counts what one Bind call wrote
type Result struct {
	Locations     int
	Relationships int
}

// Binder upserts the edges implied by a Binding
type Binder struct {
	engine    Upserter
	locations []rules.LocationRelationship
	observer  Observer
	logger    ectologger.Logger
}

// New creates a binder for a rule set's location map
func New(engine Upserter, rs *rules.RuleSet, observer Observer, logger ectologger.Logger) *Binder {
	return &Binder{
		engine:    engine,
		locations: rs.LocationRelationships,
		observer:  observer,
		logger:    logger,
	}
}

// Bind writes, in order: Record DESCRIBES Person, Person ASSOCIATED_WITH_ORG
// Organization, then one Location and edge per declared location field that carries a
// value. Nothing is written without a person. The first store error aborts.
func (b *Binder) Bind(ctx context.Context, binding Binding) (Result, error) {
	ctx, span := tracing.StartSpan(ctx, "binder.Binder.Bind")
	defer span.End()

	result := Result{}
	if binding.PersonID == "" {
		return result, nil
	}
	person := models.EntityRef(models.EntityTypePerson, binding.PersonID)

	if err := b.relate(ctx, models.RelationshipDescribes, models.RecordRef(binding.RecordID), person); err != nil {
		return result, err
	}
	result.Relationships++

	if binding.OrgID != "" {
		org := models.EntityRef(models.EntityTypeOrganization, binding.OrgID)
		if err := b.relate(ctx, models.RelationshipAssociatedWithOrg, person, org); err != nil {
			return result, err
		}
		result.Relationships++
	}

	for _, lr := range b.locations {
		name := strings.TrimSpace(binding.PersonFields[lr.Field])
		if name == "" {
			continue
		}

		identity, ok, err := b.engine.UpsertEntity(ctx, models.EntityTypeLocation, map[string]string{"name": name})
		if err != nil {
			return result, err
		}
		if !ok {
			continue
		}
		result.Locations++
		b.observer.EntityUpserted(ctx, models.EntityTypeLocation, identity)

		if err := b.relate(ctx, lr.Type, person, models.EntityRef(models.EntityTypeLocation, identity)); err != nil {
			return result, err
		}
		result.Relationships++
	}

	b.logger.WithContext(ctx).WithFields(map[string]any{
		"record_id":     binding.RecordID,
		"person":        binding.PersonID,
		"locations":     result.Locations,
		"relationships": result.Relationships,
	}).Debug("Bound relationships")

	return result, nil
}

func (b *Binder) relate(ctx context.Context, relType string, from, to models.NodeRef) error {
	if err := b.engine.UpsertRelationship(ctx, relType, from, to); err != nil {
		return err
	}
	b.observer.RelationshipUpserted(ctx, relType, from, to)
	return nil
}

// NopObserver ignores every notification
type NopObserver struct{}

func (NopObserver) EntityUpserted(context.Context, models.EntityType, string) {}

func (NopObserver) RelationshipUpserted(context.Context, string, models.NodeRef, models.NodeRef) {}
