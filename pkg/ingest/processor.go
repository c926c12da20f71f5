// Package ingest runs the extraction pipeline over a source: one record at a time,
// record upsert, extraction, entity resolution and relationship binding.
package ingest

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/bramble/pkg/binder"
	"github.com/Ramsey-B/bramble/pkg/canonical"
	bramblecontext "github.com/Ramsey-B/bramble/pkg/context"
	bramerrors "github.com/Ramsey-B/bramble/pkg/errors"
	"github.com/Ramsey-B/bramble/pkg/events"
	"github.com/Ramsey-B/bramble/pkg/extractor"
	"github.com/Ramsey-B/bramble/pkg/metrics"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/rules"
	"github.com/Ramsey-B/bramble/pkg/source"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

// Engine is the graph upsert surface the processor drives
type Engine interface {
	binder.Upserter
	UpsertRecord(ctx context.Context, recordID string, rowIndex int, description, sourceFile string) error
}

// Summary counts the outcome of one run
type Summary struct {
	RunID                 string        `json:"run_id"`
	Source                string        `json:"source"`
	RecordsSeen           int           `json:"records_seen"`
	RecordsProcessed      int           `json:"records_processed"`
	RecordsSkipped        int           `json:"records_skipped"`
	PersonsUpserted       int           `json:"persons_upserted"`
	OrganizationsUpserted int           `json:"organizations_upserted"`
	LocationsUpserted     int           `json:"locations_upserted"`
	RelationshipsUpserted int           `json:"relationships_upserted"`
	IdentityMisses        int           `json:"identity_misses"`
	EventFailures         int64         `json:"event_failures"`
	Duration              time.Duration `json:"duration"`
}

func (s *Summary) logFields() map[string]any {
	return map[string]any{
		"run_id":                 s.RunID,
		"source":                 s.Source,
		"records_seen":           s.RecordsSeen,
		"records_processed":      s.RecordsProcessed,
		"records_skipped":        s.RecordsSkipped,
		"persons_upserted":       s.PersonsUpserted,
		"organizations_upserted": s.OrganizationsUpserted,
		"locations_upserted":     s.LocationsUpserted,
		"relationships_upserted": s.RelationshipsUpserted,
		"identity_misses":        s.IdentityMisses,
		"event_failures":         s.EventFailures,
		"duration_ms":            s.Duration.Milliseconds(),
	}
}

// Processor orchestrates one ingestion run
type Processor struct {
	rules     *rules.RuleSet
	extractor *extractor.Extractor
	engine    Engine
	binder    *binder.Binder
	sink      events.Sink
	logger    ectologger.Logger
}

// NewProcessor wires the pipeline for a rule set
func NewProcessor(rs *rules.RuleSet, engine Engine, sink events.Sink, logger ectologger.Logger) *Processor {
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Processor{
		rules:     rs,
		extractor: extractor.New(rs, logger),
		engine:    engine,
		binder:    binder.New(engine, rs, sink, logger),
		sink:      sink,
		logger:    logger,
	}
}

// Run processes every record of src in order. The first store failure or a cancelled
// context aborts the run; the summary up to that point is returned with the error.
func (p *Processor) Run(ctx context.Context, src source.Source) (*Summary, error) {
	ctx, span := tracing.StartSpan(ctx, "ingest.Processor.Run")
	defer span.End()

	summary := &Summary{
		RunID:  uuid.NewString(),
		Source: src.Name(),
	}
	ctx = bramblecontext.SetRunID(ctx, summary.RunID)
	ctx = bramblecontext.SetSource(ctx, summary.Source)

	log := p.logger.WithContext(ctx).WithFields(bramblecontext.LogFields(ctx))
	log.Info("Ingestion run started")

	start := time.Now()
	err := src.Read(ctx, func(rec models.InputRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return p.processRecord(ctx, rec, summary)
	})
	summary.Duration = time.Since(start)
	summary.EventFailures = p.sink.Failures()

	log = p.logger.WithContext(ctx).WithFields(summary.logFields())
	if err != nil {
		status := "failed"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = "cancelled"
		}
		metrics.RecordRun(status, summary.Duration.Seconds())
		log.WithError(err).Error("Ingestion run aborted")
		return summary, err
	}

	metrics.RecordRun("success", summary.Duration.Seconds())
	log.Info("Ingestion run completed")
	return summary, nil
}

func (p *Processor) processRecord(ctx context.Context, rec models.InputRecord, summary *Summary) error {
	summary.RecordsSeen++

	description := strings.TrimSpace(rec.Description)
	if description == "" {
		summary.RecordsSkipped++
		metrics.RecordsTotal.WithLabelValues("skipped").Inc()
		p.logger.WithContext(ctx).WithFields(map[string]any{
			"row_index": rec.RowIndex,
		}).Debug("Skipping record with empty description")
		return nil
	}

	recordID := p.rules.RecordID(rec.RowIndex)
	ctx = bramblecontext.SetRecordID(ctx, recordID)
	ctx, span := tracing.StartSpan(ctx, "ingest.Processor.processRecord")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(bramblecontext.LogFields(ctx))

	if err := p.engine.UpsertRecord(ctx, recordID, rec.RowIndex, description, summary.Source); err != nil {
		return err
	}
	p.sink.RecordUpserted(ctx, recordID)

	fields := p.extractor.Extract(ctx, description)
	log.WithFields(map[string]any{
		"fields": fields,
	}).Debug("Extracted fields")

	personFields := fields.Group(models.GroupPerson)
	personID, err := p.upsertGroup(ctx, models.GroupPerson, models.EntityTypePerson, personFields, summary)
	if err != nil {
		return err
	}
	orgID, err := p.upsertGroup(ctx, models.GroupOrganization, models.EntityTypeOrganization, fields.Group(models.GroupOrganization), summary)
	if err != nil {
		return err
	}

	unbound := ectolinq.Filter(p.rules.GroupNames(), func(group string) bool {
		return group != models.GroupPerson && group != models.GroupOrganization && len(fields.Group(group)) > 0
	})
	for _, group := range unbound {
		log.WithFields(map[string]any{
			"group":  group,
			"fields": fields.Group(group),
		}).Debug("Group extracted but not bound to an entity type")
	}

	result, err := p.binder.Bind(ctx, binder.Binding{
		RecordID:     recordID,
		PersonID:     personID,
		OrgID:        orgID,
		PersonFields: personFields,
	})
	if err != nil {
		return err
	}

	summary.LocationsUpserted += result.Locations
	summary.RelationshipsUpserted += result.Relationships
	summary.RecordsProcessed++
	metrics.RecordsTotal.WithLabelValues("processed").Inc()
	return nil
}

// upsertGroup resolves and upserts the entity of one group. A missing identity is a
// counted skip, not an error.
func (p *Processor) upsertGroup(ctx context.Context, group string, entityType models.EntityType, fields map[string]string, summary *Summary) (string, error) {
	if _, declared := p.rules.Group(group); !declared {
		return "", nil
	}

	if _, err := canonical.Resolve(fields); err != nil {
		summary.IdentityMisses++
		metrics.IdentityMisses.WithLabelValues(string(entityType)).Inc()
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"group":     group,
			"record_id": bramblecontext.GetRecordID(ctx),
		}).Debug("Entity skipped")
		return "", nil
	}

	identity, ok, err := p.engine.UpsertEntity(ctx, entityType, fields)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}

	switch entityType {
	case models.EntityTypePerson:
		summary.PersonsUpserted++
	case models.EntityTypeOrganization:
		summary.OrganizationsUpserted++
	}
	p.sink.EntityUpserted(ctx, entityType, identity)
	return identity, nil
}

// ExitCode maps a run error to the process exit status
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case bramerrors.IsConfigError(err):
		return 2
	default:
		return 1
	}
}
