// Package kafka publishes graph change events
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/bramble/pkg/metrics"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

// MessageWriter is the part of kafka.Writer the producer uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles Kafka event emission
type Producer struct {
	writer  MessageWriter
	brokers []string
	logger  ectologger.Logger
	topic   string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	var compression kafka.Compression
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "snappy", "":
		compression = kafka.Snappy
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return NewProducerWithWriter(writer, cfg.Brokers, cfg.Topic, logger)
}

// NewProducerWithWriter creates a producer over an existing writer
func NewProducerWithWriter(writer MessageWriter, brokers []string, topic string, logger ectologger.Logger) *Producer {
	return &Producer{
		writer:  writer,
		brokers: brokers,
		logger:  logger,
		topic:   topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Ping dials the first reachable broker
func (p *Producer) Ping(ctx context.Context) error {
	var errs []error
	for _, broker := range p.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", broker, err))
			continue
		}
		return conn.Close()
	}
	if len(errs) == 0 {
		return errors.New("no kafka brokers configured")
	}
	return fmt.Errorf("failed to reach kafka: %w", errors.Join(errs...))
}

// EntityEvent represents an event about a node
type EntityEvent struct {
	EventType     string    `json:"event_type"` // record.upserted, entity.upserted
	RunID         string    `json:"run_id"`
	EntityType    string    `json:"entity_type"`
	CanonicalText string    `json:"canonical_text"`
	Source        string    `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
}

// RelationshipEvent represents an event about an edge
type RelationshipEvent struct {
	EventType        string    `json:"event_type"` // relationship.upserted
	RunID            string    `json:"run_id"`
	RelationshipType string    `json:"relationship_type"`
	From             string    `json:"from"`
	To               string    `json:"to"`
	Source           string    `json:"source"`
	Timestamp        time.Time `json:"timestamp"`
}

// PublishEntityEvent publishes an entity event to Kafka
func (p *Producer) PublishEntityEvent(ctx context.Context, event *EntityEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishEntityEvent")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.write(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.EntityType + ":" + event.CanonicalText),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "run_id", Value: []byte(event.RunID)},
			{Key: "entity_type", Value: []byte(event.EntityType)},
		},
	})
}

// PublishRelationshipEvent publishes a relationship event to Kafka
func (p *Producer) PublishRelationshipEvent(ctx context.Context, event *RelationshipEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishRelationshipEvent")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.write(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.RelationshipType + ":" + event.From + "->" + event.To),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "run_id", Value: []byte(event.RunID)},
			{Key: "relationship_type", Value: []byte(event.RelationshipType)},
		},
	})
}

func (p *Producer) write(ctx context.Context, msg kafka.Message) error {
	if tp := tracing.TraceParent(ctx); tp != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "traceparent", Value: []byte(tp)})
	}

	start := time.Now()
	err := p.writer.WriteMessages(ctx, msg)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordKafkaPublish(p.topic, status, time.Since(start).Seconds())

	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"topic": p.topic,
			"key":   string(msg.Key),
		}).Error("Failed to publish event")
		return err
	}
	return nil
}
