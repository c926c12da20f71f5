package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/bramble/pkg/events"
	"github.com/Ramsey-B/bramble/pkg/graph"
	"github.com/Ramsey-B/bramble/pkg/kafka"
	"github.com/Ramsey-B/bramble/pkg/optional"
	"github.com/Ramsey-B/bramble/pkg/rules"
	"github.com/Ramsey-B/bramble/pkg/startup"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

// runtime holds the connected dependencies of one command
type runtime struct {
	rules      *rules.RuleSet
	statements *graph.Statements
	client     *graph.Client
	producer   *kafka.Producer
	sink       events.Sink
	startup    *startup.Startup
	shutdown   tracing.ShutdownFunc
}

// connect validates configuration, loads the rules and brings the graph (and kafka when
// enabled) up through the startup orchestrator. Nothing is written before it returns.
func (a *app) connect(ctx context.Context, withEvents bool) (*runtime, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}

	rs, err := rules.Load(a.cfg.RulesPath)
	if err != nil {
		return nil, err
	}
	statements, err := graph.NewStatements(rs)
	if err != nil {
		return nil, err
	}

	rt := &runtime{rules: rs, statements: statements, sink: events.NopSink{}}

	shutdown, err := a.setupTracing(ctx)
	if err != nil {
		return nil, err
	}
	rt.shutdown = shutdown

	client, err := graph.NewClient(graph.Config{
		URI:      a.cfg.GraphDBURI,
		Username: a.cfg.GraphDBUser,
		Password: a.cfg.GraphDBPassword,
		Database: a.cfg.GraphDBName,
		Dialect:  graph.Dialect(a.cfg.GraphDBDialect),
	}, a.logger)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	rt.client = client

	rt.startup = startup.NewStartup(a.logger, a.cfg.StartupMaxAttempts)
	rt.startup.AddDependency(&startup.Func{
		Name:      "graph",
		StartFunc: client.VerifyConnectivity,
		StopFunc:  client.Close,
	})

	if withEvents {
		a.addEvents(ctx, rt)
	}

	if err := rt.startup.Start(ctx); err != nil {
		_ = client.Close(ctx)
		_ = shutdown(ctx)
		return nil, fmt.Errorf("failed to start dependencies: %w", err)
	}
	return rt, nil
}

func (a *app) addEvents(ctx context.Context, rt *runtime) {
	if !a.cfg.KafkaEnabled {
		logFeature(a.logger, "events", events.Setup(ctx, false, nil, a.logger))
		return
	}

	rt.producer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      a.cfg.KafkaBrokers,
		Topic:        a.cfg.KafkaOutputTopic,
		BatchSize:    a.cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(a.cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: a.cfg.KafkaRequiredAcks,
		Compression:  a.cfg.KafkaCompression,
	}, a.logger)

	rt.startup.AddDependency(&startup.Func{
		Name:     "kafka",
		Requires: []string{"graph"},
		StartFunc: func(ctx context.Context) error {
			result := events.Setup(ctx, true, rt.producer, a.logger)
			sink, err := result.Unwrap()
			if err != nil {
				return err
			}
			logFeature(a.logger, "events", result)
			rt.sink = sink
			return nil
		},
		StopFunc: func(context.Context) error {
			return rt.producer.Close()
		},
	})
}

func (a *app) setupTracing(ctx context.Context) (tracing.ShutdownFunc, error) {
	result := tracing.Setup(ctx, tracing.Config{
		Enabled:     a.cfg.TracingEnabled,
		ServiceName: a.cfg.AppName,
		Endpoint:    a.cfg.TracingEndpoint,
		Protocol:    a.cfg.TracingProtocol,
		Insecure:    a.cfg.TracingInsecure,
	})
	shutdown, err := result.Unwrap()
	if err != nil {
		return nil, err
	}
	logFeature(a.logger, "tracing", result)
	return shutdown, nil
}

func logFeature[T any](logger ectologger.Logger, name string, result optional.Result[T]) {
	fields := map[string]any{"feature": name, "state": result.State.String()}
	if result.Degraded() {
		fields["reason"] = result.Reason
		logger.WithFields(fields).Warn("Optional feature unavailable, continuing without it")
		return
	}
	logger.WithFields(fields).Info("Optional feature enabled")
}

// close stops every started dependency and flushes traces
func (rt *runtime) close(ctx context.Context) error {
	var err error
	if rt.startup != nil {
		err = rt.startup.Stop(ctx)
	}
	if rt.shutdown != nil {
		if shutdownErr := rt.shutdown(ctx); shutdownErr != nil && err == nil {
			err = shutdownErr
		}
	}
	return err
}
