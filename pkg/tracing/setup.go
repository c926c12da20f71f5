package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/Ramsey-B/bramble/pkg/optional"
)

const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http"
)

// Config holds OTLP exporter configuration
type Config struct {
	Enabled     bool
	ServiceName string
	// Endpoint is the collector address, e.g. localhost:4317 for gRPC or localhost:4318 for HTTP
	Endpoint string
	Protocol string
	Insecure bool
	Timeout  time.Duration
}

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(ctx context.Context) error

func noopShutdown(context.Context) error { return nil }

// Setup installs a global tracer exporting over OTLP. When tracing is disabled the
// result is unavailable and spans stay no-ops.
func Setup(ctx context.Context, cfg Config) optional.Result[ShutdownFunc] {
	if !cfg.Enabled {
		return optional.Unavailable[ShutdownFunc](noopShutdown, "tracing disabled")
	}
	if cfg.Endpoint == "" {
		return optional.Failed[ShutdownFunc](fmt.Errorf("tracing enabled without an OTLP endpoint"))
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return optional.Failed[ShutdownFunc](fmt.Errorf("failed to create OTLP exporter: %w", err))
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	SetTracer(provider.Tracer(cfg.ServiceName))

	return optional.Available[ShutdownFunc](provider.Shutdown)
}

func newExporter(ctx context.Context, cfg Config) (*otlptrace.Exporter, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	switch cfg.Protocol {
	case ProtocolGRPC:
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithTimeout(timeout),
		}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	case ProtocolHTTP, "":
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(cfg.Endpoint),
			otlptracehttp.WithTimeout(timeout),
		}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol: %s (use 'grpc' or 'http')", cfg.Protocol)
	}
}
