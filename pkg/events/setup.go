package events

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/bramble/pkg/kafka"
	"github.com/Ramsey-B/bramble/pkg/optional"
)

// Pinger checks broker reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// Setup builds the event sink. A disabled producer yields an Unavailable no-op sink;
// an enabled producer that cannot reach a broker is Failed.
func Setup(ctx context.Context, enabled bool, producer *kafka.Producer, logger ectologger.Logger) optional.Result[Sink] {
	if !enabled || producer == nil {
		return optional.Unavailable[Sink](NopSink{}, "kafka event emission disabled")
	}
	return setup(ctx, producer, producer, logger)
}

func setup(ctx context.Context, pinger Pinger, publisher Publisher, logger ectologger.Logger) optional.Result[Sink] {
	if err := pinger.Ping(ctx); err != nil {
		return optional.Failed[Sink](fmt.Errorf("failed to set up event emission: %w", err))
	}
	return optional.Available[Sink](NewEmitter(publisher, logger))
}
