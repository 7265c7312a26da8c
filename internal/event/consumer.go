// Package event connects the service to Kafka: it publishes domain events
// and cache invalidations, and applies invalidations broadcast by other
// instances.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	pkgkafka "github.com/utafrali/QuaichGo/pkg/kafka"
)

// LocalInvalidator evicts tags from this instance's cache without
// re-broadcasting them.
type LocalInvalidator interface {
	InvalidateLocal(ctx context.Context, tags ...string) error
}

// InvalidationConsumer applies cache invalidations published by other
// instances.
type InvalidationConsumer struct {
	invalidator LocalInvalidator
	instanceID  string
	logger      *slog.Logger
}

// NewInvalidationConsumer creates a consumer for this instance.
func NewInvalidationConsumer(invalidator LocalInvalidator, instanceID string, logger *slog.Logger) *InvalidationConsumer {
	return &InvalidationConsumer{
		invalidator: invalidator,
		instanceID:  instanceID,
		logger:      logger,
	}
}

// HandleCacheInvalidated processes cache.invalidated events. Events this
// instance produced were already applied locally and are skipped.
func (c *InvalidationConsumer) HandleCacheInvalidated(ctx context.Context, event *pkgkafka.Event) error {
	if event.Origin() == c.instanceID {
		return nil
	}

	var data InvalidationData
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}
	if len(data.Tags) == 0 {
		return nil
	}

	if err := c.invalidator.InvalidateLocal(ctx, data.Tags...); err != nil {
		return fmt.Errorf("apply invalidation from %s: %w", event.Origin(), err)
	}

	c.logger.DebugContext(ctx, "applied remote cache invalidation",
		slog.String("origin", event.Origin()),
		slog.String("tags", strings.Join(data.Tags, ",")),
	)
	return nil
}
