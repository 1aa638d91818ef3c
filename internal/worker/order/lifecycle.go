package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/bazaar/internal/config"
	"github.com/Additional-Code/bazaar/internal/entity"
	"github.com/Additional-Code/bazaar/internal/messaging"
	oplogrepo "github.com/Additional-Code/bazaar/internal/repository/oplog"
	ordersvc "github.com/Additional-Code/bazaar/internal/service/order"
	"github.com/Additional-Code/bazaar/internal/worker"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/bazaar/worker/order")

var lifecycleEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "bazaar_order_lifecycle_events_total",
	Help: "Order lifecycle events consumed from the bus, by event type.",
}, []string{"event"})

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewLifecycleHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewLifecycleHandler sets up a worker handler that records order
// lifecycle events in the audit log.
func NewLifecycleHandler(logger *zap.Logger, cfg config.Config, oplogs *oplogrepo.Repository) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.lifecycle", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event ordersvc.LifecycleEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode lifecycle event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}

		lifecycleEvents.WithLabelValues(event.Event).Inc()

		logger.Info("order lifecycle event",
			zap.String("event", event.Event),
			zap.Int64("id", event.ID),
			zap.String("number", event.Number),
			zap.String("status", string(event.Status)),
		)

		row := &entity.OpLog{
			Method:    "EVENT",
			URL:       fmt.Sprintf("order/%d/%s", event.ID, event.Event),
			CreatedAt: time.Now().UTC(),
		}
		if err := oplogs.Create(ctx, row); err != nil {
			// Audit writes are best-effort; the offset still commits.
			logger.Warn("lifecycle audit write failed", zap.Error(err))
		}

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
