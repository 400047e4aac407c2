package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/safegergis/tome/services/user-data-service/internal/adapters/secondary/eventbroker"
	"github.com/safegergis/tome/services/user-data-service/internal/core/domain"
	"github.com/safegergis/tome/services/user-data-service/internal/core/ports"
)

// EventHandler consomme les événements NATS (Primary Adapter) :
// activity.> pour le fan-out des timelines, catalog.book.updated pour
// l'invalidation du cache de résumés, users.registered pour la création
// des listes système du nouvel utilisateur.
type EventHandler struct {
	feed  ports.FeedService
	lists ports.ListService
}

func NewEventHandler(feed ports.FeedService, lists ports.ListService) *EventHandler {
	return &EventHandler{feed: feed, lists: lists}
}

// Subscribe pose les abonnements durables.
func (h *EventHandler) Subscribe(js nats.JetStreamContext) error {
	if _, err := js.Subscribe("activity.>", h.HandleActivity, nats.Durable("user-data-fanout"), nats.ManualAck()); err != nil {
		return err
	}
	if _, err := js.Subscribe("catalog.book.updated", h.HandleBookUpdated, nats.Durable("user-data-cache"), nats.ManualAck()); err != nil {
		return err
	}
	if _, err := js.Subscribe("users.registered", h.HandleUserRegistered, nats.Durable("user-data-defaults"), nats.ManualAck()); err != nil {
		return err
	}
	return nil
}

func (h *EventHandler) HandleActivity(msg *nats.Msg) {
	// Extraction du contexte de trace depuis les headers NATS
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.HeaderCarrier(msg.Header))

	tracer := otel.Tracer("user-data-service")
	ctx, span := tracer.Start(ctx, "process_activity", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var event eventbroker.ActivityEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		span.RecordError(err)
		slog.Error("❌ Invalid activity event", "error", err)
		_ = msg.Ack() // poison pill, inutile de redelivrer
		return
	}

	item := &domain.ActivityItem{
		ID:         event.ID,
		Type:       domain.ActivityType(event.Type),
		UserID:     event.UserID,
		BookID:     event.BookID,
		ListID:     event.ListID,
		OccurredAt: event.OccurredAt,
	}

	// Fan-out en background : l'ack n'attend pas Redis
	go func() {
		childCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		if err := h.feed.DistributeActivity(childCtx, item); err != nil {
			slog.Error("❌ Fan-out failed", "activity_id", event.ID, "error", err)
		} else {
			slog.Debug("✅ Fan-out done", "activity_id", event.ID)
		}
	}()

	_ = msg.Ack()
}

func (h *EventHandler) HandleUserRegistered(msg *nats.Msg) {
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.HeaderCarrier(msg.Header))

	var event struct {
		UserID int64 `json:"user_id"`
	}
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		slog.Error("❌ Invalid user event", "error", err)
		_ = msg.Ack()
		return
	}

	childCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Idempotent : redelivery sans effet si les listes existent déjà
	if err := h.lists.EnsureDefaultLists(childCtx, event.UserID); err != nil {
		slog.Error("❌ Default lists creation failed", "user_id", event.UserID, "error", err)
		return // nack implicite, JetStream redelivre
	}
	_ = msg.Ack()
}

func (h *EventHandler) HandleBookUpdated(msg *nats.Msg) {
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.HeaderCarrier(msg.Header))

	var event struct {
		BookID int64 `json:"book_id"`
	}
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		slog.Error("❌ Invalid catalog event", "error", err)
		_ = msg.Ack()
		return
	}

	childCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := h.feed.InvalidateBook(childCtx, event.BookID); err != nil {
		slog.Warn("⚠️ Cache invalidation failed", "book_id", event.BookID, "error", err)
	}
	_ = msg.Ack()
}
