package eventbroker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/safegergis/tome/services/user-data-service/internal/core/domain"
)

// NatsActivityPublisher publie les événements d'activité sur JetStream.
// Le consumer du même service les fan-out vers les timelines Redis :
// l'écriture HTTP ne paie jamais le coût du fan-out.
type NatsActivityPublisher struct {
	js nats.JetStreamContext
}

const streamName = "TOME_ACTIVITY"

func NewNatsActivityPublisher(nc *nats.Conn) (*NatsActivityPublisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{"activity.>"},
		Storage:  nats.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		return nil, err
	}

	return &NatsActivityPublisher{js: js}, nil
}

// ActivityEvent : représentation wire d'un domain.ActivityItem.
type ActivityEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id"`
	BookID     int64     `json:"book_id,omitempty"`
	ListID     int64     `json:"list_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (p *NatsActivityPublisher) PublishActivity(ctx context.Context, item *domain.ActivityItem) error {
	data, err := json.Marshal(ActivityEvent{
		ID:         item.ID,
		Type:       string(item.Type),
		UserID:     item.UserID,
		BookID:     item.BookID,
		ListID:     item.ListID,
		OccurredAt: item.OccurredAt,
	})
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("activity.%s", item.Type)
	msg := nats.NewMsg(subject)
	msg.Data = data
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	if _, err := p.js.PublishMsg(msg); err != nil {
		slog.Error("❌ Failed to publish activity", "subject", subject, "user_id", item.UserID, "error", err)
		return err
	}

	slog.Debug("📨 Activity published", "subject", subject, "user_id", item.UserID)
	return nil
}
