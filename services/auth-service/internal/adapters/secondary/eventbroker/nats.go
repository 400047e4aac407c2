package eventbroker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// NatsEventPublisher implémente ports.EventPublisher via NATS JetStream.
type NatsEventPublisher struct {
	js nats.JetStreamContext
}

const streamName = "TOME_EVENTS"

func NewNatsEventPublisher(nc *nats.Conn) (*NatsEventPublisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}

	// Création idempotente du stream (pattern "ensure" au démarrage)
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{"users.>", "activity.>"},
		Storage:  nats.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		return nil, err
	}

	return &NatsEventPublisher{js: js}, nil
}

type userRegisteredEvent struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
}

func (p *NatsEventPublisher) PublishUserRegistered(ctx context.Context, userID int64, email string) error {
	event := userRegisteredEvent{
		UserID:    userID,
		Email:     email,
		Timestamp: time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := nats.NewMsg("users.registered")
	msg.Data = data

	// Propagation du contexte de trace dans les headers NATS
	carrier := propagation.HeaderCarrier(msg.Header)
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	if _, err := p.js.PublishMsg(msg); err != nil {
		slog.Error("❌ Failed to publish users.registered", "user_id", userID, "error", err)
		return err
	}

	slog.Debug("📨 Event published", "subject", "users.registered", "user_id", userID)
	return nil
}
