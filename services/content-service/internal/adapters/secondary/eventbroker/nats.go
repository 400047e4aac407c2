package eventbroker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/safegergis/tome/services/content-service/internal/core/domain"
)

// NatsEventPublisher publie les événements catalogue sur JetStream.
// Sujets : catalog.book.created / catalog.book.updated.
type NatsEventPublisher struct {
	js nats.JetStreamContext
}

const streamName = "TOME_CATALOG"

func NewNatsEventPublisher(nc *nats.Conn) (*NatsEventPublisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{"catalog.>"},
		Storage:  nats.FileStorage,
		MaxAge:   24 * time.Hour,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		return nil, err
	}

	return &NatsEventPublisher{js: js}, nil
}

type bookEvent struct {
	BookID    int64     `json:"book_id"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
}

func (p *NatsEventPublisher) PublishBookCreated(ctx context.Context, book *domain.Book) error {
	return p.publish(ctx, "catalog.book.created", book)
}

func (p *NatsEventPublisher) PublishBookUpdated(ctx context.Context, book *domain.Book) error {
	return p.publish(ctx, "catalog.book.updated", book)
}

func (p *NatsEventPublisher) publish(ctx context.Context, subject string, book *domain.Book) error {
	data, err := json.Marshal(bookEvent{
		BookID:    book.ID,
		Title:     book.Title,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	if _, err := p.js.PublishMsg(msg); err != nil {
		slog.Error("❌ Failed to publish catalog event", "subject", subject, "book_id", book.ID, "error", err)
		return err
	}
	return nil
}
