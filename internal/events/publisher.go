package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/slimecraft/shop/internal/auth"
)

const loginEventName = "AdminLoginEvent"

// LoginEventEnvelope is the wire shape of a published login event. Consumers
// key off eventName and eventVersion; the payload mirrors the audit record.
type LoginEventEnvelope struct {
	EventName    string            `json:"eventName"`
	EventVersion int               `json:"eventVersion"`
	EventID      string            `json:"eventId"`
	Producer     string            `json:"producer"`
	OccurredAt   time.Time         `json:"occurredAt"`
	Payload      LoginEventPayload `json:"payload"`
}

type LoginEventPayload struct {
	AdminID    int64     `json:"adminId"`
	SourceAddr string    `json:"sourceAddr"`
	Outcome    string    `json:"outcome"`
	Severity   string    `json:"severity"`
	Timestamp  time.Time `json:"timestamp"`
}

// AuditPublisher mirrors login audit events onto the message broker so
// security tooling can consume them without polling the database. It
// satisfies auth.AuditSink.
type AuditPublisher struct {
	ch       *amqp.Channel
	producer string
}

func NewAuditPublisher(conn *amqp.Connection, producer string) (*AuditPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	if producer == "" {
		producer = "shop"
	}
	return &AuditPublisher{ch: ch, producer: producer}, nil
}

func (p *AuditPublisher) Close() error {
	return p.ch.Close()
}

func (p *AuditPublisher) Record(ctx context.Context, e auth.Event) error {
	env := newLoginEventEnvelope(e, p.producer, time.Now().UTC())
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal login event: %w", err)
	}
	return p.publishJSON(ctx, LoginEventRoutingKey, body)
}

func (p *AuditPublisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func newLoginEventEnvelope(e auth.Event, producer string, occurredAt time.Time) LoginEventEnvelope {
	return LoginEventEnvelope{
		EventName:    loginEventName,
		EventVersion: 1,
		EventID:      uuid.NewString(),
		Producer:     producer,
		OccurredAt:   occurredAt,
		Payload: LoginEventPayload{
			AdminID:    e.AdminID,
			SourceAddr: e.SourceAddr,
			Outcome:    e.Outcome,
			Severity:   e.Severity,
			Timestamp:  e.Timestamp,
		},
	}
}
