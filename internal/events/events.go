package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Event is a record lifecycle notification. Amounts stay in minor units so
// consumers never see floats.
type Event struct {
	Name        string    `json:"name"`
	OwnerID     uuid.UUID `json:"owner_id"`
	RecordID    uuid.UUID `json:"record_id"`
	AmountMinor int64     `json:"amount_minor"`
	OccurredAt  int64     `json:"occurred_at"`
}

const (
	ExpenseCreated = "expense.created"
	ExpenseUpdated = "expense.updated"
	ExpenseDeleted = "expense.deleted"
	IncomeCreated  = "income.created"
	IncomeUpdated  = "income.updated"
	IncomeDeleted  = "income.deleted"
)

// Publisher delivers events at most once. Implementations absorb their own
// failures; a broker outage must never fail the write that triggered it.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
	Close() error
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
func (Nop) Close() error                   { return nil }

// AMQPPublisher sends events as persistent JSON messages on a direct
// exchange, routed by event name.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	log      *slog.Logger
}

func NewAMQP(url, exchange string, log *slog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange, log: log}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("marshal event", "event", ev.Name, "error", err)
		return
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, ev.Name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		p.log.Error("publish event", "event", ev.Name, "error", err)
	}
}

func (p *AMQPPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
