package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"quiz-runner/internal/domain"
)

const (
	// EventSessionCompleted is both the envelope type and the routing key.
	EventSessionCompleted = "session.completed"
	DefaultExchange       = "quiz.events"
)

// Envelope is the message body put on the exchange.
type Envelope struct {
	Type    string        `json:"type"`
	Payload domain.Result `json:"payload"`
}

// channel is the subset of *amqp091.Channel the publisher needs.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher forwards completed sessions to a durable topic exchange.
type Publisher struct {
	conn     *amqp091.Connection
	ch       channel
	exchange string
	now      func() time.Time
}

// Dial connects to the broker and declares the exchange.
func Dial(url, exchange string) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p, err := newPublisher(ch, exchange)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{ch: ch, exchange: exchange, now: time.Now}, nil
}

// Record implements app.ResultSink.
func (p *Publisher) Record(ctx context.Context, result domain.Result) error {
	body, err := json.Marshal(Envelope{Type: EventSessionCompleted, Payload: result})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, EventSessionCompleted, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    p.now(),
		MessageId:    result.SessionID,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", EventSessionCompleted, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
