// Package publisher delivers tweet change events outside the process.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/okian/tweets/internal/domain/model"
	"github.com/okian/tweets/pkg/logger"
)

// ErrClosed is returned when publishing on a closed publisher.
var ErrClosed = errors.New("publisher closed")

// Publisher delivers one event. Implementations are safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e model.Event) error
	Close() error
}

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQP publishes events as persistent JSON messages on a RabbitMQ queue.
type AMQP struct {
	conn  *amqp.Connection
	queue string

	mu     sync.Mutex
	ch     channel
	closed bool
}

var _ Publisher = (*AMQP)(nil)

// DialAMQP connects to url and declares a durable queue named queue.
func DialAMQP(url, queue string) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return &AMQP{conn: conn, ch: ch, queue: queue}, nil
}

func newAMQP(ch channel, queue string) *AMQP {
	return &AMQP{ch: ch, queue: queue}
}

// Publish sends e on the default exchange routed to the configured queue.
// amqp channels are not safe for concurrent publishing, so calls serialize.
func (p *AMQP) Publish(ctx context.Context, e model.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	return p.ch.PublishWithContext(ctx,
		"",
		p.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         string(e.Type),
			MessageId:    e.EventID,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    e.At,
		},
	)
}

// Close closes the channel and connection.
func (p *AMQP) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

// Log writes events to the structured log. It is used when no broker is
// configured.
type Log struct {
	logger logger.Logger
}

var _ Publisher = (*Log)(nil)

// NewLog creates a log publisher.
func NewLog() *Log {
	return &Log{logger: logger.Get().Named("events")}
}

func (p *Log) Publish(ctx context.Context, e model.Event) error {
	p.logger.Info(ctx, "tweet event",
		logger.String("event_id", e.EventID),
		logger.String("type", string(e.Type)),
		logger.Int64("tweet_id", e.TweetID),
		logger.String("at", e.At.Format(time.RFC3339Nano)),
	)
	return nil
}

func (p *Log) Close() error { return nil }
