package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	publishTimeout = 5 * time.Second
	maxRedials     = 3
)

// ErrPublisherClosed is returned by Publish once Close has been called.
var ErrPublisherClosed = errors.New("amqp publisher closed")

// AMQPPublisher publishes events to a durable topic exchange, routed by
// event type. A dropped connection is redialed on the next publish.
type AMQPPublisher struct {
	url      string
	exchange string

	// mu guards the fields below. It is never held while sleeping or dialing.
	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
	closed  bool
}

// NewAMQPPublisher dials url and declares exchange.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	p := &AMQPPublisher{url: url, exchange: exchange}
	conn, channel, err := p.dial()
	if err != nil {
		return nil, err
	}
	p.conn, p.channel = conn, channel
	return p, nil
}

func (p *AMQPPublisher) dial() (*amqp091.Connection, *amqp091.Channel, error) {
	conn, err := amqp091.Dial(p.url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	err = channel.ExchangeDeclare(
		p.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare exchange: %w", err)
	}
	return conn, channel, nil
}

// Publish sends e with its type as routing key.
func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	body, err := e.Marshal()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	for attempt := 0; ; attempt++ {
		err = p.publish(ctx, e.Type, body)
		if err == nil || !isConnectionError(err) || attempt >= maxRedials {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("publish %s: %w", e.Type, ctx.Err())
		case <-time.After(backoff(attempt)):
		}
		if rerr := p.redial(); rerr != nil {
			err = rerr
		}
	}
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

func (p *AMQPPublisher) publish(ctx context.Context, t Type, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}
	if p.channel == nil || p.channel.IsClosed() {
		return amqp091.ErrClosed
	}
	return p.channel.PublishWithContext(
		ctx,
		p.exchange, // exchange
		string(t),  // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Type:         string(t),
			Body:         body,
		},
	)
}

// redial replaces a dead connection. When another publisher has already
// reconnected, the fresh connection is dropped and theirs is kept.
func (p *AMQPPublisher) redial() error {
	if p.isClosed() {
		return ErrPublisherClosed
	}
	conn, channel, err := p.dial()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || (p.channel != nil && !p.channel.IsClosed()) {
		channel.Close()
		conn.Close()
		if p.closed {
			return ErrPublisherClosed
		}
		return nil
	}
	p.closeLocked()
	p.conn, p.channel = conn, channel
	return nil
}

func (p *AMQPPublisher) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close closes the channel and the connection. Publishing afterwards fails
// with ErrPublisherClosed.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.closeLocked()
}

func (p *AMQPPublisher) closeLocked() error {
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		conn := p.conn
		p.conn = nil
		if err := conn.Close(); err != nil && !errors.Is(err, amqp091.ErrClosed) {
			return err
		}
	}
	return nil
}

// backoff doubles from 100ms and caps at 2s.
func backoff(attempt int) time.Duration {
	const base, ceiling = 100 * time.Millisecond, 2 * time.Second
	if attempt >= 5 {
		return ceiling
	}
	return min(base<<attempt, ceiling)
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection reset", "connection closed", "broken pipe", "eof", "use of closed network connection"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
