// Package amqp connects budgetkeeper to RabbitMQ: inbox messages come in on
// one queue and TransactionRecorded events go out on another, both bound to
// a single direct exchange with the queue name as routing key.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

type Client struct {
	url          string
	exchangeName string
	queues       []string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	failureMu    sync.Mutex
	lastFailure  time.Time
}

// NewClient dials url and declares the exchange and every queue.
func NewClient(url, exchangeName string, queues ...string) (*Client, error) {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queues:       queues,
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := c.setup(channel); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queues: %w", err)
	}

	c.mu.Lock()
	c.conn, c.channel = conn, channel
	c.mu.Unlock()
	return nil
}

func (c *Client) setup(ch *amqp091.Channel) error {
	err := ch.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, q := range c.queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
		// Routing key is the queue name.
		if err := ch.QueueBind(q, q, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", q, err)
		}
	}
	return nil
}

func (c *Client) reconnect(ctx context.Context) error {
	c.closeConn()
	for attempt := 0; ; attempt++ {
		err := c.connect()
		if err == nil {
			slog.InfoContext(ctx, "Reconnected to AMQP", "attempt", attempt+1)
			return nil
		}
		slog.WarnContext(ctx, "AMQP reconnect failed", "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(exponentialBackoff(attempt)):
		}
	}
}

func (c *Client) currentChannel() *amqp091.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// Publish sends body to queue as a persistent JSON message.
func (c *Client) Publish(ctx context.Context, queue string, body []byte) error {
	if c.isCircuitOpen() {
		return errors.New("publish to " + queue + ": circuit breaker is open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ch := c.currentChannel()
	if ch == nil {
		c.recordFailure()
		return fmt.Errorf("publish to %s: no channel", queue)
	}

	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := ch.PublishWithContext(
		pctx,
		c.exchangeName, // exchange
		queue,          // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			go func() {
				if rerr := c.reconnect(context.Background()); rerr != nil {
					slog.Error("AMQP reconnect aborted", "error", rerr)
				}
			}()
		}
		return fmt.Errorf("publish to %s: %w", queue, err)
	}
	c.recordSuccess()
	return nil
}

// PublishTransactionRecorded publishes one ledger event to queue.
func (c *Client) PublishTransactionRecorded(ctx context.Context, queue string, ev *TransactionRecorded) error {
	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := c.Publish(ctx, queue, body); err != nil {
		return err
	}
	slog.DebugContext(ctx, "Published transaction event",
		"event_id", ev.EventID,
		"tx_id", ev.Transaction.ID,
		"queue", queue)
	return nil
}

// PublishInbox enqueues a free-text message for ingestion.
func (c *Client) PublishInbox(ctx context.Context, queue string, msg *InboxMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal inbox message: %w", err)
	}
	return c.Publish(ctx, queue, body)
}

// errDecode marks a delivery that can never be handled.
var errDecode = errors.New("decode delivery")

// Consume delivers every message on queue to handle until ctx is done,
// reconnecting with exponential backoff when the connection drops.
// Undecodable messages are dropped; handler errors requeue.
func (c *Client) Consume(ctx context.Context, queue string, handle func(context.Context, []byte) error) error {
	for {
		err := c.consumeOnce(ctx, queue, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}
		slog.WarnContext(ctx, "AMQP consumer lost connection", "queue", queue, "error", err)
		if err := c.reconnect(ctx); err != nil {
			return err
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, queue string, handle func(context.Context, []byte) error) error {
	ch := c.currentChannel()
	if ch == nil {
		return amqp091.ErrClosed
	}
	msgs, err := ch.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack (we want manual ack)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming", "queue", queue)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "queue", queue, "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed: connection closed")
			}
			err := handle(ctx, delivery.Body)
			switch {
			case err == nil:
				_ = delivery.Ack(false)
			case errors.Is(err, errDecode):
				slog.ErrorContext(ctx, "Dropping undecodable message", "queue", queue, "error", err)
				_ = delivery.Nack(false, false)
			default:
				slog.ErrorContext(ctx, "Failed to handle message", "queue", queue, "error", err)
				_ = delivery.Nack(false, true)
			}
		}
	}
}

// ConsumeInbox decodes InboxMessages from queue.
func (c *Client) ConsumeInbox(ctx context.Context, queue string, handler func(context.Context, *InboxMessage) error) error {
	return c.Consume(ctx, queue, func(ctx context.Context, body []byte) error {
		msg, err := InboxMessageFromJSON(body)
		if err != nil {
			return fmt.Errorf("%w: %v", errDecode, err)
		}
		return handler(ctx, msg)
	})
}

// ConsumeTransactionEvents decodes TransactionRecorded events from queue.
func (c *Client) ConsumeTransactionEvents(ctx context.Context, queue string, handler func(context.Context, *TransactionRecorded) error) error {
	return c.Consume(ctx, queue, func(ctx context.Context, body []byte) error {
		ev, err := TransactionRecordedFromJSON(body)
		if err != nil {
			return fmt.Errorf("%w: %v", errDecode, err)
		}
		return handler(ctx, ev)
	})
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.failureMu.Lock()
	last := c.lastFailure
	c.failureMu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.failureMu.Lock()
	c.lastFailure = time.Now()
	c.failureMu.Unlock()
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// exponentialBackoff is 1s doubling per attempt, capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << uint(attempt)
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{
		"connection refused",
		"connection closed",
		"connection reset",
		"unexpected EOF",
		"broken pipe",
		"use of closed network connection",
		"channel/connection is not open",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
