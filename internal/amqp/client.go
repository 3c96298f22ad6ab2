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
	maxFailures        = 5
	openTimeout        = 30 * time.Second
	maxBackoff         = 30 * time.Second
	publishTimeout     = 5 * time.Second
	maxPublishAttempts = 3
)

var errNotConnected = errors.New("connection closed")

// Handlers receives decoded messages from Consume. A nil handler drops
// messages of that type.
type Handlers struct {
	LedgerChanged   func(context.Context, *LedgerChangedMessage) error
	ReportRequested func(context.Context, *ReportRequestedMessage) error
}

// permanentError marks deliveries that must not be requeued.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	breakerMu    sync.Mutex
	lastFailure  time.Time
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}
	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
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
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = channel
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

	_, err = ch.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	for _, key := range []string{TypeLedgerChanged, TypeReportRequested} {
		if err := ch.QueueBind(c.queueName, key, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue to %s: %w", key, err)
		}
	}
	return nil
}

func (c *Client) reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
	c.channel, c.conn = nil, nil
	c.mu.Unlock()

	if err := c.connect(); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Reconnected to AMQP broker", "exchange", c.exchangeName)
	return nil
}

// PublishLedgerChanged announces a write to profileID's ledger.
func (c *Client) PublishLedgerChanged(ctx context.Context, profileID string, years []int, action string) error {
	body, err := NewLedgerChangedMessage(profileID, years, action).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, TypeLedgerChanged, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published ledger changed message",
		"profile", profileID,
		"years", years,
		"action", action)
	return nil
}

// PublishReportRequested queues a report generation job.
func (c *Client) PublishReportRequested(ctx context.Context, profileID string, year, month int, comments string) error {
	body, err := NewReportRequestedMessage(profileID, year, month, comments).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, TypeReportRequested, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published report requested message",
		"profile", profileID,
		"year", year,
		"month", month)
	return nil
}

func (c *Client) publish(ctx context.Context, msgType string, body []byte) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish %s: circuit breaker is open", msgType)
	}

	var lastErr error
	for attempt := 0; attempt < maxPublishAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(exponentialBackoff(attempt - 1)):
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		err := c.publishOnce(ctx, msgType, body)
		if err == nil {
			c.recordSuccess()
			return nil
		}
		lastErr = err
		c.recordFailure()

		if !isConnectionError(err) {
			break
		}
		slog.WarnContext(ctx, "AMQP publish failed, reconnecting",
			"type", msgType,
			"attempt", attempt+1,
			"error", err)
		if rerr := c.reconnect(ctx); rerr != nil {
			lastErr = rerr
		}
	}
	return fmt.Errorf("publish %s: %w", msgType, lastErr)
}

func (c *Client) publishOnce(ctx context.Context, msgType string, body []byte) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return errNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		msgType,        // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Type:         msgType,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// Consume delivers messages to handlers until ctx is cancelled.
// Malformed messages are dropped; handler failures are requeued once.
func (c *Client) Consume(ctx context.Context, handlers Handlers) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return errNotConnected
	}

	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			c.handleDelivery(ctx, handlers, delivery)
		}
	}
}

func (c *Client) handleDelivery(ctx context.Context, handlers Handlers, delivery amqp091.Delivery) {
	msgType := delivery.Type
	if msgType == "" {
		msgType = delivery.RoutingKey
	}

	err := handlers.dispatch(ctx, msgType, delivery.Body)
	var permanent permanentError
	switch {
	case err == nil:
		delivery.Ack(false)
		slog.DebugContext(ctx, "Processed message", "type", msgType)
	case errors.As(err, &permanent):
		slog.ErrorContext(ctx, "Dropping message", "type", msgType, "error", err)
		delivery.Nack(false, false)
	default:
		slog.ErrorContext(ctx, "Failed to handle message",
			"type", msgType,
			"redelivered", delivery.Redelivered,
			"error", err)
		delivery.Nack(false, !delivery.Redelivered)
	}
}

func (h Handlers) dispatch(ctx context.Context, msgType string, body []byte) error {
	switch msgType {
	case TypeLedgerChanged:
		msg, err := LedgerChangedMessageFromJSON(body)
		if err != nil {
			return permanentError{fmt.Errorf("decode %s: %w", msgType, err)}
		}
		if h.LedgerChanged == nil {
			return nil
		}
		return h.LedgerChanged(ctx, msg)
	case TypeReportRequested:
		msg, err := ReportRequestedMessageFromJSON(body)
		if err != nil {
			return permanentError{fmt.Errorf("decode %s: %w", msgType, err)}
		}
		if h.ReportRequested == nil {
			return nil
		}
		return h.ReportRequested(ctx, msg)
	default:
		return permanentError{fmt.Errorf("unknown message type %q", msgType)}
	}
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.breakerMu.Lock()
	last := c.lastFailure
	c.breakerMu.Unlock()
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
	n := atomic.AddInt64(&c.failureCount, 1)
	c.breakerMu.Lock()
	c.lastFailure = time.Now()
	c.breakerMu.Unlock()
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// exponentialBackoff returns 1s, 2s, 4s... capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) || errors.Is(err, errNotConnected) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection", "EOF", "broken pipe", "closed"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
