// Package events announces checkout outcomes to downstream consumers such as the
// notification service.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Type string

const (
	OrderCreated            Type = "order_created"
	PaymentInitiated        Type = "payment_initiated"
	PaymentInitiationFailed Type = "payment_initiation_failed"
	CheckoutCompleted       Type = "checkout_completed"
	CartCleanupFailed       Type = "cart_cleanup_failed"
)

type Event struct {
	Type          Type      `json:"type"`
	UserID        string    `json:"userId"`
	OrderID       string    `json:"orderId,omitempty"`
	PaymentMethod string    `json:"paymentMethod,omitempty"`
	TotalAmount   int64     `json:"totalAmount,omitempty"`
	LineCount     int       `json:"lineCount,omitempty"`
	RedirectURL   string    `json:"redirectUrl,omitempty"`
	Error         string    `json:"error,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Publisher must return promptly when used on a request path; wrap slow
// publishers in Async.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

var (
	ErrBufferFull = errors.New("event buffer full")
	ErrClosed     = errors.New("event publisher closed")
)

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes events keyed by user so one user's events stay ordered.
type Kafka struct {
	writer messageWriter
	logger *zap.Logger
}

func NewKafka(brokers []string, topic string, logger *zap.Logger) *Kafka {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
	}
	return newKafka(w, logger)
}

func newKafka(w messageWriter, logger *zap.Logger) *Kafka {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Kafka{writer: w, logger: logger}
}

func (k *Kafka) Publish(ctx context.Context, e Event) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(e.UserID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	k.logger.Debug("event published", zap.String("type", string(e.Type)), zap.String("order_id", e.OrderID))
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

// Async queues events and delivers them to next from a single goroutine, so
// Publish never waits on the broker. Events that do not fit the buffer are
// dropped with ErrBufferFull.
type Async struct {
	next    Publisher
	timeout time.Duration
	logger  *zap.Logger

	queue chan Event
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewAsync(next Publisher, buffer int, timeout time.Duration, logger *zap.Logger) *Async {
	if buffer < 1 {
		buffer = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Async{
		next:    next,
		timeout: timeout,
		logger:  logger,
		queue:   make(chan Event, buffer),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) Publish(_ context.Context, e Event) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.queue <- e:
		return nil
	default:
		return ErrBufferFull
	}
}

func (a *Async) run() {
	defer close(a.done)
	for e := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.next.Publish(ctx, e); err != nil {
			a.logger.Warn("deliver event failed",
				zap.String("type", string(e.Type)), zap.String("order_id", e.OrderID), zap.Error(err))
		}
		cancel()
	}
}

// Close stops accepting events and waits until the queued ones are delivered or
// ctx ends.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
