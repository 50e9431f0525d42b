package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"school-payment-service/logger"

	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// HandlerFunc processes one decoded payment event.
type HandlerFunc func(ctx context.Context, evt PaymentEvent) error

// Consumer reads the payments topic in a consumer group and dispatches each
// event to the handler registered for its type.
type Consumer struct {
	mu       sync.Mutex
	reader   messageReader
	handlers map[string]HandlerFunc
	log      *logger.Logger
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	c := &Consumer{
		handlers: map[string]HandlerFunc{},
		log:      logger.With("component", "kafka-consumer", "topic", topic),
	}
	if len(brokers) == 0 {
		c.log.Info("Kafka consumer is disabled (KAFKA_BROKERS is empty)")
		return c
	}
	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
		MaxBytes:       10e6,
		SessionTimeout: 20 * time.Second,
		ReadBackoffMin: 100 * time.Millisecond,
		ReadBackoffMax: time.Second,
	})
	return c
}

// Handle registers fn for events of the given type.
func (c *Consumer) Handle(event string, fn HandlerFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = fn
}

func (c *Consumer) Enabled() bool { return c.reader != nil }

// Run consumes until ctx is cancelled. Handler failures are logged and the
// message is skipped.
func (c *Consumer) Run(ctx context.Context) {
	if c.reader == nil {
		return
	}
	c.log.Info("Kafka consumer started")
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				c.log.Info("Kafka consumer stopped")
				return
			}
			if strings.Contains(err.Error(), "Group Coordinator Not Available") {
				sleep(ctx, 500*time.Millisecond)
				continue
			}
			c.log.Warn("read failed: %v", err)
			sleep(ctx, time.Second)
			continue
		}
		if err := c.dispatch(ctx, msg); err != nil {
			c.log.Error("message key=%s offset=%d: %v", string(msg.Key), msg.Offset, err)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, msg kafka.Message) error {
	var evt PaymentEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return err
	}
	c.mu.Lock()
	fn := c.handlers[evt.Event]
	c.mu.Unlock()
	if fn == nil {
		c.log.Debug("no handler for event %q", evt.Event)
		return nil
	}
	return fn(ctx, evt)
}

func (c *Consumer) Close() error {
	if c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
