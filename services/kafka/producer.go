package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"time"

	"school-payment-service/logger"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes JSON messages to one topic. A Producer built with no
// brokers is disabled and Publish is a no-op.
type Producer struct {
	mu       sync.Mutex
	writer   messageWriter
	brokers  []string
	topic    string
	attempts int
	backoff  func(attempt int) time.Duration
	log      *logger.Logger
}

func NewProducer(brokers []string, topic string) *Producer {
	p := &Producer{
		brokers:  brokers,
		topic:    topic,
		attempts: 3,
		backoff:  exponentialBackoff,
		log:      logger.With("component", "kafka-producer", "topic", topic),
	}
	if len(brokers) == 0 {
		p.log.Info("Kafka is disabled (KAFKA_BROKERS is empty)")
		return p
	}
	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireAll,
	}
	p.log.Info("Kafka producer initialized. Brokers=%v", brokers)
	return p
}

func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

func (p *Producer) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writer != nil
}

// EnsureTopic creates the topic on the first broker if it does not exist yet.
func (p *Producer) EnsureTopic(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return nil
	}
	var d kafka.Dialer
	conn, err := d.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{Topic: p.topic, NumPartitions: 1, ReplicationFactor: 1})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return err
	}
	return nil
}

// Publish marshals value and writes it under key, retrying with exponential
// backoff. Callers treat failures as best-effort.
func (p *Producer) Publish(ctx context.Context, key string, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writer == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		p.log.Error("Error marshaling Kafka message: %v", err)
		return err
	}
	msg := kafka.Message{Key: []byte(key), Value: payload}

	var lastErr error
	for attempt := 0; attempt < p.attempts; attempt++ {
		writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := p.writer.WriteMessages(writeCtx, msg)
		cancel()
		if err == nil {
			p.log.Debug("published key=%s bytes=%d", key, len(payload))
			return nil
		}
		lastErr = err

		if attempt < p.attempts-1 {
			wait := p.backoff(attempt)
			p.log.Warn("Kafka publish attempt %d/%d failed, retrying in %v: %v", attempt+1, p.attempts, wait, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	p.log.Error("Kafka publish failed after %d attempts: %v", p.attempts, lastErr)
	return lastErr
}

func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writer == nil {
		return nil
	}
	err := p.writer.Close()
	p.writer = nil
	return err
}
