package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/crewbase/crewbase/internal/domain"
)

// KafkaPublisher writes identity audit events to a Kafka topic as JSON.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers, topic string, logger *slog.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 100 * time.Millisecond,
		Async:        true,
	}
	return &KafkaPublisher{writer: w, logger: logger}
}

// Publish emits one event. Failures are logged, never surfaced: an audit
// outage must not fail the login that produced the event.
func (p *KafkaPublisher) Publish(ctx context.Context, event domain.AuditEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal audit event", "error", err, "kind", event.Kind)
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(event.TenantSlug),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish audit event", "error", err, "kind", event.Kind)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher discards audit events. Used in tests and when no brokers are
// configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event domain.AuditEvent) error { return nil }
