package events

import (
	"context"
	"fmt"
	"sync"

	"stylo/pkg/kafka"
	kafka_config "stylo/pkg/kafka/config"
	kafka_middleware "stylo/pkg/kafka/middleware"
	"stylo/pkg/logger"
	"stylo/pkg/metrics"
	"stylo/pkg/middleware"
)

// Publisher hands booking events to downstream consumers. Publishing happens
// after the booking committed, so callers log failures and move on.
type Publisher interface {
	AppointmentConfirmed(ctx context.Context, event AppointmentConfirmed) error
	SessionExpired(ctx context.Context, event SessionExpired) error
	Close() error
}

// MessageWriter is the part of the Kafka producer the publisher needs.
type MessageWriter interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer MessageWriter
	log    *logger.Logger
}

// NewKafkaPublisher connects a producer for topic with logging and metrics
// middleware installed.
func NewKafkaPublisher(cfg *kafka_config.Config, topic, dlqTopic string, m *metrics.BookingMetrics, log *logger.Logger) (*KafkaPublisher, error) {
	producer, err := kafka.NewProducer(cfg, log, topic, dlqTopic)
	if err != nil {
		return nil, fmt.Errorf("failed to create events producer: %w", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(log))
	producer.Use(kafka_middleware.MetricsProducerMiddleware(m))
	return NewPublisher(producer, log), nil
}

func NewPublisher(writer MessageWriter, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, log: log}
}

// AppointmentConfirmed is keyed by staff so one staff member's bookings stay
// ordered within a partition.
func (p *KafkaPublisher) AppointmentConfirmed(ctx context.Context, event AppointmentConfirmed) error {
	return p.publish(ctx, TypeAppointmentConfirmed, event.StaffID, event)
}

func (p *KafkaPublisher) SessionExpired(ctx context.Context, event SessionExpired) error {
	return p.publish(ctx, TypeSessionExpired, event.StaffID, event)
}

func (p *KafkaPublisher) publish(ctx context.Context, eventType, key string, payload any) error {
	msg, err := kafka.NewMessage().
		WithKey(key).
		WithValue(payload).
		WithEventType(eventType).
		WithCorrelationID(middleware.RequestIDFrom(ctx)).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build %s event: %w", eventType, err)
	}
	if err := p.writer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher is used when events are disabled. It records what would have
// been published so tests can assert on it.
type NoopPublisher struct {
	mu        sync.Mutex
	confirmed []AppointmentConfirmed
	expired   []SessionExpired
}

func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

func (p *NoopPublisher) AppointmentConfirmed(_ context.Context, event AppointmentConfirmed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, event)
	return nil
}

func (p *NoopPublisher) SessionExpired(_ context.Context, event SessionExpired) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expired = append(p.expired, event)
	return nil
}

func (p *NoopPublisher) Confirmed() []AppointmentConfirmed {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]AppointmentConfirmed(nil), p.confirmed...)
}

func (p *NoopPublisher) Expired() []SessionExpired {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SessionExpired(nil), p.expired...)
}

func (p *NoopPublisher) Close() error { return nil }
