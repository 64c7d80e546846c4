package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	"github.com/prepacking/backend/internal/domain/shared"
	"github.com/prepacking/backend/internal/infrastructure/config"
	"github.com/prepacking/backend/internal/infrastructure/logger"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Header keys set on every forwarded message
const (
	HeaderEventType     = "event-type"
	HeaderAggregateType = "aggregate-type"
)

// MessageWriter writes a single message to the broker
type MessageWriter interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

// NewKafkaWriter builds a traced writer for the configured topic
func NewKafkaWriter(cfg config.KafkaConfig, tp trace.TracerProvider) (MessageWriter, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	base := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
	writer, err := otelkafka.NewWriter(base,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes([]attribute.KeyValue{
			attribute.String("messaging.destination.name", cfg.Topic),
			attribute.String("messaging.kafka.client_id", "prepacking"),
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka: create writer: %w", err)
	}
	return writer, nil
}

// KafkaForwarder is an event handler that forwards every domain event it receives to Kafka
type KafkaForwarder struct {
	writer     MessageWriter
	serializer *EventSerializer
	logger     *zap.Logger
}

var _ shared.EventHandler = (*KafkaForwarder)(nil)

// NewKafkaForwarder creates a forwarder
func NewKafkaForwarder(writer MessageWriter, serializer *EventSerializer, log *zap.Logger) *KafkaForwarder {
	if log == nil {
		log = zap.NewNop()
	}
	return &KafkaForwarder{writer: writer, serializer: serializer, logger: log}
}

// Handle writes the event keyed by its aggregate id so events of one prepacking
// event stay on the same partition
func (f *KafkaForwarder) Handle(ctx context.Context, event shared.DomainEvent) error {
	value, err := f.serializer.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.AggregateID().String()),
		Value: value,
		Time:  event.OccurredAt(),
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(event.EventType())},
			{Key: HeaderAggregateType, Value: []byte(event.AggregateType())},
		},
	}
	if err := f.writer.WriteMessage(ctx, msg); err != nil {
		return fmt.Errorf("forward %s to kafka: %w", event.EventType(), err)
	}

	logger.FromContextOr(ctx, f.logger).Debug("event forwarded to kafka",
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_id", event.AggregateID().String()),
	)
	return nil
}

// EventTypes returns nil so the forwarder receives every event
func (f *KafkaForwarder) EventTypes() []string {
	return nil
}

// Close closes the underlying writer
func (f *KafkaForwarder) Close() error {
	return f.writer.Close()
}
