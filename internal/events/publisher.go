package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

// EventPublisher defines the interface for publishing exposure events
type EventPublisher interface {
	PublishExposureEvent(ctx context.Context, event *ExposureEvent) error
	Close() error
}

// KafkaEventPublisher implements EventPublisher using Watermill with Kafka
type KafkaEventPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
	topicName string
}

// PublisherConfig holds configuration for the event publisher
type PublisherConfig struct {
	KafkaBrokers []string
	TopicName    string
	Logger       *slog.Logger
}

// NewKafkaEventPublisher creates a new Kafka-based event publisher using Watermill
func NewKafkaEventPublisher(config PublisherConfig) (*KafkaEventPublisher, error) {
	logger := watermill.NewSlogLogger(config.Logger)

	publisherConfig := kafka.PublisherConfig{
		Brokers:   config.KafkaBrokers,
		Marshaler: kafka.DefaultMarshaler{},
	}

	publisher, err := kafka.NewPublisher(publisherConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}

	return &KafkaEventPublisher{
		publisher: publisher,
		logger:    config.Logger,
		topicName: config.TopicName,
	}, nil
}

// PublishExposureEvent publishes an exposure event to Kafka
func (p *KafkaEventPublisher) PublishExposureEvent(ctx context.Context, event *ExposureEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal exposure event: %w", err)
	}

	msg := message.NewMessage(event.ID, eventBytes)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("source", event.Source)
	msg.Metadata.Set("version", event.Version)
	msg.Metadata.Set("question_id", event.QuestionID)
	msg.Metadata.Set("timestamp", event.Timestamp.Format("2006-01-02T15:04:05Z07:00"))

	if err := p.publisher.Publish(p.topicName, msg); err != nil {
		p.logger.Error("Failed to publish exposure event",
			"event_id", event.ID,
			"question_id", event.QuestionID,
			"error", err)
		return fmt.Errorf("failed to publish exposure event: %w", err)
	}

	p.logger.Debug("Published exposure event",
		"event_id", event.ID,
		"question_id", event.QuestionID,
		"topic", p.topicName)

	return nil
}

// Close closes the publisher and releases resources
func (p *KafkaEventPublisher) Close() error {
	return p.publisher.Close()
}

// MockEventPublisher is an in-memory implementation for tests and local runs
type MockEventPublisher struct {
	mu     sync.Mutex
	events []ExposureEvent
	logger *slog.Logger
}

func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{
		events: make([]ExposureEvent, 0),
		logger: logger,
	}
}

func (m *MockEventPublisher) PublishExposureEvent(ctx context.Context, event *ExposureEvent) error {
	m.mu.Lock()
	m.events = append(m.events, *event)
	m.mu.Unlock()

	m.logger.Debug("Mock: published exposure event",
		"event_id", event.ID,
		"question_id", event.QuestionID)
	return nil
}

func (m *MockEventPublisher) Close() error {
	return nil
}

// PublishedEvents returns a copy of all published events
func (m *MockEventPublisher) PublishedEvents() []ExposureEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ExposureEvent, len(m.events))
	copy(out, m.events)
	return out
}
