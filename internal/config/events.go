package config

import (
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/randomization-service/internal/events"
)

// EventConfig holds configuration for exposure event publishing
type EventConfig struct {
	Enabled       bool   `env:"EVENTS_ENABLED" envDefault:"true"`
	Publisher     string `env:"EVENTS_PUBLISHER" envDefault:"kafka"` // kafka or mock
	KafkaBrokers  string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	ExposureTopic string `env:"EXPOSURE_TOPIC" envDefault:"question-exposures"`
}

// GetKafkaBrokers returns Kafka brokers as a slice
func (c *EventConfig) GetKafkaBrokers() []string {
	return strings.Split(c.KafkaBrokers, ",")
}

// CreateEventPublisher creates an exposure event publisher based on configuration
func (c *EventConfig) CreateEventPublisher(logger *slog.Logger) (events.EventPublisher, error) {
	if !c.Enabled {
		logger.Info("Event publishing disabled, using mock publisher")
		return events.NewMockEventPublisher(logger), nil
	}

	switch c.Publisher {
	case "kafka":
		logger.Info("Creating Kafka exposure event publisher",
			"brokers", c.KafkaBrokers,
			"topic", c.ExposureTopic)

		return events.NewKafkaEventPublisher(events.PublisherConfig{
			KafkaBrokers: c.GetKafkaBrokers(),
			TopicName:    c.ExposureTopic,
			Logger:       logger,
		})
	case "mock":
		logger.Info("Using mock exposure event publisher")
		return events.NewMockEventPublisher(logger), nil
	default:
		logger.Warn("Unknown event publisher type, falling back to mock", "publisher", c.Publisher)
		return events.NewMockEventPublisher(logger), nil
	}
}
