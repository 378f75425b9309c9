package events

import (
	"fmt"

	"github.com/driversheet/mailworker/interfaces"
	"github.com/driversheet/mailworker/internal/logger"
)

type EventsService struct {
	Publisher *RabbitMQPublisher
}

// NewEventsService connects the publisher. An empty url disables events and returns a
// service with no publisher.
func NewEventsService(rabbitmqURL string, log logger.Logger, publisherConfig *PublisherConfig) (*EventsService, error) {
	if rabbitmqURL == "" {
		log.Info("RABBITMQ_URL not set, event publishing disabled")
		return &EventsService{}, nil
	}

	publisher, err := NewRabbitMQPublisher(rabbitmqURL, log, publisherConfig)
	if err != nil {
		return nil, err
	}

	return &EventsService{
		Publisher: publisher,
	}, nil
}

// EventPublisher returns nil when publishing is disabled.
func (s *EventsService) EventPublisher() interfaces.EventPublisher {
	if s == nil || s.Publisher == nil {
		return nil
	}
	return s.Publisher
}

func (s *EventsService) Close() error {
	var errs []error

	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing events service: %v", errs)
	}

	return nil
}
