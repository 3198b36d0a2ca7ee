package observability

import (
	"context"
)

// Publisher is the subset of the event bus used to mirror realtime events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

var defaultPublisher Publisher

func SetPublisher(publisher Publisher) {
	defaultPublisher = publisher
}

// PublishEvent mirrors a realtime event onto the bus, counting failures.
func PublishEvent(ctx context.Context, routingKey string, message interface{}, headers map[string]string) error {
	if defaultPublisher == nil {
		return nil
	}

	err := defaultPublisher.Publish(ctx, routingKey, EventEnvelope{
		EventType: "realtime",
		EventName: routingKey,
		Headers:   headers,
		Payload:   message,
	})
	if err != nil {
		IncAMQPPublishError()
	}
	return err
}
