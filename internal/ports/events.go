package ports

import "context"

// EventPublisher delivers outbox payloads to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}
