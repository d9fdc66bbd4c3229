package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher routes privacy workflow events to Kafka topics. Events
// without an explicit topic mapping fall back to defaultTopic so a new
// event type never silently drops on the floor.
type KafkaPublisher struct {
	writer       *kafka.Writer
	topicByEvent map[string]string
	defaultTopic string
}

func NewKafkaPublisher(brokers []string, defaultTopic string, topicByEvent map[string]string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if defaultTopic == "" {
		defaultTopic = "privacy.requests"
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
		},
		topicByEvent: topicByEvent,
		defaultTopic: defaultTopic,
	}, nil
}

// Publish keys messages by partitionKey (the request id) so all events for
// one privacy request land on the same partition in order.
func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	topic := p.defaultTopic
	if mapped, ok := p.topicByEvent[eventType]; ok && mapped != "" {
		topic = mapped
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(partitionKey),
		Value: payload,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
