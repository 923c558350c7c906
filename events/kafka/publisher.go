// Package kafka publishes audit events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	audithook "github.com/niobium-nz/balance/audit_hook"
)

// compile-time interface check
var _ audithook.Recorder = (*Publisher)(nil)

// Publisher writes audit events to a Kafka topic. Messages are keyed by
// the event resource id so events for one principal stay in order.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a Publisher for the given brokers and topic.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Record implements audithook.Recorder.
func (p *Publisher) Record(ctx context.Context, event *audithook.AuditEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ResourceID),
		Value: data,
	})
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
