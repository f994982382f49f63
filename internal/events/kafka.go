package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaPublisher delivers events to the notification collaborator's topic.
// Production is synchronous: the engine's operations finish only after the
// broker acknowledged the record.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

// NewKafkaPublisher connects to the brokers and returns a publisher for the
// given topic.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &KafkaPublisher{client: client, topic: topic}, nil
}

func (p *KafkaPublisher) OutcomeComputed(ctx context.Context, event OutcomeComputedEvent) error {
	return p.produce(ctx, "outcome.computed", event.ApplicationID.String(), event)
}

func (p *KafkaPublisher) AppealResolved(ctx context.Context, event AppealResolvedEvent) error {
	return p.produce(ctx, "appeal.resolved", event.ApplicationID.String(), event)
}

func (p *KafkaPublisher) produce(ctx context.Context, kind, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", kind, err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event", Value: []byte(kind)},
		},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce %s event: %w", kind, err)
	}
	return nil
}

// Close flushes pending records and releases the client.
func (p *KafkaPublisher) Close() {
	p.client.Close()
}
