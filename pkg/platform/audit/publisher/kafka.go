package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"civitas/pkg/platform/audit"
)

// Kafka publishes audit events to a Kafka topic keyed by citizen ID so a
// citizen's trail stays ordered within a partition. Produce is asynchronous;
// delivery failures are logged, never surfaced to the engine operation that
// emitted the event.
type Kafka struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafka connects to the brokers and ensures the audit topic exists.
func NewKafka(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create audit topic %q: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("create audit topic %q: %w", topic, resp.Err)
	}

	return &Kafka{client: client, topic: topic, logger: logger}, nil
}

func (k *Kafka) Emit(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(event.CitizenID.String()),
		Value: payload,
	}
	k.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil && k.logger != nil {
			k.logger.Error("audit event delivery failed",
				"action", event.Action,
				"error", err,
			)
		}
	})
	return nil
}

// Flush blocks until buffered records are delivered or ctx expires.
func (k *Kafka) Flush(ctx context.Context) error {
	return k.client.Flush(ctx)
}

func (k *Kafka) Close() {
	k.client.Close()
}
