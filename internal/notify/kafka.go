package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Topic carries consent notification events to the mailer service.
const Topic = "cohort.consent-events"

// KafkaNotifier publishes consent events to Kafka. Produce is asynchronous;
// the delivery promise only logs failures, keeping the consent transition
// unblocked.
type KafkaNotifier struct {
	client *kgo.Client
	logger *slog.Logger
}

// NewKafkaNotifier connects to the brokers and ensures the topic exists.
// Topic creation conflicts (another instance won the race) are ignored.
func NewKafkaNotifier(ctx context.Context, brokers []string, logger *slog.Logger) (*KafkaNotifier, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(Topic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	if _, err := admin.CreateTopic(ctx, 1, 1, nil, Topic); err != nil {
		logger.WarnContext(ctx, "consent topic creation skipped", "topic", Topic, "error", err)
	}

	return &KafkaNotifier{client: client, logger: logger}, nil
}

func (n *KafkaNotifier) ConsentStatusChanged(ctx context.Context, event ConsentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal consent event: %w", err)
	}
	record := &kgo.Record{
		Key:   []byte(event.UserID.String()),
		Value: payload,
	}
	n.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			n.logger.Error("consent notification delivery failed",
				"kind", event.Kind,
				"user_id", event.UserID,
				"error", err,
			)
		}
	})
	return nil
}

func (n *KafkaNotifier) Close() {
	n.client.Close()
}
