// internal/notify/kafka.go
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"deal-tracker/internal/models"
)

const eventTypeDealInserted = "deal.inserted"

// KafkaNotifier publishes one event per inserted deal, keyed by record id.
type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaProducer builds a synchronous producer that waits for all in-sync replicas.
func NewKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return producer, nil
}

func NewKafkaNotifier(producer sarama.SyncProducer, topic string) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topic}
}

func (k *KafkaNotifier) Name() string { return "kafka" }

type dealEvent struct {
	Type string            `json:"type"`
	Deal models.DealRecord `json:"deal"`
}

func (k *KafkaNotifier) Send(ctx context.Context, records []models.DealRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msgs := make([]*sarama.ProducerMessage, 0, len(records))
	for _, r := range records {
		value, err := json.Marshal(dealEvent{Type: eventTypeDealInserted, Deal: r})
		if err != nil {
			return err
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: k.topic,
			Key:   sarama.StringEncoder(r.ID),
			Value: sarama.ByteEncoder(value),
			Headers: []sarama.RecordHeader{
				{Key: []byte("event-type"), Value: []byte(eventTypeDealInserted)},
			},
		})
	}
	return k.producer.SendMessages(msgs)
}

func (k *KafkaNotifier) Close() error {
	return k.producer.Close()
}
