// Package events taps accepted messages onto a kafka topic for downstream
// consumers (search indexing, analytics, archival). The tap is best effort:
// persistence and delivery never wait on it beyond the write itself.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/ridwanf/dmrelay/pkg/model"
	"github.com/ridwanf/dmrelay/pkg/store"
)

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &KafkaPublisher{writer: writer}
}

// Publish writes one persisted message to the topic. The conversation pair
// key is the kafka key, so a partitioned topic keeps each conversation in
// order.
func (p *KafkaPublisher) Publish(ctx context.Context, msg model.Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshalling message: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(store.PairKey(msg.FromID, msg.ToID)),
		Value: value,
		Time:  msg.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("writing to kafka: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
