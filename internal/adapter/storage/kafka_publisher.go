package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rl1809/pharmastock/internal/core/domain"
	"github.com/rl1809/pharmastock/internal/port"
)

var _ port.StockSink = (*KafkaPublisher)(nil)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher emits each movement as a JSON event keyed by
// "<pharmacy>:<medicine>", so one key always lands on one partition.
// Several movement workers publish concurrently, so events for a key may
// still arrive out of order; consumers order them by Version.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string, batchTimeout time.Duration) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           batchTimeout,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) Consume(ctx context.Context, m domain.StockMovement) error {
	value, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode movement: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(m.PharmacyID + ":" + m.MedicineID),
		Value: value,
		Time:  m.At,
		Headers: []kafka.Header{
			{Key: "operation", Value: []byte(m.Operation)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish movement: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
