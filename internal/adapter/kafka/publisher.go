package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/geomag-stress-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces one verdict message per run to a Kafka topic.
// It implements pipeline.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the verdict topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes the report's verdict and writes it keyed by run id.
func (p *Publisher) Publish(ctx context.Context, r domain.Report) error {
	msg, err := serializeToMessage(r.Verdict())
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish verdict %s: %w", r.RunID, err)
	}
	p.logger.Debug("verdict published", "run_id", r.RunID, "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a Verdict into a Kafka message.
func serializeToMessage(v domain.Verdict) (kafkago.Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize verdict: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(v.RunID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "status", Value: []byte(v.Status)},
			{Key: "generated_at", Value: []byte(v.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
