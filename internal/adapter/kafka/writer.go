package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/ibge-localidades-etl/internal/config"
	"github.com/couchcryptid/ibge-localidades-etl/internal/domain"
)

// Writer publishes every record of a dataset to a Kafka topic.
// It implements pipeline.Loader.
type Writer struct {
	writer  *kafkago.Writer
	variant string
	logger  *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic. variant is
// recorded in the "source" header of every message.
func NewWriter(cfg *config.Config, variant string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, variant: variant, logger: logger}
}

func (w *Writer) Name() string { return "kafka" }

// Load serializes and publishes the dataset in a single WriteMessages call.
func (w *Writer) Load(ctx context.Context, ds domain.Dataset) error {
	if len(ds.Records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(ds.Records))
	for i, r := range ds.Records {
		msg, err := serializeToMessage(ds.Kind, w.variant, r)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %s to %s: %w", ds.Kind, w.writer.Topic, err)
	}
	w.logger.Info("published", "kind", ds.Kind, "topic", w.writer.Topic, "records", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a record into a Kafka message keyed by kind
// and record key, so a record always lands on the same partition.
func serializeToMessage(kind domain.Kind, variant string, r domain.Record) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s record %s: %w", kind, r.Key(), err)
	}
	return kafkago.Message{
		Key:   []byte(string(kind) + ":" + r.Key()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(kind)},
			{Key: "source", Value: []byte(variant)},
		},
	}, nil
}
