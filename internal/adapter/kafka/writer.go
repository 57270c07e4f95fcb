package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/ccaa-covid-etl/internal/config"
	"github.com/couchcryptid/ccaa-covid-etl/internal/domain"
	"github.com/couchcryptid/ccaa-covid-etl/internal/observability"
)

// NationalKey keys the national summary message.
const NationalKey = "ES"

// messageWriter is the subset of *kafkago.Writer the Writer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes snapshots to a Kafka topic: one message per region holding
// its latest row, and one message holding the latest national totals.
// It implements pipeline.Publisher.
type Writer struct {
	writer   messageWriter
	registry *domain.Registry
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured snapshot topic.
func NewWriter(cfg *config.Config, registry *domain.Registry, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, registry: registry, logger: logger, metrics: metrics}
}

// RegionMessage is the value of a per-region message.
type RegionMessage struct {
	GeneratedAt time.Time `json:"generated_at"`
	Source      string    `json:"source"`
	Region      string    `json:"region"`
	domain.LatestRow
}

// NationalMessage is the value of the national summary message.
type NationalMessage struct {
	GeneratedAt time.Time `json:"generated_at"`
	Source      string    `json:"source"`
	domain.SummaryRow
}

// Publish writes the snapshot's latest rows in a single WriteMessages call.
func (w *Writer) Publish(ctx context.Context, snap *domain.Snapshot) error {
	msgs, err := w.snapshotMessages(snap)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	w.metrics.MessagesPublished.Add(float64(len(msgs)))
	w.logger.Info("snapshot published", "messages", len(msgs), "generated_at", snap.GeneratedAt)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func (w *Writer) snapshotMessages(snap *domain.Snapshot) ([]kafkago.Message, error) {
	msgs := make([]kafkago.Message, 0, len(snap.Latest)+1)
	for _, row := range snap.Latest {
		name, _ := w.registry.Name(row.Code)
		msg, err := serializeToMessage(row.Code, "region", snap.GeneratedAt, RegionMessage{
			GeneratedAt: snap.GeneratedAt,
			Source:      snap.Source,
			Region:      name,
			LatestRow:   row,
		})
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}

	if snap.Summary != nil && len(snap.Summary.Rows) > 0 {
		last := snap.Summary.Rows[len(snap.Summary.Rows)-1]
		msg, err := serializeToMessage(NationalKey, "national", snap.GeneratedAt, NationalMessage{
			GeneratedAt: snap.GeneratedAt,
			Source:      snap.Source,
			SummaryRow:  last,
		})
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// serializeToMessage marshals v into a Kafka message keyed by key.
func serializeToMessage(key, kind string, generatedAt time.Time, v any) (kafkago.Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s message %s: %w", kind, key, err)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(kind)},
			{Key: "generated_at", Value: []byte(generatedAt.Format(time.RFC3339))},
		},
	}, nil
}
