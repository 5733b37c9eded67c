// Package kafka publishes assembled forecast builds to the sink topic for
// downstream dashboard and export consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/tidecast/hydro-forecast-etl/internal/config"
	"github.com/tidecast/hydro-forecast-etl/internal/domain"
)

// Writer produces one message per successful forecast build.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes the master series and writes it to the sink topic,
// keyed by client so consumers always read a client's builds in order.
func (w *Writer) Publish(ctx context.Context, clientID string, series domain.MasterSeries) error {
	msg, err := serializeToMessage(clientID, series)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a MasterSeries into a Kafka message.
func serializeToMessage(clientID string, series domain.MasterSeries) (kafkago.Message, error) {
	data, err := json.Marshal(series)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize master series: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(clientID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "client_id", Value: []byte(clientID)},
			{Key: "reference", Value: []byte(series.Reference.Format(time.RFC3339))},
			{Key: "built_at", Value: []byte(series.BuiltAt.Format(time.RFC3339))},
			{Key: "fragments", Value: []byte(strconv.Itoa(len(series.Keys)))},
		},
	}, nil
}
