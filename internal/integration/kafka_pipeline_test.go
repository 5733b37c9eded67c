//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/tidecast/hydro-forecast-etl/internal/adapter/catalog"
	"github.com/tidecast/hydro-forecast-etl/internal/adapter/dfs0"
	kafkaadapter "github.com/tidecast/hydro-forecast-etl/internal/adapter/kafka"
	"github.com/tidecast/hydro-forecast-etl/internal/config"
	"github.com/tidecast/hydro-forecast-etl/internal/domain"
	"github.com/tidecast/hydro-forecast-etl/internal/forecast"
	"github.com/tidecast/hydro-forecast-etl/internal/observability"
)

const (
	testSinkTopic = "test-forecast-series"
	testClientID  = "TT_HD_BPTT_Cypre"
)

// startKafka spins up a single-node Kafka broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.6.1",
		tckafka.WithClusterID("forecast-test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve broker address")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "resolve controller")

	controllerConn, err := kafkago.Dial("tcp",
		net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeCatalog lays out a snapshot catalog under a temp directory: one CSV
// per key, 3 hourly samples each, values derived from the key's day so the
// assembled series is easy to assert on.
func writeCatalog(t *testing.T, keys []domain.SnapshotKey) string {
	t.Helper()

	root := t.TempDir()
	dir := filepath.Join(root, testClientID)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	for _, key := range keys {
		when, err := key.Instant()
		require.NoError(t, err)

		content := "timestamp,Salinity,Temperature\n"
		for i := 0; i < 3; i++ {
			ts := when.Add(time.Duration(i) * time.Hour)
			content += fmt.Sprintf("%s,%.1f,%.1f\n",
				ts.Format("2006-01-02 15:04:05"),
				34.0+float64(when.Day()), 27.0+float64(i))
		}
		require.NoError(t, os.WriteFile(
			filepath.Join(dir, string(key)+".dfs0.csv"), []byte(content), 0o600))
	}
	return root
}

// TestPublishAssembledForecast builds a master series from a real on-disk
// catalog and verifies it round-trips through Kafka with its headers intact.
func TestPublishAssembledForecast(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	// Catalog: three runs one, two, and three days ahead of the reference.
	reference := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	keys := []domain.SnapshotKey{"2024030206", "2024030306", "2024030406"}
	root := writeCatalog(t, keys)

	assembler := forecast.New(
		catalog.NewFS(root),
		dfs0.NewIngestor(),
		testClientID,
		domain.DefaultWindowDays,
		2,
		discardLogger(),
		observability.NewMetricsForTesting(),
	)

	series, err := assembler.BuildForecast(ctx, reference)
	require.NoError(t, err)
	require.Equal(t, keys, series.Keys)
	require.Len(t, series.Rows, 9)

	cfg := &config.Config{
		KafkaBrokers:   []string{broker},
		KafkaSinkTopic: testSinkTopic,
	}
	writer := kafkaadapter.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	require.NoError(t, writer.Publish(ctx, testClientID, series))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	assert.Equal(t, testClientID, string(msg.Key))

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, testClientID, headers["client_id"])
	assert.Equal(t, "3", headers["fragments"])
	assert.Equal(t, reference.Format(time.RFC3339), headers["reference"])
	_, err = time.Parse(time.RFC3339, headers["built_at"])
	assert.NoError(t, err, "built_at should be valid RFC3339")

	var received domain.MasterSeries
	require.NoError(t, json.Unmarshal(msg.Value, &received))
	assert.Equal(t, keys, received.Keys)
	assert.Equal(t, []string{"Salinity", "Temperature"}, received.Columns)
	require.Len(t, received.Rows, 9)

	// Rows arrive in fragment order: day 2's samples before day 3's.
	assert.Equal(t, 36.0, received.Rows[0].Values[0])
	assert.Equal(t, 37.0, received.Rows[3].Values[0])
	assert.Equal(t, 38.0, received.Rows[6].Values[0])
	for i := 1; i < len(received.Rows); i++ {
		assert.False(t, received.Rows[i].Timestamp.Before(received.Rows[i-1].Timestamp),
			"row %d out of order", i)
	}
}
