//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/ibge-localidades-etl/internal/adapter/file"
	"github.com/couchcryptid/ibge-localidades-etl/internal/adapter/ibge"
	"github.com/couchcryptid/ibge-localidades-etl/internal/adapter/kafka"
	"github.com/couchcryptid/ibge-localidades-etl/internal/config"
	"github.com/couchcryptid/ibge-localidades-etl/internal/domain"
	"github.com/couchcryptid/ibge-localidades-etl/internal/observability"
	"github.com/couchcryptid/ibge-localidades-etl/internal/pipeline"
)

const estadosJSON = `[{"id":35,"sigla":"SP","nome":"São Paulo"},{"id":12,"sigla":"AC","nome":"Acre"},{"id":33,"sigla":"RJ","nome":"Rio de Janeiro"}]`

// publishedMessage holds a deserialized message read back from the topic.
type publishedMessage struct {
	State   domain.State
	Key     string
	Headers map[string]string
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("localidades-test"))
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var state domain.State
	require.NoError(t, json.Unmarshal(msg.Value, &state), "unmarshal message")
	return publishedMessage{State: state, Key: string(msg.Key), Headers: headers}
}

// TestStatesPipeline_PublishesToKafka runs the API states pipeline against a
// fake upstream with both the file writer and the Kafka publisher attached,
// then reads the records back from the topic in sorted order.
func TestStatesPipeline_PublishesToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	topic := fmt.Sprintf("localidades-%d", time.Now().UnixNano())
	createTopic(t, broker, topic)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(estadosJSON))
	}))
	defer upstream.Close()

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: topic}
	logger := observability.DiscardLogger()
	metrics := observability.NewMetricsForTesting()

	publisher := kafka.NewWriter(cfg, "api", logger)
	t.Cleanup(func() { _ = publisher.Close() })
	dir := t.TempDir()

	client := ibge.NewClient(5*time.Second, "integration-test", metrics, logger)
	p := pipeline.New(domain.KindStates, ibge.NewJSONSource(client, upstream.URL),
		func(raw domain.RawRecord) (domain.State, error) {
			return domain.NormalizeState(raw, domain.APIStateFields)
		},
		[]pipeline.Loader{file.NewWriter(dir, logger), publisher}, logger, metrics)

	res, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"file", "kafka"}, res.Sinks)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	want := []domain.State{
		{Code: domain.NumberCode(12), Abbr: "AC", Name: "Acre"},
		{Code: domain.NumberCode(33), Abbr: "RJ", Name: "Rio de Janeiro"},
		{Code: domain.NumberCode(35), Abbr: "SP", Name: "São Paulo"},
	}
	for _, w := range want {
		msg := readPublished(ctx, t, consumer)
		assert.Equal(t, w, msg.State)
		assert.Equal(t, "states:"+w.Code.String(), msg.Key)
		assert.Equal(t, "states", msg.Headers["kind"])
		assert.Equal(t, "api", msg.Headers["source"])
	}
}
