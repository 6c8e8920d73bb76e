package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/sea-ice-obs/internal/config"
	"github.com/couchcryptid/sea-ice-obs/internal/domain"
	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// messageWriter is the subset of kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher announces persisted observations on a Kafka topic.
// It implements importer.Publisher.
type Publisher struct {
	writer   messageWriter
	logger   *slog.Logger
	attempts int
	backoff  time.Duration
}

// NewPublisher creates a Kafka producer for the configured sink topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger, attempts: cfg.KafkaPublishAttempts, backoff: initialBackoff}
}

// Publish serializes the observations and writes them in a single
// WriteMessages call, retrying the whole batch with exponential backoff.
func (p *Publisher) Publish(ctx context.Context, records []domain.Observation) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}

	backoff := p.backoff
	var err error
	for attempt := 1; ; attempt++ {
		if err = p.writer.WriteMessages(ctx, msgs...); err == nil {
			p.logger.Debug("published observations", "count", len(msgs), "attempt", attempt)
			return nil
		}
		if attempt >= max(p.attempts, 1) || ctx.Err() != nil {
			break
		}
		p.logger.Warn("publish failed, retrying", "error", err, "attempt", attempt, "backoff", backoff)
		if !retry.SleepWithContext(ctx, backoff) {
			break
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	return fmt.Errorf("write %d observations: %w", len(msgs), err)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals an Observation into a Kafka message keyed by
// its id.
func serializeToMessage(obs domain.Observation) (kafkago.Message, error) {
	data, err := json.Marshal(obs)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize observation: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(obs.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "voyage_id", Value: []byte(obs.VoyageID)},
			{Key: "observed_at", Value: []byte(obs.ObservedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
