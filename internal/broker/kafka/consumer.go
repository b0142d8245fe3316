package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/BearBump/MailTrack/internal/broker/messages"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// SyncRequestConsumer reads SyncRequested events from one topic in a
// consumer group.
type SyncRequestConsumer struct {
	r messageReader
}

func NewSyncRequestConsumer(brokers []string, topic, groupID string) *SyncRequestConsumer {
	cfg := kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
		StartOffset:       kafka.LastOffset,
	}
	if groupID != "" {
		cfg.GroupTopics = []string{topic}
	} else {
		cfg.Topic = topic
	}
	return &SyncRequestConsumer{r: kafka.NewReader(cfg)}
}

func newSyncRequestConsumerWithReader(r messageReader) *SyncRequestConsumer {
	return &SyncRequestConsumer{r: r}
}

func (c *SyncRequestConsumer) Close() error {
	return c.r.Close()
}

// Consume decodes each event and hands it to handler. Events without an
// email are logged and committed. A handler error stops consumption and
// leaves the event uncommitted, so it is redelivered after restart.
func (c *SyncRequestConsumer) Consume(ctx context.Context, handler func(ctx context.Context, ev messages.SyncRequested) error) error {
	for {
		msg, err := c.r.FetchMessage(ctx)
		if err != nil {
			return errors.Wrap(err, "fetch message")
		}

		var ev messages.SyncRequested
		if err := json.Unmarshal(msg.Value, &ev); err != nil || ev.Email == "" {
			slog.Warn("skip malformed sync request", "partition", msg.Partition, "offset", msg.Offset)
		} else if err := handler(ctx, ev); err != nil {
			return err
		}

		if err := c.r.CommitMessages(ctx, msg); err != nil {
			return errors.Wrap(err, "commit message")
		}
	}
}
