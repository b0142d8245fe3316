package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/BearBump/MailTrack/internal/broker/messages"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	msgs      []kafka.Message
	err       error
	i         int
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if r.i < len(r.msgs) {
		m := r.msgs[r.i]
		r.i++
		return m, nil
	}
	if r.err != nil {
		return kafka.Message{}, r.err
	}
	return kafka.Message{}, errors.New("eof")
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func syncRequestMessage(t *testing.T, email string, force bool) kafka.Message {
	t.Helper()
	b, err := json.Marshal(messages.NewSyncRequested(email, force, time.Now().UTC()))
	require.NoError(t, err)
	return kafka.Message{Key: []byte(email), Value: b}
}

func TestSyncRequestConsumer_DecodesAndCommits(t *testing.T) {
	fr := &fakeReader{
		msgs: []kafka.Message{
			syncRequestMessage(t, "a@example.com", true),
			{Value: []byte("{broken")},
			{Value: []byte(`{"force":true}`)},
			syncRequestMessage(t, "b@example.com", false),
		},
		err: errors.New("stop"),
	}
	c := newSyncRequestConsumerWithReader(fr)

	var got []messages.SyncRequested
	err := c.Consume(context.Background(), func(ctx context.Context, ev messages.SyncRequested) error {
		got = append(got, ev)
		return nil
	})
	require.ErrorContains(t, err, "fetch message")

	require.Len(t, got, 2)
	require.Equal(t, "a@example.com", got[0].Email)
	require.True(t, got[0].Force)
	require.NotEmpty(t, got[0].EventID)
	require.Equal(t, "b@example.com", got[1].Email)
	require.False(t, got[1].Force)

	// Malformed events are committed too.
	require.Len(t, fr.committed, 4)
}

func TestSyncRequestConsumer_HandlerErrorStopsWithoutCommit(t *testing.T) {
	fr := &fakeReader{msgs: []kafka.Message{syncRequestMessage(t, "a@example.com", false)}}
	c := newSyncRequestConsumerWithReader(fr)

	want := errors.New("pg down")
	err := c.Consume(context.Background(), func(ctx context.Context, ev messages.SyncRequested) error { return want })
	require.ErrorIs(t, err, want)
	require.Empty(t, fr.committed)
}

func TestNewSyncRequestConsumer_Close(t *testing.T) {
	c := NewSyncRequestConsumer([]string{"localhost:0"}, "sync.requested", "mailtrack-worker")
	require.NotNil(t, c)
	require.NoError(t, c.Close())
}
