package mailsync

import (
	"context"
	"encoding/base64"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/MailTrack/internal/mailbox"
	"github.com/BearBump/MailTrack/internal/models"
	"github.com/pkg/errors"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func textMessage(id string, at time.Time, from, body string) *mailbox.Message {
	return &mailbox.Message{
		ID:           id,
		InternalDate: at,
		Headers:      []mailbox.Header{{Name: "From", Value: from}},
		Payload: &mailbox.Part{
			MimeType: "multipart/alternative",
			Parts: []*mailbox.Part{
				{MimeType: "text/plain", Data: base64.URLEncoding.EncodeToString([]byte(body))},
			},
		},
	}
}

type fakeMailbox struct {
	mu       sync.Mutex
	order    []string
	msgs     map[string]*mailbox.Message
	queries  []string
	gets     atomic.Int64
	expireN  int
	accepted string
}

func newFakeMailbox(msgs ...*mailbox.Message) *fakeMailbox {
	f := &fakeMailbox{msgs: map[string]*mailbox.Message{}}
	for _, m := range msgs {
		f.order = append(f.order, m.ID)
		f.msgs[m.ID] = m
	}
	return f
}

func (f *fakeMailbox) Search(ctx context.Context, accessToken, query, pageToken string) (mailbox.SearchPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.expireN > 0 {
		f.expireN--
		return mailbox.SearchPage{}, errors.Wrap(mailbox.ErrAuthExpired, "401")
	}
	return mailbox.SearchPage{IDs: append([]string(nil), f.order...)}, nil
}

func (f *fakeMailbox) Get(ctx context.Context, accessToken, id string) (*mailbox.Message, error) {
	f.gets.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.msgs[id], nil
}

type memStore struct {
	mu    sync.Mutex
	saves int
	err   error
}

func (s *memStore) SaveAccount(ctx context.Context, acc *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	return s.err
}

type countingTracker struct {
	calls atomic.Int64
	res   models.TrackingResult
}

func (c *countingTracker) Track(ctx context.Context, n string) models.TrackingResult {
	c.calls.Add(1)
	return c.res
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []Change
}

func (n *recordingNotifier) ShipmentChanged(ctx context.Context, email string, s *models.Shipment, change Change) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, change)
}

func fixedClock(s *Syncer) *Syncer {
	s.now = func() time.Time { return testNow }
	return s
}
