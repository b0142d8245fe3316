package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/BearBump/MailTrack/config"
	"github.com/BearBump/MailTrack/internal/broker/kafka"
	"github.com/BearBump/MailTrack/internal/broker/messages"
	"github.com/BearBump/MailTrack/internal/cache"
	"github.com/BearBump/MailTrack/internal/cache/memcache"
	"github.com/BearBump/MailTrack/internal/cache/rediscache"
	"github.com/BearBump/MailTrack/internal/integrations/carrier"
	"github.com/BearBump/MailTrack/internal/integrations/carrier/fake"
	"github.com/BearBump/MailTrack/internal/mailbox"
	"github.com/BearBump/MailTrack/internal/models"
	"github.com/BearBump/MailTrack/internal/services/mailsync"
	"github.com/BearBump/MailTrack/internal/services/poller"
	"github.com/BearBump/MailTrack/internal/services/tracking"
	"github.com/BearBump/MailTrack/internal/storage/pgaccounts"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu        sync.Mutex
	accounts  map[string]*models.Account
	requested []string
	results   []pgaccounts.SyncResult
	pingErr   error
}

func newFakeStore(accs ...*models.Account) *fakeStore {
	st := &fakeStore{accounts: map[string]*models.Account{}}
	for _, a := range accs {
		st.accounts[a.Email] = a
	}
	return st
}

func (s *fakeStore) ClaimDueAccounts(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.Account, error) {
	return nil, nil
}

func (s *fakeStore) RecordSyncResult(ctx context.Context, res pgaccounts.SyncResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, res)
	return nil
}

func (s *fakeStore) SaveAccount(ctx context.Context, acc *models.Account) error { return nil }

func (s *fakeStore) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[email]; ok {
		return a, nil
	}
	return nil, pgaccounts.ErrAccountNotFound
}

func (s *fakeStore) WithAccountLock(ctx context.Context, email string, fn func(acc *models.Account) error) error {
	acc, err := s.GetAccountByEmail(ctx, email)
	if err != nil {
		return err
	}
	return fn(acc)
}

func (s *fakeStore) RequestSync(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[email]; !ok {
		return pgaccounts.ErrAccountNotFound
	}
	s.requested = append(s.requested, email)
	return nil
}

func (s *fakeStore) Ping(ctx context.Context) error { return s.pingErr }

type noopPublisher struct{}

func (noopPublisher) PublishJSON(ctx context.Context, topic, key string, v any) error { return nil }

type idleConsumer struct{}

func (idleConsumer) Consume(ctx context.Context, handler func(ctx context.Context, ev messages.SyncRequested) error) error {
	<-ctx.Done()
	return ctx.Err()
}

type emptyMailbox struct{}

func (emptyMailbox) Search(ctx context.Context, token, query, pageToken string) (mailbox.SearchPage, error) {
	return mailbox.SearchPage{}, nil
}

func (emptyMailbox) Get(ctx context.Context, token, id string) (*mailbox.Message, error) {
	return nil, errors.New("no messages")
}

type recordingSyncer struct {
	mu     sync.Mutex
	forced []bool
}

func (s *recordingSyncer) Sync(ctx context.Context, acc *models.Account, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forced = append(s.forced, force)
	return nil
}

func TestDefaultWorkerFactories_CacheSelection(t *testing.T) {
	f := defaultWorkerFactories()

	c, rl := f.newCache(&config.Config{})
	_, ok := c.(*memcache.Cache)
	require.True(t, ok)
	require.Nil(t, rl)

	c, rl = f.newCache(&config.Config{Redis: config.RedisConfig{Host: "localhost", Port: 6379}})
	_, ok = c.(*rediscache.RedisCache)
	require.True(t, ok)
	require.NotNil(t, rl)
}

func TestDefaultWorkerFactories_FakeRegistryAndPublisher(t *testing.T) {
	f := defaultWorkerFactories()
	cfg := &config.Config{
		Kafka:    config.KafkaConfig{Host: "localhost", Port: 9092},
		Carriers: config.CarriersConfig{Mode: "fake"},
	}
	reg := f.newRegistry(cfg)
	require.ElementsMatch(t, []string{"fedex", "ups", "usps"}, reg.Codes())

	pub := f.newPublisher(cfg)
	_, ok := pub.(*kafka.Producer)
	require.True(t, ok)

	mb, refresher := f.newMailbox(cfg)
	require.NotNil(t, mb)
	require.NotNil(t, refresher)
}

func testFactories(st *fakeStore, closed *bool) workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (workerStore, func(), error) {
			return st, func() { *closed = true }, nil
		},
		newPublisher: func(cfg *config.Config) kafka.JSONPublisher { return noopPublisher{} },
		newConsumer:  func(cfg *config.Config) syncConsumer { return idleConsumer{} },
		newCache: func(cfg *config.Config) (cache.BytesCache, tracking.RateLimiter) {
			return memcache.New(), nil
		},
		newMailbox: func(cfg *config.Config) (mailbox.Mailbox, mailsync.TokenRefresher) {
			return emptyMailbox{}, nil
		},
		newRegistry: func(cfg *config.Config) tracking.Registry {
			return carrier.NewRegistry().Register("ups", fake.New("ups"))
		},
	}
}

func TestRunMailTrackWorker_ContextCanceled(t *testing.T) {
	closed := false
	st := newFakeStore()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunMailTrackWorker(ctx, &config.Config{}, testFactories(st, &closed), workerHTTPOpts{httpAddr: "127.0.0.1:0"})
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, closed)
}

func TestRunMailTrackWorker_ServesHTTP(t *testing.T) {
	closed := false
	st := newFakeStore()
	st.pingErr = errors.New("pg down")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan string, 1)
	errCh := make(chan error, 1)
	cfg := &config.Config{MailTrack: config.MailTrackConfig{WorkerBatchSize: 7}}
	go func() {
		errCh <- RunMailTrackWorker(ctx, cfg, testFactories(st, &closed), workerHTTPOpts{
			httpAddr: "127.0.0.1:0",
			onListen: func(addr string) { addrCh <- addr },
		})
	}()
	addr := <-addrCh

	resp, err := http.Get("http://" + addr + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Get("http://" + addr + "/config")
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	require.EqualValues(t, 7, out["batchSize"])

	resp, err = http.Post("http://"+addr+"/trigger", "application/json", nil)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.JSONEq(t, `{"triggered":true}`, string(body))

	resp, err = http.Get("http://" + addr + "/stats")
	require.NoError(t, err)
	var stats poller.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	resp.Body.Close()
	require.NotNil(t, stats.LastTriggerAt)

	cancel()
	select {
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting worker to stop")
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	}
	require.True(t, closed)
}

func TestSyncRequestHandler(t *testing.T) {
	acc := &models.Account{ID: 3, Email: "a@example.com"}
	st := newFakeStore(acc)
	rs := &recordingSyncer{}
	p := poller.New(st, rs)
	h := syncRequestHandler(st, p)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, h(ctx, messages.NewSyncRequested("ghost@example.com", false, now)))
	require.NoError(t, h(ctx, messages.NewSyncRequested("ghost@example.com", true, now)))

	require.NoError(t, h(ctx, messages.NewSyncRequested(acc.Email, false, now)))
	require.Equal(t, []string{acc.Email}, st.requested)
	require.Empty(t, rs.forced)
	require.NotNil(t, p.Stats().LastTriggerAt)

	require.NoError(t, h(ctx, messages.NewSyncRequested(acc.Email, true, now)))
	require.Equal(t, []bool{true}, rs.forced)
	require.Len(t, st.results, 1)
	require.Equal(t, uint64(3), st.results[0].AccountID)
}
