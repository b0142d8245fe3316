package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/BearBump/MailTrack/config"
	"github.com/BearBump/MailTrack/internal/broker/kafka"
	"github.com/BearBump/MailTrack/internal/broker/messages"
	"github.com/BearBump/MailTrack/internal/cache"
	"github.com/BearBump/MailTrack/internal/cache/memcache"
	"github.com/BearBump/MailTrack/internal/cache/rediscache"
	"github.com/BearBump/MailTrack/internal/integrations/carrier/carriers"
	"github.com/BearBump/MailTrack/internal/integrations/gmail"
	"github.com/BearBump/MailTrack/internal/mailbox"
	"github.com/BearBump/MailTrack/internal/models"
	"github.com/BearBump/MailTrack/internal/services/mailsync"
	"github.com/BearBump/MailTrack/internal/services/poller"
	"github.com/BearBump/MailTrack/internal/services/tracking"
	"github.com/BearBump/MailTrack/internal/storage/pgaccounts"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// workerStore is everything the worker needs from account storage.
type workerStore interface {
	poller.Repository
	mailsync.AccountStore
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	RequestSync(ctx context.Context, email string) error
	Ping(ctx context.Context) error
}

type syncConsumer interface {
	Consume(ctx context.Context, handler func(ctx context.Context, ev messages.SyncRequested) error) error
}

type workerFactories struct {
	newStorage   func(cfg *config.Config) (st workerStore, closeFn func(), err error)
	newPublisher func(cfg *config.Config) kafka.JSONPublisher
	newConsumer  func(cfg *config.Config) syncConsumer
	newCache     func(cfg *config.Config) (cache.BytesCache, tracking.RateLimiter)
	newMailbox   func(cfg *config.Config) (mailbox.Mailbox, mailsync.TokenRefresher)
	newRegistry  func(cfg *config.Config) tracking.Registry
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (workerStore, func(), error) {
			st, err := pgaccounts.New(cfg.Database.ConnString())
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newPublisher: func(cfg *config.Config) kafka.JSONPublisher {
			return kafka.NewProducer(cfg.Kafka.Brokers())
		},
		newConsumer: func(cfg *config.Config) syncConsumer {
			group := cfg.MailTrack.KafkaConsumerGroup
			if group == "" {
				group = "mailtrack-worker"
			}
			return kafka.NewSyncRequestConsumer(cfg.Kafka.Brokers(), syncTopic(cfg), group)
		},
		newCache: func(cfg *config.Config) (cache.BytesCache, tracking.RateLimiter) {
			if cfg.Redis.Host == "" {
				return memcache.New(), nil
			}
			rc := rediscache.New(cfg.Redis.Addr())
			return rc, rediscache.NewRateLimiterFromClient(rc.Client())
		},
		newMailbox: func(cfg *config.Config) (mailbox.Mailbox, mailsync.TokenRefresher) {
			return gmail.New(cfg.Gmail.Endpoint, cfg.Gmail.RequestsPerSecond),
				gmail.NewRefresher(cfg.Gmail.ClientID, cfg.Gmail.ClientSecret, cfg.Gmail.TokenURL)
		},
		newRegistry: func(cfg *config.Config) tracking.Registry {
			return carriers.NewRegistry(cfg.Carriers)
		},
	}
}

func syncTopic(cfg *config.Config) string {
	if cfg.Kafka.SyncRequestedTopicName != "" {
		return cfg.Kafka.SyncRequestedTopicName
	}
	return "sync.requested"
}

func shipmentTopic(cfg *config.Config) string {
	if cfg.Kafka.ShipmentUpdatedTopicName != "" {
		return cfg.Kafka.ShipmentUpdatedTopicName
	}
	return "shipment.updated"
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func plannerConfig(c config.MailTrackConfig) poller.PlannerConfig {
	return poller.PlannerConfig{
		ActiveMinDelay: seconds(c.WorkerActiveMinSeconds),
		ActiveMaxDelay: seconds(c.WorkerActiveMaxSeconds),
		IdleDelay:      seconds(c.WorkerIdleSeconds),
		Backoff1:       seconds(c.WorkerBackoff1Seconds),
		Backoff2:       seconds(c.WorkerBackoff2Seconds),
		Backoff3:       seconds(c.WorkerBackoff3Seconds),
		Backoff4:       seconds(c.WorkerBackoff4Seconds),
		Retention:      time.Duration(c.RetentionDays) * 24 * time.Hour,
	}
}

func RunMailTrackWorker(ctx context.Context, cfg *config.Config, f workerFactories, httpOpts workerHTTPOpts) error {
	st, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	bc, rl := f.newCache(cfg)
	svc := tracking.New(f.newRegistry(cfg), bc, seconds(cfg.MailTrack.CacheTTLSeconds))
	if rl != nil {
		perMin := int64(cfg.Carriers.RateLimitPerMinute)
		if perMin <= 0 {
			perMin = 120
		}
		svc = svc.WithRateLimit(rl, perMin).WithCarrierRateLimits(carriers.RateLimits(cfg.Carriers))
	}

	pub := f.newPublisher(cfg)
	if c, ok := pub.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}

	mb, refresher := f.newMailbox(cfg)
	syncer := mailsync.New(mb, refresher, st, svc, mailsync.Config{
		Retention:         time.Duration(cfg.MailTrack.RetentionDays) * 24 * time.Hour,
		SyncInterval:      seconds(cfg.MailTrack.SyncIntervalSeconds),
		FreshGrace:        time.Duration(cfg.MailTrack.FreshGraceHours) * time.Hour,
		FetchConcurrency:  cfg.MailTrack.FetchConcurrency,
		LookupConcurrency: cfg.MailTrack.LookupConcurrency,
	}).WithNotifier(kafka.NewShipmentNotifier(pub, shipmentTopic(cfg)))

	p := poller.New(st, syncer).
		WithSettings(
			seconds(cfg.MailTrack.WorkerPollIntervalSeconds),
			cfg.MailTrack.WorkerBatchSize,
			cfg.MailTrack.WorkerConcurrency,
			seconds(cfg.MailTrack.WorkerLeaseSeconds),
		).
		WithPlanner(plannerConfig(cfg.MailTrack))

	httpOpts.poller = p
	httpOpts.cfg = cfg
	httpOpts.ready = st.Ping

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.Run(gctx) })
	if r, ok := bc.(interface{ Run(ctx context.Context) error }); ok {
		g.Go(func() error { return r.Run(gctx) })
	}
	g.Go(func() error { return runWorkerHTTPServer(gctx, httpOpts) })
	if f.newConsumer != nil {
		consumer := f.newConsumer(cfg)
		if c, ok := consumer.(io.Closer); ok {
			defer func() { _ = c.Close() }()
		}
		g.Go(func() error {
			return consumer.Consume(gctx, syncRequestHandler(st, p))
		})
	}
	return g.Wait()
}

// syncRequestHandler applies SyncRequested events. Unknown accounts are
// logged and skipped so they never block the topic.
func syncRequestHandler(st workerStore, p *poller.Poller) func(ctx context.Context, ev messages.SyncRequested) error {
	return func(ctx context.Context, ev messages.SyncRequested) error {
		if !ev.Force {
			err := st.RequestSync(ctx, ev.Email)
			if errors.Is(err, pgaccounts.ErrAccountNotFound) {
				slog.Warn("sync requested for unknown account", "email", ev.Email)
				return nil
			}
			if err != nil {
				return err
			}
			p.Trigger()
			return nil
		}

		acc, err := st.GetAccountByEmail(ctx, ev.Email)
		if errors.Is(err, pgaccounts.ErrAccountNotFound) {
			slog.Warn("sync requested for unknown account", "email", ev.Email)
			return nil
		}
		if err != nil {
			return err
		}
		if err := p.SyncNow(ctx, acc, true); err != nil {
			slog.Error("forced sync failed", "email", ev.Email, "event_id", ev.EventID, "error", err.Error())
		}
		return nil
	}
}
