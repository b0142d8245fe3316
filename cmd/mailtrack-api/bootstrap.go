package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/MailTrack/config"
	shipmentsapi "github.com/BearBump/MailTrack/internal/api/shipments_api"
	"github.com/BearBump/MailTrack/internal/broker/kafka"
	"github.com/BearBump/MailTrack/internal/cache/memcache"
	"github.com/BearBump/MailTrack/internal/cache/rediscache"
	"github.com/BearBump/MailTrack/internal/integrations/carrier/carriers"
	"github.com/BearBump/MailTrack/internal/integrations/gmail"
	"github.com/BearBump/MailTrack/internal/services/mailsync"
	"github.com/BearBump/MailTrack/internal/services/tracking"
	"github.com/BearBump/MailTrack/internal/storage/pgaccounts"
)

type apiApp struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     apiOpts
	api      *shipmentsapi.ShipmentsAPI
	producer *kafka.Producer
	closeDB  func()
}

func mustBootstrapAPI() *apiApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("config parse error, %v", err))
	}

	httpAddr := cfg.MailTrack.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	shipmentTopic := cfg.Kafka.ShipmentUpdatedTopicName
	if shipmentTopic == "" {
		shipmentTopic = "shipment.updated"
	}
	syncTopic := cfg.Kafka.SyncRequestedTopicName
	if syncTopic == "" {
		syncTopic = "sync.requested"
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	st := mustOpenPostgresWithRetry(cfg.Database.ConnString(), 60*time.Second)

	svc := newTrackingService(ctx, cfg)
	producer := kafka.NewProducer(cfg.Kafka.Brokers())

	syncer := mailsync.New(
		gmail.New(cfg.Gmail.Endpoint, cfg.Gmail.RequestsPerSecond),
		gmail.NewRefresher(cfg.Gmail.ClientID, cfg.Gmail.ClientSecret, cfg.Gmail.TokenURL),
		st,
		svc,
		syncConfig(cfg.MailTrack),
	).WithNotifier(kafka.NewShipmentNotifier(producer, shipmentTopic))

	api := shipmentsapi.New(svc, st, syncer).WithSyncPublisher(producer, syncTopic)

	return &apiApp{
		ctx:    ctx,
		cancel: cancel,
		opts: apiOpts{
			httpAddr:    httpAddr,
			swaggerPath: swaggerPath,
		},
		api:      api,
		producer: producer,
		closeDB:  st.Close,
	}
}

func newTrackingService(ctx context.Context, cfg *config.Config) *tracking.Service {
	ttl := time.Duration(cfg.MailTrack.CacheTTLSeconds) * time.Second
	reg := carriers.NewRegistry(cfg.Carriers)

	if cfg.Redis.Host == "" {
		mc := memcache.New()
		go func() { _ = mc.Run(ctx) }()
		return tracking.New(reg, mc, ttl)
	}
	rc := rediscache.New(cfg.Redis.Addr())
	rlPerMin := int64(cfg.Carriers.RateLimitPerMinute)
	if rlPerMin <= 0 {
		rlPerMin = 120
	}
	slog.Info("tracking cache backed by redis", "addr", cfg.Redis.Addr())
	return tracking.New(reg, rc, ttl).
		WithRateLimit(rediscache.NewRateLimiterFromClient(rc.Client()), rlPerMin).
		WithCarrierRateLimits(carriers.RateLimits(cfg.Carriers))
}

func syncConfig(c config.MailTrackConfig) mailsync.Config {
	return mailsync.Config{
		Retention:         time.Duration(c.RetentionDays) * 24 * time.Hour,
		SyncInterval:      time.Duration(c.SyncIntervalSeconds) * time.Second,
		FreshGrace:        time.Duration(c.FreshGraceHours) * time.Hour,
		FetchConcurrency:  c.FetchConcurrency,
		LookupConcurrency: c.LookupConcurrency,
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgaccounts.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgaccounts.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *apiApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.producer != nil {
		_ = a.producer.Close()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *apiApp) Run() error {
	return runMailTrackAPI(a.ctx, a.opts, a.api)
}
