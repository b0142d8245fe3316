// Package mailsync discovers shipments in a user's mailbox and keeps the
// account's shipment collection current.
package mailsync

import (
	"context"
	"time"

	"github.com/BearBump/MailTrack/internal/mailbox"
	"github.com/BearBump/MailTrack/internal/models"
	"github.com/pkg/errors"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateShipment also matches ErrInvalidInput.
	ErrDuplicateShipment = errors.Wrap(ErrInvalidInput, "tracking number already exists")
)

type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// AccountStore is the save hook. It is awaited after every mutation.
type AccountStore interface {
	SaveAccount(ctx context.Context, acc *models.Account) error
}

type Tracker interface {
	TrackOne(ctx context.Context, carrierCode, trackingNumber string) (models.TrackingResult, error)
	IsCarrierSupported(code string) bool
}

type Change string

const (
	ChangeCreated Change = "created"
	ChangeUpdated Change = "updated"
	ChangeDeleted Change = "deleted"
)

type Notifier interface {
	ShipmentChanged(ctx context.Context, email string, s *models.Shipment, change Change)
}

type Config struct {
	Retention         time.Duration // default: 90 days
	SyncInterval      time.Duration // default: 1 hour
	FreshGrace        time.Duration // default: 48 hours
	FetchConcurrency  int           // default: 8
	LookupConcurrency int           // default: 4
}

func DefaultConfig() Config {
	return Config{
		Retention:         90 * 24 * time.Hour,
		SyncInterval:      time.Hour,
		FreshGrace:        48 * time.Hour,
		FetchConcurrency:  8,
		LookupConcurrency: 4,
	}
}

type Syncer struct {
	mb        mailbox.Mailbox
	refresher TokenRefresher
	store     AccountStore
	tracker   Tracker
	notifier  Notifier

	cfg Config
	now func() time.Time
}

func New(mb mailbox.Mailbox, refresher TokenRefresher, store AccountStore, tracker Tracker, cfg Config) *Syncer {
	def := DefaultConfig()
	if cfg.Retention <= 0 {
		cfg.Retention = def.Retention
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = def.SyncInterval
	}
	if cfg.FreshGrace <= 0 {
		cfg.FreshGrace = def.FreshGrace
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = def.FetchConcurrency
	}
	if cfg.LookupConcurrency <= 0 {
		cfg.LookupConcurrency = def.LookupConcurrency
	}
	return &Syncer{
		mb:        mb,
		refresher: refresher,
		store:     store,
		tracker:   tracker,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Syncer) WithNotifier(n Notifier) *Syncer {
	s.notifier = n
	return s
}

func (s *Syncer) Config() Config { return s.cfg }

func (s *Syncer) notify(ctx context.Context, email string, sh *models.Shipment, change Change) {
	if s.notifier != nil {
		s.notifier.ShipmentChanged(ctx, email, sh, change)
	}
}
