// Package poller runs scheduled mailbox syncs for due accounts.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/MailTrack/internal/models"
	"github.com/BearBump/MailTrack/internal/storage/pgaccounts"
)

type Repository interface {
	ClaimDueAccounts(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.Account, error)
	RecordSyncResult(ctx context.Context, res pgaccounts.SyncResult) error
	WithAccountLock(ctx context.Context, email string, fn func(acc *models.Account) error) error
}

type Syncer interface {
	Sync(ctx context.Context, acc *models.Account, force bool) error
}

type Poller struct {
	repo   Repository
	syncer Syncer

	planner *Planner

	pollInterval time.Duration
	batchSize    int
	concurrency  int
	lease        time.Duration

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalClaimed        atomic.Int64
	totalProcessed      atomic.Int64
	totalErrors         atomic.Int64
	inFlight            atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(repo Repository, syncer Syncer) *Poller {
	return &Poller{
		repo:              repo,
		syncer:            syncer,
		planner:           DefaultPlanner(),
		pollInterval:      30 * time.Second,
		batchSize:         20,
		concurrency:       4,
		lease:             10 * time.Minute,
		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func DefaultPlanner() *Planner {
	return NewPlanner(DefaultPlannerConfig(), nil)
}

func (p *Poller) WithSettings(pollInterval time.Duration, batchSize, concurrency int, lease time.Duration) *Poller {
	if pollInterval > 0 {
		p.pollInterval = pollInterval
	}
	if batchSize > 0 {
		p.batchSize = batchSize
	}
	if concurrency > 0 {
		p.concurrency = concurrency
	}
	if lease > 0 {
		p.lease = lease
	}
	return p
}

func (p *Poller) WithPlanner(cfg PlannerConfig) *Poller {
	p.planner = NewPlanner(cfg, nil)
	return p
}

// Trigger forces an immediate poll cycle (best-effort, non-blocking).
func (p *Poller) Trigger() {
	p.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt      time.Time  `json:"startedAt"`
	LastCycleAt    *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt  *time.Time `json:"lastTriggerAt,omitempty"`
	TotalClaimed   int64      `json:"totalClaimed"`
	TotalProcessed int64      `json:"totalProcessed"`
	TotalErrors    int64      `json:"totalErrors"`
	InFlight       int64      `json:"inFlight"`
	LastError      string     `json:"lastError,omitempty"`
}

func (p *Poller) Stats() Stats {
	st := Stats{
		StartedAt:      time.Unix(0, p.startedAtUnixNano).UTC(),
		TotalClaimed:   p.totalClaimed.Load(),
		TotalProcessed: p.totalProcessed.Load(),
		TotalErrors:    p.totalErrors.Load(),
		InFlight:       p.inFlight.Load(),
	}
	if n := p.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := p.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	p.lastErrorMu.Lock()
	st.LastError = p.lastError
	p.lastErrorMu.Unlock()
	return st
}

func (p *Poller) Run(ctx context.Context) error {
	t := time.NewTicker(p.pollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			p.runOnce(ctx)
		case <-p.triggerCh:
			p.runOnce(ctx)
		}
	}
}

func (p *Poller) setLastError(err error) {
	p.lastErrorMu.Lock()
	p.lastError = err.Error()
	p.lastErrorMu.Unlock()
}

func (p *Poller) runOnce(ctx context.Context) {
	now := time.Now().UTC()
	p.lastCycleUnixNano.Store(now.UnixNano())

	items, err := p.repo.ClaimDueAccounts(ctx, now, p.batchSize, p.lease)
	if err != nil {
		slog.Error("claim due accounts", "error", err.Error())
		p.setLastError(err)
		return
	}
	p.totalClaimed.Add(int64(len(items)))

	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup
	for _, acc := range items {
		sem <- struct{}{}
		wg.Add(1)
		p.inFlight.Add(1)
		go func() {
			defer func() {
				p.inFlight.Add(-1)
				<-sem
				wg.Done()
			}()
			if err := p.processOne(ctx, acc, false); err != nil {
				p.totalErrors.Add(1)
				p.setLastError(err)
				slog.Error("sync account", "account_id", acc.ID, "email", acc.Email, "error", err.Error())
			}
			p.totalProcessed.Add(1)
		}()
	}
	wg.Wait()
}

// SyncNow runs an out-of-schedule sync and records it like a claimed one.
func (p *Poller) SyncNow(ctx context.Context, acc *models.Account, force bool) error {
	p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	err := p.processOne(ctx, acc, force)
	if err != nil {
		p.totalErrors.Add(1)
		p.setLastError(err)
	}
	p.totalProcessed.Add(1)
	return err
}

// processOne syncs one account under its lock and schedules its next sync.
// The sync error is returned after the failure has been recorded.
func (p *Poller) processOne(ctx context.Context, acc *models.Account, force bool) error {
	cur := acc
	syncErr := p.repo.WithAccountLock(ctx, acc.Email, func(fresh *models.Account) error {
		cur = fresh
		return p.syncer.Sync(ctx, fresh, force)
	})

	now := time.Now().UTC()
	res := pgaccounts.SyncResult{AccountID: acc.ID}
	if syncErr != nil {
		e := syncErr.Error()
		res.Error = &e
		res.NextSyncAt = now.Add(p.planner.BackoffDelay(acc.SyncFailCount + 1))
	} else {
		res.NextSyncAt = now.Add(p.planner.NextSyncDelay(cur, now))
	}

	if err := p.repo.RecordSyncResult(ctx, res); err != nil {
		slog.Error("record sync result", "account_id", acc.ID, "error", err.Error())
		if syncErr == nil {
			return err
		}
	}
	return syncErr
}
