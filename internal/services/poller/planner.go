package poller

import (
	"math/rand"
	"time"

	"github.com/BearBump/MailTrack/internal/models"
)

type Rand interface {
	Intn(n int) int
}

type PlannerConfig struct {
	ActiveMinDelay time.Duration // default: 60 minutes
	ActiveMaxDelay time.Duration // default: 75 minutes

	IdleDelay time.Duration // default: 6 hours

	Backoff1 time.Duration // default: 5 minutes
	Backoff2 time.Duration // default: 15 minutes
	Backoff3 time.Duration // default: 30 minutes
	Backoff4 time.Duration // default: 60 minutes

	Retention time.Duration // default: 90 days
}

func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		ActiveMinDelay: 60 * time.Minute,
		ActiveMaxDelay: 75 * time.Minute,

		IdleDelay: 6 * time.Hour,

		Backoff1: 5 * time.Minute,
		Backoff2: 15 * time.Minute,
		Backoff3: 30 * time.Minute,
		Backoff4: 60 * time.Minute,

		Retention: 90 * 24 * time.Hour,
	}
}

type Planner struct {
	cfg PlannerConfig
	r   Rand
}

func NewPlanner(cfg PlannerConfig, r Rand) *Planner {
	def := DefaultPlannerConfig()
	if cfg.ActiveMinDelay <= 0 {
		cfg.ActiveMinDelay = def.ActiveMinDelay
	}
	if cfg.ActiveMaxDelay <= 0 {
		cfg.ActiveMaxDelay = def.ActiveMaxDelay
	}
	if cfg.ActiveMaxDelay < cfg.ActiveMinDelay {
		cfg.ActiveMaxDelay = cfg.ActiveMinDelay
	}
	if cfg.IdleDelay <= 0 {
		cfg.IdleDelay = def.IdleDelay
	}
	if cfg.Backoff1 <= 0 {
		cfg.Backoff1 = def.Backoff1
	}
	if cfg.Backoff2 <= 0 {
		cfg.Backoff2 = def.Backoff2
	}
	if cfg.Backoff3 <= 0 {
		cfg.Backoff3 = def.Backoff3
	}
	if cfg.Backoff4 <= 0 {
		cfg.Backoff4 = def.Backoff4
	}
	if cfg.Retention <= 0 {
		cfg.Retention = def.Retention
	}
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Planner{cfg: cfg, r: r}
}

// NextSyncDelay is jittered between the active bounds while the account has
// an undelivered shipment inside the retention window, and IdleDelay otherwise.
func (p *Planner) NextSyncDelay(acc *models.Account, now time.Time) time.Duration {
	if !hasActive(acc, now, p.cfg.Retention) {
		return p.cfg.IdleDelay
	}
	min := p.cfg.ActiveMinDelay
	max := p.cfg.ActiveMaxDelay
	if max == min {
		return min
	}
	secMin := int(min.Seconds())
	secMax := int(max.Seconds())
	if secMax < secMin {
		secMax = secMin
	}
	return time.Duration(secMin+p.r.Intn(secMax-secMin+1)) * time.Second
}

func (p *Planner) BackoffDelay(nextFailCount int32) time.Duration {
	switch {
	case nextFailCount <= 1:
		return p.cfg.Backoff1
	case nextFailCount == 2:
		return p.cfg.Backoff2
	case nextFailCount == 3:
		return p.cfg.Backoff3
	default:
		return p.cfg.Backoff4
	}
}

func hasActive(acc *models.Account, now time.Time, retention time.Duration) bool {
	for _, s := range acc.Shipments {
		if s.Status != models.StatusDelivered && !s.Frozen(now, retention) {
			return true
		}
	}
	return false
}
