package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/MailTrack/internal/cache"
	"github.com/BearBump/MailTrack/internal/integrations/carrier"
	"github.com/BearBump/MailTrack/internal/metrics"
	"github.com/BearBump/MailTrack/internal/models"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL follows the carriers' API usage guidelines.
const DefaultTTL = time.Hour

// DefaultLookupTimeout bounds one shared lookup, throttling included.
const DefaultLookupTimeout = 30 * time.Second

type Registry interface {
	IsCourierValid(code string) bool
	Tracker(code string) (carrier.Tracker, error)
	Codes() []string
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type Service struct {
	registry Registry
	cache    cache.BytesCache
	ttl      time.Duration

	rl                 RateLimiter
	rateLimitPerMinute int64
	carrierLimits      map[string]int64
	throttleDelay      time.Duration
	lookupTimeout      time.Duration

	flight singleflight.Group
	now    func() time.Time
}

func New(registry Registry, c cache.BytesCache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		registry:      registry,
		cache:         c,
		ttl:           ttl,
		throttleDelay: 500 * time.Millisecond,
		lookupTimeout: DefaultLookupTimeout,
		now:           time.Now,
	}
}

// WithRateLimit smooths upstream calls to perMinute per carrier.
func (s *Service) WithRateLimit(rl RateLimiter, perMinute int64) *Service {
	s.rl = rl
	s.rateLimitPerMinute = perMinute
	return s
}

// WithCarrierRateLimits overrides the per-minute limit for single carriers.
func (s *Service) WithCarrierRateLimits(perMinute map[string]int64) *Service {
	s.carrierLimits = perMinute
	return s
}

func (s *Service) IsCarrierSupported(code string) bool {
	return s.registry.IsCourierValid(code)
}

func (s *Service) Carriers() []string {
	return s.registry.Codes()
}

// TrackOne returns the cached or freshly fetched status of one number.
// The only error is carrier.ErrUnknownCarrier; carrier failures come back as
// UNAVAILABLE.
func (s *Service) TrackOne(ctx context.Context, carrierCode, trackingNumber string) (models.TrackingResult, error) {
	tr, err := s.registry.Tracker(carrierCode)
	if err != nil {
		return models.TrackingResult{}, err
	}

	key := cacheKey(carrierCode, trackingNumber)
	if res, ok := s.fromCache(ctx, key); ok {
		metrics.TrackingCache.WithLabelValues("hit").Inc()
		return res, nil
	}
	metrics.TrackingCache.WithLabelValues("miss").Inc()

	// The shared lookup runs detached from any one caller, bounded by
	// lookupTimeout. A caller that gives up gets UNAVAILABLE.
	ch := s.flight.DoChan(key, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.lookupTimeout)
		defer cancel()

		if res, ok := s.fromCache(lctx, key); ok {
			return res, nil
		}

		s.throttle(lctx, carrierCode)

		start := s.now()
		res := tr.Track(lctx, trackingNumber)
		metrics.CarrierLookupDuration.WithLabelValues(carrierCode).Observe(s.now().Sub(start).Seconds())
		metrics.CarrierLookups.WithLabelValues(carrierCode, res.Status.String()).Inc()

		// A lookup cut short by the deadline says nothing about the parcel.
		if lctx.Err() == nil {
			s.toCache(lctx, key, res)
		}
		return res, nil
	})

	select {
	case <-ctx.Done():
		return models.Unavailable(), nil
	case r := <-ch:
		return r.Val.(models.TrackingResult), nil
	}
}

func (s *Service) fromCache(ctx context.Context, key string) (models.TrackingResult, bool) {
	if s.cache == nil {
		return models.TrackingResult{}, false
	}
	b, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("tracking cache get", "key", key, "error", err.Error())
		return models.TrackingResult{}, false
	}
	if !ok {
		return models.TrackingResult{}, false
	}
	var res models.TrackingResult
	if err := json.Unmarshal(b, &res); err != nil {
		return models.TrackingResult{}, false
	}
	return res, true
}

func (s *Service) toCache(ctx context.Context, key string, res models.TrackingResult) {
	if s.cache == nil {
		return
	}
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, b, s.ttl); err != nil {
		slog.Warn("tracking cache set", "key", key, "error", err.Error())
	}
}

func (s *Service) throttle(ctx context.Context, carrierCode string) {
	limit := s.rateLimitPerMinute
	if l, ok := s.carrierLimits[carrierCode]; ok && l > 0 {
		limit = l
	}
	if s.rl == nil || limit <= 0 {
		return
	}
	minuteKey := fmt.Sprintf("rl:carrier:%s:%s", carrierCode, s.now().UTC().Format("200601021504"))
	allowed, n, err := s.rl.Allow(ctx, minuteKey, limit, 70*time.Second)
	if err != nil {
		slog.Warn("carrier rate limit", "carrier", carrierCode, "error", err.Error())
		return
	}
	if !allowed {
		slog.Warn("rate limit exceeded", "carrier", carrierCode, "count", n)
		select {
		case <-ctx.Done():
		case <-time.After(s.throttleDelay):
		}
	}
}

func cacheKey(carrierCode, trackingNumber string) string {
	return fmt.Sprintf("tracking:%s:%s", carrierCode, trackingNumber)
}
