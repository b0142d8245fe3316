package tracking

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/BearBump/MailTrack/internal/cache/rediscache"
	"github.com/BearBump/MailTrack/internal/integrations/carrier"
	"github.com/BearBump/MailTrack/internal/models"
	"github.com/stretchr/testify/require"
)

func TestTrackOne_SharedRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	tr := &countingTracker{res: models.TrackingResult{Status: models.StatusOutForDelivery}}
	reg := carrier.NewRegistry().Register("usps", tr)

	// Two services sharing one redis behave like two processes.
	a := New(reg, rediscache.New(mr.Addr()), time.Hour)
	b := New(reg, rediscache.New(mr.Addr()), time.Hour).WithRateLimit(rediscache.NewRateLimiter(mr.Addr()), 100)

	ctx := context.Background()
	_, err := a.TrackOne(ctx, "usps", "9400111899223334445554")
	require.NoError(t, err)
	res, err := b.TrackOne(ctx, "usps", "9400111899223334445554")
	require.NoError(t, err)

	require.Equal(t, models.StatusOutForDelivery, res.Status)
	require.Equal(t, int64(1), tr.calls.Load())
	require.True(t, mr.Exists("mailtrack:tracking:usps:9400111899223334445554"))
}

func TestCacheKey(t *testing.T) {
	require.Equal(t, "tracking:fedex:123", cacheKey("fedex", "123"))
}
