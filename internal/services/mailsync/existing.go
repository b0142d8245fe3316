package mailsync

import (
	"context"
	"log/slog"

	"github.com/BearBump/MailTrack/internal/models"
	"golang.org/x/sync/errgroup"
)

// SyncExisting refreshes every shipment inside the retention window in place
// and returns the ones whose status changed. Frozen shipments are not touched.
func (s *Syncer) SyncExisting(ctx context.Context, shipments []*models.Shipment) []*models.Shipment {
	now := s.now()
	changed := make([]bool, len(shipments))

	var g errgroup.Group
	g.SetLimit(s.cfg.LookupConcurrency)
	for i, sh := range shipments {
		if sh.Frozen(now, s.cfg.Retention) {
			continue
		}
		g.Go(func() error {
			res, err := s.tracker.TrackOne(ctx, sh.CarrierCode, sh.TrackingNumber)
			if err != nil {
				slog.Warn("refresh shipment", "tracking_number", sh.TrackingNumber, "carrier", sh.CarrierCode, "error", err.Error())
				return nil
			}
			changed[i] = res.Status != sh.Status
			sh.Apply(res, now)
			return nil
		})
	}
	_ = g.Wait()

	var out []*models.Shipment
	for i, sh := range shipments {
		if changed[i] {
			out = append(out, sh)
		}
	}
	return out
}
