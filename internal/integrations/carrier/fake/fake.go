package fake

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/BearBump/MailTrack/internal/models"
)

// Tracker is an offline stand-in for a carrier, used when no carrier
// credentials are configured. The status is a stable function of
// (carrier, number) so repeated syncs agree with each other.
type Tracker struct {
	code string
	now  func() time.Time
}

func New(code string) *Tracker { return &Tracker{code: code, now: time.Now} }

var ladder = []models.ShipmentStatus{
	models.StatusLabelCreated,
	models.StatusInTransit,
	models.StatusInTransit,
	models.StatusOutForDelivery,
	models.StatusDelivered,
}

func (f *Tracker) Track(ctx context.Context, trackingNumber string) models.TrackingResult {
	h := fnv.New32a()
	_, _ = h.Write([]byte(f.code))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(trackingNumber))
	v := h.Sum32()

	status := ladder[v%uint32(len(ladder))]
	day := f.now().UTC().Truncate(24 * time.Hour)
	eta := day.Add(time.Duration(v%4) * 24 * time.Hour).Add(21 * time.Hour)

	return models.TrackingResult{
		Status:       status,
		Label:        "fake carrier update",
		DeliveryTime: &eta,
	}
}
