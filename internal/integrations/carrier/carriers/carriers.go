// Package carriers builds the carrier registry from configuration.
package carriers

import (
	"log/slog"
	"time"

	"github.com/BearBump/MailTrack/config"
	"github.com/BearBump/MailTrack/internal/integrations/carrier"
	"github.com/BearBump/MailTrack/internal/integrations/carrier/fake"
	"github.com/BearBump/MailTrack/internal/integrations/carrier/fedex"
	"github.com/BearBump/MailTrack/internal/integrations/carrier/ups"
	"github.com/BearBump/MailTrack/internal/integrations/carrier/usps"
)

const ModeFake = "fake"

// NewRegistry registers fedex, ups and usps. In fake mode every carrier is
// served by the offline tracker.
func NewRegistry(cfg config.CarriersConfig) *carrier.Registry {
	reg := carrier.NewRegistry()
	if cfg.Mode == ModeFake {
		slog.Info("carriers running in fake mode")
		return reg.
			Register(fedex.Code, fake.New(fedex.Code)).
			Register(ups.Code, fake.New(ups.Code)).
			Register(usps.Code, fake.New(usps.Code))
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	return reg.
		Register(fedex.Code, carrier.NewHTTPTracker(fedex.New(cfg.FedEx.BaseURL, fedex.Credentials{
			Key:           cfg.FedEx.Key,
			Password:      cfg.FedEx.Password,
			AccountNumber: cfg.FedEx.AccountNumber,
			MeterNumber:   cfg.FedEx.MeterNumber,
		}), timeout)).
		Register(ups.Code, carrier.NewHTTPTracker(ups.New(cfg.UPS.BaseURL, cfg.UPS.AccessLicenseNumber), timeout)).
		Register(usps.Code, carrier.NewHTTPTracker(usps.New(cfg.USPS.BaseURL, cfg.USPS.UserID), timeout))
}

// RateLimits converts the configured per-carrier limits.
func RateLimits(cfg config.CarriersConfig) map[string]int64 {
	out := make(map[string]int64, len(cfg.RateLimits))
	for code, n := range cfg.RateLimits {
		out[code] = int64(n)
	}
	return out
}
