package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is the dedicated Prometheus registry for both processes.
	Registry = prometheus.NewRegistry()

	// CarrierLookups counts upstream carrier calls by normalized outcome.
	CarrierLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "mailtrack_carrier_lookups_total", Help: "Carrier lookups by carrier and resulting status."},
		[]string{"carrier", "status"},
	)
	CarrierLookupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "mailtrack_carrier_lookup_duration_seconds", Help: "Carrier lookup duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"carrier"},
	)
	// TrackingCache counts cache hits and misses.
	TrackingCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "mailtrack_tracking_cache_total", Help: "Tracking cache lookups by result."},
		[]string{"result"},
	)
	MailboxSyncs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "mailtrack_mailbox_syncs_total", Help: "Mailbox syncs by outcome."},
		[]string{"outcome"},
	)
	MessagesScanned = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "mailtrack_messages_scanned_total", Help: "Mailbox messages scanned for tracking numbers."},
	)
)

var regOnce sync.Once

// Register adds all collectors to Registry. Safe to call more than once.
func Register() {
	regOnce.Do(func() {
		Registry.MustRegister(CarrierLookups)
		Registry.MustRegister(CarrierLookupDuration)
		Registry.MustRegister(TrackingCache)
		Registry.MustRegister(MailboxSyncs)
		Registry.MustRegister(MessagesScanned)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

func Handler() http.Handler {
	Register()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
