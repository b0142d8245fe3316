package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/BearBump/MailTrack/internal/broker/messages"
	"github.com/BearBump/MailTrack/internal/models"
	"github.com/BearBump/MailTrack/internal/services/mailsync"
)

// JSONPublisher is satisfied by *Producer.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, topic, key string, v any) error
}

// ShipmentNotifier publishes shipment changes. Publish failures are logged,
// they never fail a sync.
type ShipmentNotifier struct {
	p     JSONPublisher
	topic string
}

func NewShipmentNotifier(p JSONPublisher, topic string) *ShipmentNotifier {
	return &ShipmentNotifier{p: p, topic: topic}
}

func (n *ShipmentNotifier) ShipmentChanged(ctx context.Context, email string, s *models.Shipment, change mailsync.Change) {
	msg := messages.NewShipmentUpdated(email, string(change), s, time.Now().UTC())
	if err := n.p.PublishJSON(ctx, n.topic, email, msg); err != nil {
		slog.Warn("publish shipment update", "email", email, "tracking_number", s.TrackingNumber, "error", err.Error())
	}
}
