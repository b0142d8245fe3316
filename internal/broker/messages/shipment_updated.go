package messages

import (
	"time"

	"github.com/BearBump/MailTrack/internal/models"
	"github.com/google/uuid"
)

// ShipmentUpdated is published whenever a shipment is created, changes status
// or is removed from an account. Messages are keyed by account email.
type ShipmentUpdated struct {
	EventID    string    `json:"event_id"`
	Email      string    `json:"email"`
	Change     string    `json:"change"`
	OccurredAt time.Time `json:"occurred_at"`

	TrackingNumber string     `json:"tracking_number"`
	CarrierCode    string     `json:"carrier_code"`
	Status         string     `json:"status"`
	Label          string     `json:"label,omitempty"`
	DeliveryTime   *time.Time `json:"delivery_time,omitempty"`
	SenderName     string     `json:"sender_name,omitempty"`
}

func NewShipmentUpdated(email, change string, s *models.Shipment, now time.Time) ShipmentUpdated {
	return ShipmentUpdated{
		EventID:        uuid.NewString(),
		Email:          email,
		Change:         change,
		OccurredAt:     now,
		TrackingNumber: s.TrackingNumber,
		CarrierCode:    s.CarrierCode,
		Status:         s.Status.String(),
		Label:          s.Label,
		DeliveryTime:   s.DeliveryTime,
		SenderName:     s.SenderName,
	}
}
