package models

import "time"

// TrackingResult is the normalized answer of one carrier lookup.
// DeliveryTime is an estimate unless Status is DELIVERED.
type TrackingResult struct {
	Status       ShipmentStatus `json:"status"`
	Label        string         `json:"label,omitempty"`
	DeliveryTime *time.Time     `json:"delivery_time,omitempty"`
}

// Unavailable is the result used for every failed or empty lookup.
func Unavailable() TrackingResult {
	return TrackingResult{Status: StatusUnavailable}
}

type Shipment struct {
	TrackingNumber    string         `json:"tracking_number"`
	CarrierCode       string         `json:"carrier_code"`
	Status            ShipmentStatus `json:"status"`
	Label             string         `json:"label,omitempty"`
	DeliveryTime      *time.Time     `json:"delivery_time,omitempty"`
	SourceMessageID   string         `json:"source_message_id,omitempty"`
	SourceMessageDate time.Time      `json:"source_message_date"`
	SenderName        string         `json:"sender_name"`
	SenderDomain      string         `json:"sender_domain,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Apply copies a lookup result onto the shipment.
func (s *Shipment) Apply(res TrackingResult, now time.Time) {
	s.Status = res.Status
	s.Label = res.Label
	s.DeliveryTime = res.DeliveryTime
	s.UpdatedAt = now
}

// Frozen reports whether the source message is at or past the retention window.
func (s *Shipment) Frozen(now time.Time, retention time.Duration) bool {
	return now.Sub(s.SourceMessageDate) >= retention
}

type ShipmentCreateInput struct {
	TrackingNumber string `json:"tracking_number"`
	CarrierCode    string `json:"carrier_code"`
	SenderName     string `json:"sender_name"`
	SenderDomain   string `json:"sender_domain,omitempty"`
}
