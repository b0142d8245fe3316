package models

import "time"

// Account owns the shipment collection discovered in one mailbox.
type Account struct {
	ID            uint64      `json:"id"`
	Email         string      `json:"email"`
	AccessToken   string      `json:"-"`
	RefreshToken  string      `json:"-"`
	LastSyncedAt  *time.Time  `json:"last_synced_at,omitempty"`
	NextSyncAt    time.Time   `json:"next_sync_at"`
	SyncFailCount int32       `json:"sync_fail_count"`
	LastError     *string     `json:"last_error,omitempty"`
	Shipments     []*Shipment `json:"shipments"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (a *Account) HasShipment(number string) bool {
	for _, s := range a.Shipments {
		if s.TrackingNumber == number {
			return true
		}
	}
	return false
}

// TrackingNumbers returns the dedup set for the current collection.
func (a *Account) TrackingNumbers() map[string]struct{} {
	out := make(map[string]struct{}, len(a.Shipments))
	for _, s := range a.Shipments {
		out[s.TrackingNumber] = struct{}{}
	}
	return out
}
