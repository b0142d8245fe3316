package messages

import (
	"time"

	"github.com/google/uuid"
)

// SyncRequested asks a worker to sync one account now.
type SyncRequested struct {
	EventID     string    `json:"event_id"`
	Email       string    `json:"email"`
	Force       bool      `json:"force"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewSyncRequested(email string, force bool, now time.Time) SyncRequested {
	return SyncRequested{
		EventID:     uuid.NewString(),
		Email:       email,
		Force:       force,
		RequestedAt: now,
	}
}
