package messages

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/BearBump/MailTrack/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewShipmentUpdated(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := &models.Shipment{TrackingNumber: "1Z999AA10123456784", CarrierCode: "ups", Status: models.StatusDeliveryAttempted, Label: "Attempted"}

	m := NewShipmentUpdated("u@example.com", "updated", s, now)
	_, err := uuid.Parse(m.EventID)
	require.NoError(t, err)

	b, err := json.Marshal(m)
	require.NoError(t, err)
	require.Contains(t, string(b), `"status":"DELIVERY_ATTEMPTED"`)
	require.NotContains(t, string(b), "delivery_time")
}

func TestNewSyncRequested_UniqueIDs(t *testing.T) {
	a := NewSyncRequested("u@example.com", true, time.Now())
	b := NewSyncRequested("u@example.com", true, time.Now())
	require.NotEqual(t, a.EventID, b.EventID)
	require.True(t, a.Force)
}
