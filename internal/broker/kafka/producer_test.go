package kafka

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/BearBump/MailTrack/internal/broker/messages"
	"github.com/BearBump/MailTrack/internal/models"
	"github.com/BearBump/MailTrack/internal/services/mailsync"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	last []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.last = append([]kafka.Message{}, msgs...)
	return w.err
}

func TestProducer_Publish(t *testing.T) {
	fw := &fakeWriter{}
	p := newProducerWithWriter(fw)

	require.NoError(t, p.Publish(context.Background(), "t", []byte("k"), []byte("v")))
	require.Len(t, fw.last, 1)
	require.Equal(t, "t", fw.last[0].Topic)
	require.Equal(t, []byte("k"), fw.last[0].Key)
	require.Equal(t, []byte("v"), fw.last[0].Value)
}

func TestProducer_PublishJSON(t *testing.T) {
	fw := &fakeWriter{}
	p := newProducerWithWriter(fw)

	require.NoError(t, p.PublishJSON(context.Background(), "sync", "u@example.com", map[string]bool{"force": true}))
	require.Equal(t, []byte("u@example.com"), fw.last[0].Key)
	require.JSONEq(t, `{"force":true}`, string(fw.last[0].Value))
}

func TestShipmentNotifier_PublishesKeyedByEmail(t *testing.T) {
	fw := &fakeWriter{}
	n := NewShipmentNotifier(newProducerWithWriter(fw), "shipment.updated")

	s := &models.Shipment{TrackingNumber: "123456789012", CarrierCode: "fedex", Status: models.StatusDelivered}
	n.ShipmentChanged(context.Background(), "u@example.com", s, mailsync.ChangeUpdated)

	require.Len(t, fw.last, 1)
	require.Equal(t, "shipment.updated", fw.last[0].Topic)
	require.Equal(t, []byte("u@example.com"), fw.last[0].Key)

	var got messages.ShipmentUpdated
	require.NoError(t, json.Unmarshal(fw.last[0].Value, &got))
	require.Equal(t, "updated", got.Change)
	require.Equal(t, "DELIVERED", got.Status)
	require.Equal(t, "123456789012", got.TrackingNumber)
}

func TestNewProducer(t *testing.T) {
	p := NewProducer([]string{"localhost:0"})
	require.NotNil(t, p)
	require.NoError(t, p.Close())
}
