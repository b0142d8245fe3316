package fedex

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BearBump/MailTrack/internal/integrations/carrier"
	"github.com/BearBump/MailTrack/internal/models"
	"github.com/stretchr/testify/require"
)

const deliveredReply = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/">
<SOAP-ENV:Header/>
<SOAP-ENV:Body>
<TrackReply xmlns="http://fedex.com/ws/track/v9">
  <HighestSeverity>SUCCESS</HighestSeverity>
  <CompletedTrackDetails>
    <TrackDetails>
      <Notification><Severity>SUCCESS</Severity><Message>Request was successfully processed.</Message></Notification>
      <Events>
        <Timestamp>2021-05-03T10:05:00-04:00</Timestamp>
        <EventType>DL</EventType>
        <EventDescription>Delivered</EventDescription>
      </Events>
      <Events>
        <Timestamp>2021-05-03T07:12:00-04:00</Timestamp>
        <EventType>OD</EventType>
        <EventDescription>On FedEx vehicle for delivery</EventDescription>
      </Events>
    </TrackDetails>
  </CompletedTrackDetails>
</TrackReply>
</SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

const estimatedReply = `<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/"><SOAP-ENV:Body>
<v9:TrackReply xmlns:v9="http://fedex.com/ws/track/v9">
  <v9:CompletedTrackDetails><v9:TrackDetails>
    <v9:Notification><v9:Severity>SUCCESS</v9:Severity></v9:Notification>
    <v9:EstimatedDeliveryTimestamp>2021-05-06T20:00:00-04:00</v9:EstimatedDeliveryTimestamp>
    <v9:Events><v9:Timestamp>2021-05-03T07:12:00-04:00</v9:Timestamp><v9:EventType>ZZ</v9:EventType><v9:EventDescription>Unusual scan</v9:EventDescription></v9:Events>
  </v9:TrackDetails></v9:CompletedTrackDetails>
</v9:TrackReply>
</SOAP-ENV:Body></SOAP-ENV:Envelope>`

const errorReply = `<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/"><SOAP-ENV:Body>
<TrackReply><CompletedTrackDetails><TrackDetails>
  <Notification><Severity>ERROR</Severity><Message>This tracking number cannot be found.</Message></Notification>
</TrackDetails></CompletedTrackDetails></TrackReply>
</SOAP-ENV:Body></SOAP-ENV:Envelope>`

type trackRequestDoc struct {
	Key      string `xml:"Body>TrackRequest>WebAuthenticationDetail>UserCredential>Key"`
	Password string `xml:"Body>TrackRequest>WebAuthenticationDetail>UserCredential>Password"`
	Account  string `xml:"Body>TrackRequest>ClientDetail>AccountNumber"`
	Meter    string `xml:"Body>TrackRequest>ClientDetail>MeterNumber"`
	Service  string `xml:"Body>TrackRequest>Version>ServiceId"`
	Major    string `xml:"Body>TrackRequest>Version>Major"`
	Type     string `xml:"Body>TrackRequest>SelectionDetails>PackageIdentifier>Type"`
	Value    string `xml:"Body>TrackRequest>SelectionDetails>PackageIdentifier>Value"`
	Options  string `xml:"Body>TrackRequest>ProcessingOptions"`
}

func newServer(t *testing.T, reply string, check func(r *http.Request, body []byte)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if check != nil {
			check(r, b)
		}
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTrack_RequestEnvelope(t *testing.T) {
	var got trackRequestDoc
	srv := newServer(t, deliveredReply, func(r *http.Request, body []byte) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/web-services", r.URL.Path)
		require.Equal(t, "text/xml", r.Header.Get("Content-Type"))
		require.Contains(t, string(body), `xmlns:v9="http://fedex.com/ws/track/v9"`)
		require.NoError(t, xml.Unmarshal(body, &got))
	})

	p := New(srv.URL, Credentials{Key: "k&1", Password: "p<w>", AccountNumber: "510087", MeterNumber: "118"})
	carrier.NewHTTPTracker(p, time.Second).Track(context.Background(), "123456789012")

	require.Equal(t, trackRequestDoc{
		Key: "k&1", Password: "p<w>", Account: "510087", Meter: "118",
		Service: "trck", Major: "9",
		Type: "TRACKING_NUMBER_OR_DOORTAG", Value: "123456789012",
		Options: "INCLUDE_DETAILED_SCANS",
	}, got)
}

func TestTrack_DeliveredUsesEventTimestamp(t *testing.T) {
	srv := newServer(t, deliveredReply, nil)
	res := carrier.NewHTTPTracker(New(srv.URL, Credentials{}), time.Second).Track(context.Background(), "123456789012")

	require.Equal(t, models.StatusDelivered, res.Status)
	require.Equal(t, "Delivered", res.Label)
	require.NotNil(t, res.DeliveryTime)
	require.True(t, time.Date(2021, 5, 3, 14, 5, 0, 0, time.UTC).Equal(*res.DeliveryTime))
}

func TestTrack_EstimatedTimestampPreferredAndUnknownCodeInTransit(t *testing.T) {
	srv := newServer(t, estimatedReply, nil)
	res := carrier.NewHTTPTracker(New(srv.URL, Credentials{}), time.Second).Track(context.Background(), "123456789012")

	require.Equal(t, models.StatusInTransit, res.Status)
	require.Equal(t, "Unusual scan", res.Label)
	require.NotNil(t, res.DeliveryTime)
	require.True(t, time.Date(2021, 5, 7, 0, 0, 0, 0, time.UTC).Equal(*res.DeliveryTime))
}

func TestTrack_ErrorSeverityUnavailable(t *testing.T) {
	srv := newServer(t, errorReply, nil)
	res := carrier.NewHTTPTracker(New(srv.URL, Credentials{}), time.Second).Track(context.Background(), "123456789012")
	require.Equal(t, models.Unavailable(), res)
}

func TestStatusTable(t *testing.T) {
	require.Equal(t, models.StatusReturnedToSender, statuses.Resolve("RS"))
	require.Equal(t, models.StatusException, statuses.Resolve("DE"))
	require.Equal(t, models.StatusLabelCreated, statuses.Resolve("PU"))
	require.Equal(t, models.StatusOutForDelivery, statuses.Resolve("OD"))
	require.Equal(t, models.StatusInTransit, statuses.Resolve("AR"))
}
