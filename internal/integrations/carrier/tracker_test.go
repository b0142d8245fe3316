package carrier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BearBump/MailTrack/internal/models"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	url string
	enc Encoding
}

type stubDoc struct {
	Code  string `json:"code" xml:"Code"`
	Label string `json:"label" xml:"Label"`
}

func (p *stubProvider) Code() string       { return "stub" }
func (p *stubProvider) Encoding() Encoding { return p.enc }

func (p *stubProvider) NewRequest(ctx context.Context, n string) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, http.MethodGet, p.url+"/"+n, nil)
}

func (p *stubProvider) Parse(decode func(v any) error) (models.TrackingResult, error) {
	var d stubDoc
	if err := decode(&d); err != nil {
		return models.TrackingResult{}, err
	}
	if d.Code == "" {
		return models.TrackingResult{}, ErrNoTrackingData
	}
	return models.TrackingResult{Status: models.ParseStatus(d.Code), Label: d.Label}, nil
}

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPTracker_JSON(t *testing.T) {
	srv := serve(t, 200, `{"code":"DELIVERED","label":"Left at door"}`)
	tr := NewHTTPTracker(&stubProvider{url: srv.URL, enc: EncodingJSON}, time.Second)

	res := tr.Track(context.Background(), "N1")
	require.Equal(t, models.StatusDelivered, res.Status)
	require.Equal(t, "Left at door", res.Label)
}

func TestHTTPTracker_XML(t *testing.T) {
	srv := serve(t, 200, `<Doc><Code>IN_TRANSIT</Code><Label>Departed</Label></Doc>`)
	tr := NewHTTPTracker(&stubProvider{url: srv.URL, enc: EncodingXML}, time.Second)

	res := tr.Track(context.Background(), "N1")
	require.Equal(t, models.StatusInTransit, res.Status)
}

func TestHTTPTracker_SOAPUnwrapsBody(t *testing.T) {
	srv := serve(t, 200, `<?xml version="1.0"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
  <soapenv:Header/>
  <soapenv:Body><Doc><Code>OUT_FOR_DELIVERY</Code><Label>On vehicle</Label></Doc></soapenv:Body>
</soapenv:Envelope>`)
	tr := NewHTTPTracker(&stubProvider{url: srv.URL, enc: EncodingSOAP}, time.Second)

	res := tr.Track(context.Background(), "N1")
	require.Equal(t, models.StatusOutForDelivery, res.Status)
	require.Equal(t, "On vehicle", res.Label)
}

func TestHTTPTracker_FailuresAreUnavailable(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		enc    Encoding
	}{
		{"non 2xx", 500, `{"code":"DELIVERED"}`, EncodingJSON},
		{"malformed json", 200, `{"code":`, EncodingJSON},
		{"malformed xml", 200, `<Doc><Code>`, EncodingXML},
		{"empty soap body", 200, `<Envelope><Body></Body></Envelope>`, EncodingSOAP},
		{"no data", 200, `{}`, EncodingJSON},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := serve(t, tc.status, tc.body)
			tr := NewHTTPTracker(&stubProvider{url: srv.URL, enc: tc.enc}, time.Second)
			require.Equal(t, models.Unavailable(), tr.Track(context.Background(), "N1"))
		})
	}
}

func TestHTTPTracker_TimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	tr := NewHTTPTracker(&stubProvider{url: srv.URL, enc: EncodingJSON}, 20*time.Millisecond)
	require.Equal(t, models.StatusUnavailable, tr.Track(context.Background(), "N1").Status)
}

func TestHTTPTracker_Code(t *testing.T) {
	tr := NewHTTPTrackerWithClient(&stubProvider{}, http.DefaultClient)
	require.Equal(t, "stub", tr.Code())
	require.Equal(t, "soap", EncodingSOAP.String())
}
