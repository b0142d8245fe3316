package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/BearBump/MailTrack/internal/models"
	"github.com/pkg/errors"
)

const (
	DefaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

type HTTPTracker struct {
	p     Provider
	httpc *http.Client
}

func NewHTTPTracker(p Provider, timeout time.Duration) *HTTPTracker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPTracker{
		p: p,
		httpc: &http.Client{
			Timeout: timeout,
		},
	}
}

func NewHTTPTrackerWithClient(p Provider, httpc *http.Client) *HTTPTracker {
	return &HTTPTracker{p: p, httpc: httpc}
}

func (t *HTTPTracker) Code() string { return t.p.Code() }

func (t *HTTPTracker) Track(ctx context.Context, trackingNumber string) models.TrackingResult {
	res, err := t.track(ctx, trackingNumber)
	if err != nil {
		slog.Warn("carrier lookup unavailable",
			"carrier", t.p.Code(),
			"tracking_number", trackingNumber,
			"error", err.Error(),
		)
		return models.Unavailable()
	}
	return res
}

func (t *HTTPTracker) track(ctx context.Context, trackingNumber string) (models.TrackingResult, error) {
	req, err := t.p.NewRequest(ctx, trackingNumber)
	if err != nil {
		return models.TrackingResult{}, errors.Wrap(err, "new request")
	}

	resp, err := t.httpc.Do(req)
	if err != nil {
		return models.TrackingResult{}, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return models.TrackingResult{}, fmt.Errorf("%s http %d", t.p.Code(), resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return models.TrackingResult{}, errors.Wrap(err, "read body")
	}

	decode, err := decoderFor(t.p.Encoding(), body)
	if err != nil {
		return models.TrackingResult{}, err
	}
	return t.p.Parse(decode)
}

type soapEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Inner []byte `xml:",innerxml"`
	} `xml:"Body"`
}

func decoderFor(enc Encoding, body []byte) (func(v any) error, error) {
	switch enc {
	case EncodingJSON:
		return func(v any) error {
			return errors.Wrap(json.Unmarshal(body, v), "decode json")
		}, nil
	case EncodingXML:
		return func(v any) error {
			return errors.Wrap(xml.Unmarshal(body, v), "decode xml")
		}, nil
	case EncodingSOAP:
		var env soapEnvelope
		if err := xml.Unmarshal(body, &env); err != nil {
			return nil, errors.Wrap(err, "decode soap envelope")
		}
		inner := bytes.TrimSpace(env.Body.Inner)
		if len(inner) == 0 {
			return nil, errors.New("empty soap body")
		}
		return func(v any) error {
			return errors.Wrap(xml.Unmarshal(inner, v), "decode soap body")
		}, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %d", enc)
	}
}
