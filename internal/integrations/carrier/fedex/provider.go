// Package fedex talks to the FedEx Track Service (SOAP, v9).
package fedex

import (
	"bytes"
	"context"
	"encoding/xml"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/BearBump/MailTrack/internal/integrations/carrier"
	"github.com/BearBump/MailTrack/internal/models"
	"github.com/pkg/errors"
)

const (
	Code           = "fedex"
	DefaultBaseURL = "https://ws.fedex.com:443"
)

type Credentials struct {
	Key           string
	Password      string
	AccountNumber string
	MeterNumber   string
}

type Provider struct {
	baseURL string
	creds   Credentials
}

func New(baseURL string, creds Credentials) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Provider{baseURL: strings.TrimRight(baseURL, "/"), creds: creds}
}

func (p *Provider) Code() string               { return Code }
func (p *Provider) Encoding() carrier.Encoding { return carrier.EncodingSOAP }

var envelope = template.Must(template.New("track").Funcs(template.FuncMap{"x": xmlEscape}).Parse(
	`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:v9="http://fedex.com/ws/track/v9">` +
		`<soapenv:Body>` +
		`<TrackRequest xmlns="http://fedex.com/ws/track/v9">` +
		`<WebAuthenticationDetail><UserCredential><Key>{{x .Creds.Key}}</Key><Password>{{x .Creds.Password}}</Password></UserCredential></WebAuthenticationDetail>` +
		`<ClientDetail><AccountNumber>{{x .Creds.AccountNumber}}</AccountNumber><MeterNumber>{{x .Creds.MeterNumber}}</MeterNumber></ClientDetail>` +
		`<Version><ServiceId>trck</ServiceId><Major>9</Major><Intermediate>1</Intermediate><Minor>0</Minor></Version>` +
		`<SelectionDetails><PackageIdentifier><Type>TRACKING_NUMBER_OR_DOORTAG</Type><Value>{{x .Number}}</Value></PackageIdentifier></SelectionDetails>` +
		`<ProcessingOptions>INCLUDE_DETAILED_SCANS</ProcessingOptions>` +
		`</TrackRequest>` +
		`</soapenv:Body>` +
		`</soapenv:Envelope>`))

func xmlEscape(s string) (string, error) {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (p *Provider) requestBody(trackingNumber string) ([]byte, error) {
	var buf bytes.Buffer
	err := envelope.Execute(&buf, struct {
		Creds  Credentials
		Number string
	}{p.creds, trackingNumber})
	if err != nil {
		return nil, errors.Wrap(err, "render fedex envelope")
	}
	return buf.Bytes(), nil
}

func (p *Provider) NewRequest(ctx context.Context, trackingNumber string) (*http.Request, error) {
	body, err := p.requestBody(trackingNumber)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/web-services", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "fedex request")
	}
	req.Header.Set("Content-Type", "text/xml")
	return req, nil
}

type trackReply struct {
	XMLName               xml.Name `xml:"TrackReply"`
	HighestSeverity       string   `xml:"HighestSeverity"`
	CompletedTrackDetails []struct {
		TrackDetails []trackDetail `xml:"TrackDetails"`
	} `xml:"CompletedTrackDetails"`
}

type trackDetail struct {
	Notification struct {
		Severity string `xml:"Severity"`
		Message  string `xml:"Message"`
	} `xml:"Notification"`
	EstimatedDeliveryTimestamp string  `xml:"EstimatedDeliveryTimestamp"`
	Events                     []event `xml:"Events"`
}

type event struct {
	Timestamp        string `xml:"Timestamp"`
	EventType        string `xml:"EventType"`
	EventDescription string `xml:"EventDescription"`
}

func (p *Provider) Parse(decode func(v any) error) (models.TrackingResult, error) {
	var r trackReply
	if err := decode(&r); err != nil {
		return models.TrackingResult{}, err
	}
	if len(r.CompletedTrackDetails) == 0 || len(r.CompletedTrackDetails[0].TrackDetails) == 0 {
		return models.TrackingResult{}, errors.Wrapf(carrier.ErrNoTrackingData, "fedex severity %q", r.HighestSeverity)
	}

	d := r.CompletedTrackDetails[0].TrackDetails[0]
	if d.Notification.Severity == "ERROR" {
		return models.TrackingResult{}, errors.Wrap(carrier.ErrNoTrackingData, d.Notification.Message)
	}
	if len(d.Events) == 0 {
		return models.TrackingResult{}, errors.Wrap(carrier.ErrNoTrackingData, "fedex no events")
	}

	last := d.Events[0]
	res := models.TrackingResult{
		Status: statuses.Resolve(last.EventType),
		Label:  strings.TrimSpace(last.EventDescription),
	}

	ts := d.EstimatedDeliveryTimestamp
	if ts == "" {
		ts = last.Timestamp
	}
	if t, ok := parseTimestamp(ts); ok {
		res.DeliveryTime = &t
	}
	return res, nil
}

var timestampLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
