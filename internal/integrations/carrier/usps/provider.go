// Package usps talks to the USPS Web Tools TrackV2 API. The request document
// travels as an XML fragment in the query string.
package usps

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BearBump/MailTrack/internal/integrations/carrier"
	"github.com/BearBump/MailTrack/internal/models"
	"github.com/pkg/errors"
)

const (
	Code           = "usps"
	DefaultBaseURL = "http://production.shippingapis.com"

	// errNotYetShipped is returned for numbers the carrier has issued but not scanned.
	errNotYetShipped = "-2147219283"

	// Date-only estimates are reported as 9 PM on that day.
	expectedDeliveryHour = 21
)

type Provider struct {
	baseURL string
	userID  string
}

func New(baseURL, userID string) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Provider{baseURL: strings.TrimRight(baseURL, "/"), userID: userID}
}

func (p *Provider) Code() string               { return Code }
func (p *Provider) Encoding() carrier.Encoding { return carrier.EncodingXML }

type trackFieldRequest struct {
	XMLName  xml.Name `xml:"TrackFieldRequest"`
	UserID   string   `xml:"USERID,attr"`
	Revision string   `xml:"Revision"`
	ClientIP string   `xml:"ClientIp"`
	SourceID string   `xml:"SourceId"`
	TrackID  struct {
		ID string `xml:"ID,attr"`
	} `xml:"TrackID"`
}

func (p *Provider) requestXML(trackingNumber string) (string, error) {
	r := trackFieldRequest{UserID: p.userID, Revision: "1", ClientIP: "127.0.0.1", SourceID: "1"}
	r.TrackID.ID = trackingNumber
	b, err := xml.Marshal(r)
	if err != nil {
		return "", errors.Wrap(err, "marshal usps request")
	}
	return string(b), nil
}

func (p *Provider) NewRequest(ctx context.Context, trackingNumber string) (*http.Request, error) {
	doc, err := p.requestXML(trackingNumber)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("API", "TrackV2")
	q.Set("XML", doc)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/ShippingAPI.dll?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "usps request")
	}
	return req, nil
}

type apiError struct {
	Number      string `xml:"Number"`
	Description string `xml:"Description"`
}

// document covers both <TrackResponse> and a bare <Error> root.
type document struct {
	XMLName   xml.Name
	Number    string     `xml:"Number"`
	TrackInfo *trackInfo `xml:"TrackInfo"`
}

type trackInfo struct {
	ID                   string    `xml:"ID,attr"`
	Error                *apiError `xml:"Error"`
	ExpectedDeliveryDate string    `xml:"ExpectedDeliveryDate"`
	TrackSummary         *event    `xml:"TrackSummary"`
	TrackDetail          []event   `xml:"TrackDetail"`
}

type event struct {
	EventTime string `xml:"EventTime"`
	EventDate string `xml:"EventDate"`
	Event     string `xml:"Event"`
	EventCode string `xml:"EventCode"`
}

func (p *Provider) Parse(decode func(v any) error) (models.TrackingResult, error) {
	var doc document
	if err := decode(&doc); err != nil {
		return models.TrackingResult{}, err
	}
	if doc.XMLName.Local == "Error" {
		return models.TrackingResult{}, errors.Wrapf(carrier.ErrNoTrackingData, "usps error %s", doc.Number)
	}

	info := doc.TrackInfo
	if info == nil {
		return models.TrackingResult{}, errors.Wrap(carrier.ErrNoTrackingData, "usps no track info")
	}
	if info.Error != nil {
		if strings.TrimSpace(info.Error.Number) == errNotYetShipped {
			return models.TrackingResult{Status: models.StatusLabelCreated}, nil
		}
		return models.TrackingResult{}, errors.Wrapf(carrier.ErrNoTrackingData, "usps error %s: %s", info.Error.Number, info.Error.Description)
	}

	last := info.TrackSummary
	if last == nil && len(info.TrackDetail) > 0 {
		last = &info.TrackDetail[0]
	}
	if last == nil {
		return models.TrackingResult{}, errors.Wrap(carrier.ErrNoTrackingData, "usps no events")
	}

	res := models.TrackingResult{
		Status: statuses.Resolve(last.EventCode),
		Label:  strings.TrimSpace(last.Event),
	}

	if res.Status == models.StatusDelivered {
		if t, ok := parseEventTime(last.EventDate, last.EventTime); ok {
			res.DeliveryTime = &t
		}
	} else if t, ok := parseDate(info.ExpectedDeliveryDate); ok {
		t = t.Add(expectedDeliveryHour * time.Hour)
		res.DeliveryTime = &t
	}
	return res, nil
}

// USPS writes "May 3, 2021" and "10:05 am".
func parseEventTime(date, clock string) (time.Time, bool) {
	d, ok := parseDate(date)
	if !ok {
		return time.Time{}, false
	}
	clock = strings.ToUpper(strings.TrimSpace(clock))
	if clock == "" {
		return d, true
	}
	c, err := time.Parse("3:04 PM", clock)
	if err != nil {
		return d, true
	}
	return d.Add(time.Duration(c.Hour())*time.Hour + time.Duration(c.Minute())*time.Minute), true
}

var dateLayouts = []string{"January 2, 2006", "Jan 2, 2006", "2006-01-02"}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
