// Package ups talks to the UPS Tracking API (JSON).
package ups

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BearBump/MailTrack/internal/integrations/carrier"
	"github.com/BearBump/MailTrack/internal/models"
	"github.com/pkg/errors"
)

const (
	Code           = "ups"
	DefaultBaseURL = "https://onlinetools.ups.com"
)

type Provider struct {
	baseURL             string
	accessLicenseNumber string
	now                 func() time.Time
}

func New(baseURL, accessLicenseNumber string) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Provider{
		baseURL:             strings.TrimRight(baseURL, "/"),
		accessLicenseNumber: accessLicenseNumber,
		now:                 time.Now,
	}
}

func (p *Provider) Code() string               { return Code }
func (p *Provider) Encoding() carrier.Encoding { return carrier.EncodingJSON }

func (p *Provider) NewRequest(ctx context.Context, trackingNumber string) (*http.Request, error) {
	u := p.baseURL + "/track/v1/details/" + url.PathEscape(trackingNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "ups request")
	}
	req.Header.Set("AccessLicenseNumber", p.accessLicenseNumber)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type trackResponse struct {
	Errors   []apiError `json:"errors"`
	Response struct {
		Errors []apiError `json:"errors"`
	} `json:"response"`
	TrackResponse struct {
		Shipment []shipment `json:"shipment"`
	} `json:"trackResponse"`
}

type shipment struct {
	Warnings []apiError `json:"warnings"`
	Package  []pkg      `json:"package"`
}

type pkg struct {
	TrackingNumber string     `json:"trackingNumber"`
	Activity       []activity `json:"activity"`
	DeliveryDate   []struct {
		Type string `json:"type"`
		Date string `json:"date"`
	} `json:"deliveryDate"`
	DeliveryTime *struct {
		Type      string `json:"type"`
		StartTime string `json:"startTime"`
		EndTime   string `json:"endTime"`
	} `json:"deliveryTime"`
}

type activity struct {
	Status struct {
		Type        string `json:"type"`
		Description string `json:"description"`
		Code        string `json:"code"`
	} `json:"status"`
	Date string `json:"date"`
	Time string `json:"time"`
}

func (p *Provider) Parse(decode func(v any) error) (models.TrackingResult, error) {
	var r trackResponse
	if err := decode(&r); err != nil {
		return models.TrackingResult{}, err
	}

	errs := append(r.Errors, r.Response.Errors...)
	if len(errs) > 0 {
		return models.TrackingResult{}, errors.Wrapf(carrier.ErrNoTrackingData, "ups error %s: %s", errs[0].Code, errs[0].Message)
	}
	if len(r.TrackResponse.Shipment) == 0 {
		return models.TrackingResult{}, errors.Wrap(carrier.ErrNoTrackingData, "ups no shipment")
	}
	sh := r.TrackResponse.Shipment[0]
	if len(sh.Warnings) > 0 {
		return models.TrackingResult{}, errors.Wrapf(carrier.ErrNoTrackingData, "ups warning %s: %s", sh.Warnings[0].Code, sh.Warnings[0].Message)
	}
	if len(sh.Package) == 0 || len(sh.Package[0].Activity) == 0 {
		return models.TrackingResult{}, errors.Wrap(carrier.ErrNoTrackingData, "ups no package activity")
	}

	pk := sh.Package[0]
	last := pk.Activity[0]
	label := strings.TrimSpace(last.Status.Description)

	res := models.TrackingResult{
		Status: models.ReclassifyAttempt(statuses.Resolve(last.Status.Type), label),
		Label:  label,
	}

	var date, endTime string
	if len(pk.DeliveryDate) > 0 {
		date = pk.DeliveryDate[0].Date
	}
	if pk.DeliveryTime != nil {
		endTime = pk.DeliveryTime.EndTime
	}
	if t, ok := deliveryTime(date, endTime, p.now()); ok {
		res.DeliveryTime = &t
	}
	return res, nil
}

// deliveryTime composes yyyyMMdd and Hmmss parts. A lone time is placed on
// today's date, a lone date at midnight.
func deliveryTime(date, clock string, now time.Time) (time.Time, bool) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" && clock == "" {
		return time.Time{}, false
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if date != "" {
		d, err := time.Parse("20060102", date)
		if err != nil {
			return time.Time{}, false
		}
		day = d
	}
	if clock == "" {
		return day, true
	}

	if len(clock) < 6 {
		clock = strings.Repeat("0", 6-len(clock)) + clock
	}
	c, err := time.Parse("150405", clock)
	if err != nil {
		return time.Time{}, false
	}
	return day.Add(time.Duration(c.Hour())*time.Hour +
		time.Duration(c.Minute())*time.Minute +
		time.Duration(c.Second())*time.Second), true
}
