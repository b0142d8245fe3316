package carrier

import (
	"context"
	"net/http"

	"github.com/BearBump/MailTrack/internal/models"
	"github.com/pkg/errors"
)

// Encoding tells the transport how to decode a carrier response body.
type Encoding int

const (
	EncodingJSON Encoding = iota
	EncodingXML
	// EncodingSOAP is XML wrapped in a SOAP Envelope/Body.
	EncodingSOAP
)

func (e Encoding) String() string {
	switch e {
	case EncodingJSON:
		return "json"
	case EncodingXML:
		return "xml"
	case EncodingSOAP:
		return "soap"
	default:
		return "unknown"
	}
}

// ErrNoTrackingData is returned by Parse when the carrier answered but has
// nothing usable for the number.
var ErrNoTrackingData = errors.New("no tracking data")

// Provider is one carrier's wire contract. Implementations build the request
// and parse the decoded document; HTTP and decoding live in HTTPTracker.
type Provider interface {
	Code() string
	NewRequest(ctx context.Context, trackingNumber string) (*http.Request, error)
	Encoding() Encoding
	Parse(decode func(v any) error) (models.TrackingResult, error)
}

// Tracker resolves a tracking number to a normalized result. Track never
// fails: anything that goes wrong is reported as UNAVAILABLE.
type Tracker interface {
	Track(ctx context.Context, trackingNumber string) models.TrackingResult
}
