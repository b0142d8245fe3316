// Package mailbox holds the provider-neutral message model and the rules for
// turning a message into searchable text.
package mailbox

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrAuthExpired is returned by a Mailbox when the access token was rejected.
var ErrAuthExpired = errors.New("mailbox access token expired")

type Header struct {
	Name  string
	Value string
}

// Part is one node of a MIME tree. Data is base64url encoded.
type Part struct {
	MimeType string
	Data     string
	Parts    []*Part
}

type Message struct {
	ID           string
	InternalDate time.Time
	Headers      []Header
	Payload      *Part
}

func (m *Message) Header(name string) string {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

type SearchPage struct {
	IDs           []string
	NextPageToken string
}

// Mailbox is a read-only view of a user's messages.
type Mailbox interface {
	Search(ctx context.Context, accessToken, query, pageToken string) (SearchPage, error)
	Get(ctx context.Context, accessToken, id string) (*Message, error)
}
