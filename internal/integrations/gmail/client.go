// Package gmail implements mailbox.Mailbox on top of the Gmail v1 API.
package gmail

import (
	"context"
	"net/http"
	"time"

	"github.com/BearBump/MailTrack/internal/mailbox"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	user = "me"

	DefaultRequestsPerSecond = 20
)

type Client struct {
	endpoint string
	httpc    *http.Client
	limiter  *rate.Limiter
}

// New builds a client. endpoint overrides the API base URL and is empty in
// production. The limiter is shared by every account using this client.
func New(endpoint string, requestsPerSecond float64) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = DefaultRequestsPerSecond
	}
	return &Client{
		endpoint: endpoint,
		httpc: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(requestsPerSecond)+1),
	}
}

func (c *Client) service(ctx context.Context, accessToken string) (*gmailv1.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	hc := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, c.httpc), ts)

	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	svc, err := gmailv1.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create gmail service")
	}
	return svc, nil
}

func (c *Client) Search(ctx context.Context, accessToken, query, pageToken string) (mailbox.SearchPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return mailbox.SearchPage{}, errors.Wrap(err, "gmail rate limit")
	}
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return mailbox.SearchPage{}, err
	}

	call := svc.Users.Messages.List(user).Q(query).Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return mailbox.SearchPage{}, mapError(err, "list messages")
	}

	page := mailbox.SearchPage{NextPageToken: resp.NextPageToken}
	for _, m := range resp.Messages {
		page.IDs = append(page.IDs, m.Id)
	}
	return page, nil
}

func (c *Client) Get(ctx context.Context, accessToken, id string) (*mailbox.Message, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "gmail rate limit")
	}
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	msg, err := svc.Users.Messages.Get(user, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, mapError(err, "get message "+id)
	}
	return toMessage(msg), nil
}

func mapError(err error, op string) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized {
		return errors.Wrap(mailbox.ErrAuthExpired, gerr.Message)
	}
	return errors.Wrap(err, op)
}

func toMessage(m *gmailv1.Message) *mailbox.Message {
	out := &mailbox.Message{
		ID:           m.Id,
		InternalDate: time.UnixMilli(m.InternalDate).UTC(),
	}
	if m.Payload != nil {
		for _, h := range m.Payload.Headers {
			out.Headers = append(out.Headers, mailbox.Header{Name: h.Name, Value: h.Value})
		}
		out.Payload = toPart(m.Payload)
	}
	return out
}

func toPart(p *gmailv1.MessagePart) *mailbox.Part {
	part := &mailbox.Part{MimeType: p.MimeType}
	if p.Body != nil {
		part.Data = p.Body.Data
	}
	for _, c := range p.Parts {
		part.Parts = append(part.Parts, toPart(c))
	}
	return part
}
