package gmail

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Refresher exchanges a refresh token for a new access token.
type Refresher struct {
	cfg   *oauth2.Config
	httpc *http.Client
}

func NewRefresher(clientID, clientSecret, tokenURL string) *Refresher {
	endpoint := google.Endpoint
	if tokenURL != "" {
		endpoint.TokenURL = tokenURL
		endpoint.AuthStyle = oauth2.AuthStyleInParams
	}
	return &Refresher{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoint,
		},
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", errors.New("refresh token is empty")
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpc)
	tok, err := r.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return "", errors.Wrap(err, "refresh access token")
	}
	return tok.AccessToken, nil
}
