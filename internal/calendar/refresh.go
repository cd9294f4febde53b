package calendar

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var ErrNoRefreshToken = errors.New("credential has no refresh token")

// NewOAuthConfig returns the Google OAuth client config used for calendar access.
func NewOAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"https://www.googleapis.com/auth/calendar"},
	}
}

// Refresher exchanges refresh tokens for fresh access tokens.
type Refresher struct {
	oauth *oauth2.Config
}

func NewRefresher(cfg *oauth2.Config) *Refresher {
	return &Refresher{oauth: cfg}
}

// Refresh always performs a token exchange, regardless of the current expiry.
func (r *Refresher) Refresh(ctx context.Context, cred Credential) (Credential, error) {
	if cred.RefreshToken == "" {
		return Credential{}, ErrNoRefreshToken
	}

	tok, err := r.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken}).Token()
	if err != nil {
		return Credential{}, fmt.Errorf("refresh token: %w", err)
	}

	out := Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	if out.RefreshToken == "" {
		out.RefreshToken = cred.RefreshToken
	}
	return out, nil
}
