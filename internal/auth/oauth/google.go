// Package oauth implements the Google handshake for the login boundary.
// It produces an opaque provider profile; account resolution and token
// issuance stay in the auth service.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"user-auth-service/internal/auth/service"
)

const defaultUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// ErrNotConfigured is returned when Google login is attempted without client
// credentials configured.
var ErrNotConfigured = errors.New("google oauth is not configured")

// Google wraps the oauth2 authorization-code flow against Google and the
// userinfo fetch that follows it.
type Google struct {
	cfg         *oauth2.Config
	userInfoURL string
}

// NewGoogle returns a Google client for the given credentials. Pass empty
// credentials to get a disabled client that fails with ErrNotConfigured.
func NewGoogle(clientID, clientSecret, redirectURL string) *Google {
	return &Google{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: defaultUserInfoURL,
	}
}

// Enabled reports whether client credentials are configured.
func (g *Google) Enabled() bool {
	return g.cfg.ClientID != "" && g.cfg.ClientSecret != ""
}

// AuthCodeURL returns the Google consent-page URL carrying state.
func (g *Google) AuthCodeURL(state string) string {
	return g.cfg.AuthCodeURL(state)
}

// Exchange trades the authorization code for provider tokens and fetches the
// userinfo profile. The returned profile always has a non-empty ID.
func (g *Google) Exchange(ctx context.Context, code string) (service.GoogleProfile, error) {
	if !g.Enabled() {
		return service.GoogleProfile{}, ErrNotConfigured
	}
	token, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return service.GoogleProfile{}, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return service.GoogleProfile{}, err
	}
	resp, err := g.cfg.Client(ctx, token).Do(req)
	if err != nil {
		return service.GoogleProfile{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return service.GoogleProfile{}, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}

	var info struct {
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return service.GoogleProfile{}, fmt.Errorf("decode userinfo: %w", err)
	}
	if info.Sub == "" {
		return service.GoogleProfile{}, errors.New("userinfo response missing subject")
	}
	return service.GoogleProfile{
		ID:        info.Sub,
		Email:     info.Email,
		Name:      info.Name,
		AvatarURL: info.Picture,
	}, nil
}

// NewState returns a random URL-safe state value for the consent redirect.
func NewState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
