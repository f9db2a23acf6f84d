package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func newFakeGoogle(t *testing.T, userinfo map[string]string) *Google {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "provider-access-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(userinfo)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	g := NewGoogle("client-id", "client-secret", "http://localhost/callback")
	g.cfg.Endpoint = oauth2.Endpoint{
		AuthURL:  srv.URL + "/auth",
		TokenURL: srv.URL + "/token",
	}
	g.userInfoURL = srv.URL + "/userinfo"
	return g
}

func TestGoogle_Exchange(t *testing.T) {
	g := newFakeGoogle(t, map[string]string{
		"sub":     "google-sub-42",
		"email":   "ann@gmail.com",
		"name":    "Ann",
		"picture": "https://img.example/ann.png",
	})

	profile, err := g.Exchange(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if profile.ID != "google-sub-42" || profile.Email != "ann@gmail.com" || profile.Name != "Ann" {
		t.Errorf("profile = %+v", profile)
	}
}

func TestGoogle_ExchangeMissingSubject(t *testing.T) {
	g := newFakeGoogle(t, map[string]string{"email": "ann@gmail.com"})
	if _, err := g.Exchange(context.Background(), "auth-code"); err == nil {
		t.Error("userinfo without sub accepted")
	}
}

func TestGoogle_Disabled(t *testing.T) {
	g := NewGoogle("", "", "")
	if g.Enabled() {
		t.Error("client without credentials reports enabled")
	}
	if _, err := g.Exchange(context.Background(), "code"); err != ErrNotConfigured {
		t.Errorf("Exchange disabled: want ErrNotConfigured, got %v", err)
	}
}

func TestGoogle_AuthCodeURLCarriesState(t *testing.T) {
	g := NewGoogle("client-id", "client-secret", "http://localhost/callback")
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	u := g.AuthCodeURL(state)
	if !strings.Contains(u, "state="+state) {
		t.Errorf("auth url %q missing state", u)
	}
	if !strings.Contains(u, "client_id=client-id") {
		t.Errorf("auth url %q missing client id", u)
	}
}
