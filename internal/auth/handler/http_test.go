package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"user-auth-service/internal/auth/service"
	"user-auth-service/internal/server/middleware"
	userservice "user-auth-service/internal/user/service"
)

type stubEngine struct {
	signupErr  error
	signinErr  error
	refreshErr error
	googleErr  error
	lastEmail  string
}

func (e *stubEngine) pair() *service.TokenPair {
	return &service.TokenPair{AccessToken: "access", RefreshToken: "refresh"}
}

func (e *stubEngine) Signup(ctx context.Context, name, email, password string) (*service.TokenPair, error) {
	e.lastEmail = email
	if e.signupErr != nil {
		return nil, e.signupErr
	}
	return e.pair(), nil
}

func (e *stubEngine) Signin(ctx context.Context, email, password string) (*service.TokenPair, error) {
	if e.signinErr != nil {
		return nil, e.signinErr
	}
	return e.pair(), nil
}

func (e *stubEngine) GoogleLogin(ctx context.Context, profile service.GoogleProfile) (*service.TokenPair, error) {
	if e.googleErr != nil {
		return nil, e.googleErr
	}
	return e.pair(), nil
}

func (e *stubEngine) Refresh(ctx context.Context, refreshToken string) (*service.TokenPair, error) {
	if e.refreshErr != nil {
		return nil, e.refreshErr
	}
	return e.pair(), nil
}

type stubGoogle struct {
	enabled bool
	profile service.GoogleProfile
}

func (g *stubGoogle) Enabled() bool { return g.enabled }

func (g *stubGoogle) AuthCodeURL(state string) string {
	return "https://example.test/auth?state=" + state
}
func (g *stubGoogle) Exchange(ctx context.Context, code string) (service.GoogleProfile, error) {
	return g.profile, nil
}

func newTestMux(engine Engine) *http.ServeMux {
	mux := http.NewServeMux()
	NewAuthHandler(engine, &stubGoogle{enabled: true, profile: service.GoogleProfile{ID: "g-1"}}, nil).Register(mux)
	return mux
}

func postJSON(t *testing.T, mux *http.ServeMux, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestSignupHandler(t *testing.T) {
	mux := newTestMux(&stubEngine{})

	rec := postJSON(t, mux, "/auth/signup", `{"name":"Ann","email":"ann@x.com","password":"password1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, http.StatusCreated, rec.Body)
	}
	var pair service.TokenPair
	if err := json.Unmarshal(rec.Body.Bytes(), &pair); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Errorf("response pair incomplete: %+v", pair)
	}
}

func TestSignupHandler_Validation(t *testing.T) {
	mux := newTestMux(&stubEngine{})

	cases := []struct {
		name string
		body string
	}{
		{"missing fields", `{"email":"ann@x.com"}`},
		{"bad email", `{"name":"Ann","email":"not-an-email","password":"password1"}`},
		{"bad json", `{`},
	}
	for _, tc := range cases {
		if rec := postJSON(t, mux, "/auth/signup", tc.body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tc.name, rec.Code)
		}
	}
}

func TestSignupHandler_Conflict(t *testing.T) {
	mux := newTestMux(&stubEngine{signupErr: userservice.ErrEmailAlreadyRegistered})
	rec := postJSON(t, mux, "/auth/signup", `{"name":"Ann","email":"ann@x.com","password":"password1"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestSigninHandler_InvalidCredentials(t *testing.T) {
	mux := newTestMux(&stubEngine{signinErr: service.ErrInvalidCredentials})
	rec := postJSON(t, mux, "/auth/signin", `{"email":"ann@x.com","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRefreshHandler(t *testing.T) {
	mux := newTestMux(&stubEngine{})
	rec := postJSON(t, mux, "/auth/refresh-token", `{"refresh_token":"some-token"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = postJSON(t, mux, "/auth/refresh-token", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing token: status = %d, want 400", rec.Code)
	}

	mux = newTestMux(&stubEngine{refreshErr: service.ErrInvalidRefreshToken})
	rec = postJSON(t, mux, "/auth/refresh-token", `{"refresh_token":"rotated-away"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("invalid token: status = %d, want 401", rec.Code)
	}
}

func TestRefreshHandler_StoreFailure(t *testing.T) {
	mux := newTestMux(&stubEngine{refreshErr: context.DeadlineExceeded})
	rec := postJSON(t, mux, "/auth/refresh-token", `{"refresh_token":"t"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestGoogleStart_SetsStateCookie(t *testing.T) {
	mux := newTestMux(&stubEngine{})
	req := httptest.NewRequest(http.MethodGet, "/auth/google", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	cookies := rec.Result().Cookies()
	var state string
	for _, c := range cookies {
		if c.Name == stateCookie {
			state = c.Value
		}
	}
	if state == "" {
		t.Fatal("state cookie not set")
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "state="+state) {
		t.Errorf("redirect %q does not carry the cookie state", loc)
	}
}

func TestGoogleCallback_StateMismatch(t *testing.T) {
	mux := newTestMux(&stubEngine{})
	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=c&state=forged", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "original"})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGoogleCallback_Success(t *testing.T) {
	mux := newTestMux(&stubEngine{})
	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=c&state=s1", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "s1"})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	var pair service.TokenPair
	if err := json.Unmarshal(rec.Body.Bytes(), &pair); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if pair.AccessToken == "" {
		t.Error("response missing access token")
	}
}

func TestGoogleCallback_InvalidProfileRejected(t *testing.T) {
	// Directory-level input rejections surface as 400, not as a store failure.
	mux := newTestMux(&stubEngine{googleErr: fmt.Errorf("%w: invalid email format", userservice.ErrInvalidInput)})
	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=c&state=s1", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "s1"})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMeHandler(t *testing.T) {
	h := NewAuthHandler(&stubEngine{}, &stubGoogle{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	h.Me(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("without principal: status = %d, want 401", rec.Code)
	}

	p := &service.Principal{UserID: "u1", Email: "ann@x.com", Role: "user", SessionID: "s1"}
	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(middleware.WithPrincipal(req.Context(), p))
	rec = httptest.NewRecorder()
	h.Me(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("with principal: status = %d, want 200", rec.Code)
	}
	var resp meResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UserID != "u1" || resp.Email != "ann@x.com" {
		t.Errorf("me = %+v", resp)
	}
}
