// Package handler is the thin HTTP boundary over the auth service: body
// validation, error-to-status mapping, and the Google redirect plumbing.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"user-auth-service/internal/auth/oauth"
	"user-auth-service/internal/auth/service"
	"user-auth-service/internal/telemetry"
	userservice "user-auth-service/internal/user/service"
)

const requestTimeout = 5 * time.Second

// Engine is the auth surface consumed by the HTTP boundary.
type Engine interface {
	Signup(ctx context.Context, name, email, password string) (*service.TokenPair, error)
	Signin(ctx context.Context, email, password string) (*service.TokenPair, error)
	GoogleLogin(ctx context.Context, profile service.GoogleProfile) (*service.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*service.TokenPair, error)
}

// GoogleFlow is the provider handshake consumed by the Google endpoints.
type GoogleFlow interface {
	Enabled() bool
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (service.GoogleProfile, error)
}

// AuthHandler serves /auth/* endpoints.
type AuthHandler struct {
	engine   Engine
	google   GoogleFlow
	events   telemetry.EventEmitter
	attempts metric.Int64Counter
}

// NewAuthHandler returns an AuthHandler over the given engine and Google flow.
// events may be nil; attempts are then only counted, not logged.
func NewAuthHandler(engine Engine, google GoogleFlow, events telemetry.EventEmitter) *AuthHandler {
	if events == nil {
		events = telemetry.NoopEmitter{}
	}
	meter := otel.Meter("user-auth-service/auth")
	attempts, err := meter.Int64Counter("auth.attempts",
		metric.WithDescription("Authentication attempts by operation and outcome"))
	if err != nil {
		log.Printf("auth metrics disabled: %v", err)
	}
	return &AuthHandler{engine: engine, google: google, events: events, attempts: attempts}
}

// Register mounts the auth routes on mux.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/signup", h.signup)
	mux.HandleFunc("POST /auth/signin", h.signin)
	mux.HandleFunc("POST /auth/refresh-token", h.refresh)
	mux.HandleFunc("GET /auth/google", h.googleStart)
	mux.HandleFunc("GET /auth/google/callback", h.googleCallback)
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "name, email, and password are required")
		return
	}
	if !userservice.ValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email format")
		return
	}
	ctx, cancel := requestContext(r)
	defer cancel()

	pair, err := h.engine.Signup(ctx, req.Name, req.Email, req.Password)
	h.count(r.Context(), "signup", err)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pair)
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	ctx, cancel := requestContext(r)
	defer cancel()

	pair, err := h.engine.Signin(ctx, req.Email, req.Password)
	h.count(r.Context(), "signin", err)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}
	ctx, cancel := requestContext(r)
	defer cancel()

	pair, err := h.engine.Refresh(ctx, req.RefreshToken)
	h.count(r.Context(), "refresh", err)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

const stateCookie = "oauth_state"

func (h *AuthHandler) googleStart(w http.ResponseWriter, r *http.Request) {
	if !h.google.Enabled() {
		writeError(w, http.StatusNotFound, "google login is not configured")
		return
	}
	state, err := oauth.NewState()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.google.AuthCodeURL(state), http.StatusFound)
}

func (h *AuthHandler) googleCallback(w http.ResponseWriter, r *http.Request) {
	if !h.google.Enabled() {
		writeError(w, http.StatusNotFound, "google login is not configured")
		return
	}
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		writeError(w, http.StatusBadRequest, "state mismatch")
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}
	ctx, cancel := requestContext(r)
	defer cancel()

	profile, err := h.google.Exchange(ctx, code)
	if err != nil {
		log.Printf("google exchange failed: %v", err)
		writeError(w, http.StatusBadGateway, "google login failed")
		return
	}
	pair, err := h.engine.GoogleLogin(ctx, profile)
	h.count(r.Context(), "google_login", err)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// writeEngineError maps auth service sentinel errors to HTTP statuses.
// Anything unmapped is a store or infrastructure failure: 503 without detail.
func (h *AuthHandler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, userservice.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, userservice.ErrEmailAlreadyRegistered),
		errors.Is(err, userservice.ErrGoogleIDAlreadyLinked):
		writeError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrInvalidRefreshToken):
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
	case errors.Is(err, service.ErrExpiredRefreshToken):
		writeError(w, http.StatusUnauthorized, "refresh token expired")
	default:
		log.Printf("auth request failed: %v", err)
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable")
	}
}

// count records the attempt on the meter and the event stream. Rejections
// (bad credentials, bad tokens) are distinguished from infrastructure errors.
func (h *AuthHandler) count(ctx context.Context, operation string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidRefreshToken),
		errors.Is(err, service.ErrExpiredRefreshToken),
		errors.Is(err, userservice.ErrEmailAlreadyRegistered),
		errors.Is(err, userservice.ErrGoogleIDAlreadyLinked),
		errors.Is(err, userservice.ErrInvalidInput):
		outcome = "rejected"
	default:
		outcome = "error"
	}
	if h.attempts != nil {
		h.attempts.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("outcome", outcome),
		))
	}
	_ = h.events.Emit(ctx, telemetry.Event{
		Operation: operation,
		Outcome:   outcome,
		CreatedAt: time.Now().UTC(),
	})
}

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx := r.Context()
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ctx = service.WithClientIP(ctx, host)
	}
	return context.WithTimeout(ctx, requestTimeout)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
