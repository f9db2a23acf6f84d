package handler

import (
	"net/http"

	"user-auth-service/internal/server/middleware"
)

type meResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Me returns the authenticated caller's identity. Must be mounted behind
// middleware.RequireAuth.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing or invalid authorization")
		return
	}
	writeJSON(w, http.StatusOK, meResponse{UserID: p.UserID, Email: p.Email, Role: p.Role})
}
