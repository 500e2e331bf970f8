package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crewbase/crewbase/internal/adapter/api/middleware"
	"github.com/crewbase/crewbase/internal/domain"
	"github.com/crewbase/crewbase/internal/pkg/tenancy"
	"github.com/crewbase/crewbase/internal/pkg/token"
	"github.com/crewbase/crewbase/internal/usecase"
)

// uniformAuthFailure is the only body any credential or token failure may
// produce, whatever the internal reason, so accounts cannot be enumerated.
const uniformAuthFailure = "invalid credentials"

// AuthHandler serves the single login surface for both identity domains,
// token refresh, and quick-login.
type AuthHandler struct {
	auth   *usecase.AuthService
	quick  *usecase.QuickLoginService
	issuer *token.Issuer
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, quick *usecase.QuickLoginService, issuer *token.Issuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, quick: quick, issuer: issuer, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userPayload struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Domain      string `json:"domain"`
	Role        string `json:"role,omitempty"`
	Superuser   bool   `json:"superuser,omitempty"`
}

type tokenResponse struct {
	Access  string      `json:"access"`
	Refresh string      `json:"refresh"`
	User    userPayload `json:"user"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		respondError(w, http.StatusUnauthorized, uniformAuthFailure)
		return
	}

	sub, err := h.auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeAuthFailure(w, r, err)
		return
	}

	h.writeTokenPair(w, r, sub)
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// Refresh handles POST /auth/refresh: a valid refresh token yields a fresh
// access/refresh pair for the same subject, re-resolved in its own store.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Refresh == "" {
		respondError(w, http.StatusUnauthorized, uniformAuthFailure)
		return
	}

	claims, err := h.issuer.Validate(req.Refresh, token.TypeRefresh)
	if err != nil {
		respondError(w, http.StatusUnauthorized, uniformAuthFailure)
		return
	}
	id, err := claims.SubjectID()
	if err != nil {
		respondError(w, http.StatusUnauthorized, uniformAuthFailure)
		return
	}

	sub, err := h.auth.ResolveSubject(r.Context(), claims.Domain, id)
	if err != nil || !sub.IsActive() {
		respondError(w, http.StatusUnauthorized, uniformAuthFailure)
		return
	}

	h.writeTokenPair(w, r, sub)
}

// QuickRedeem handles GET /auth/quick/{token}: a valid capability token
// establishes a session exactly like a password login.
func (h *AuthHandler) QuickRedeem(w http.ResponseWriter, r *http.Request) {
	sub, err := h.quick.Redeem(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.writeAuthFailure(w, r, err)
		return
	}

	h.writeTokenPair(w, r, sub)
}

// QuickIssue handles POST /auth/quick/issue for an authenticated subject.
func (h *AuthHandler) QuickIssue(w http.ResponseWriter, r *http.Request) {
	sub, ok := middleware.SubjectFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, uniformAuthFailure)
		return
	}

	tok, maxAge := h.quick.Issue(r.Context(), sub)
	respondJSON(w, http.StatusOK, map[string]any{
		"token":      tok,
		"expires_in": int(maxAge.Seconds()),
	})
}

// Me handles GET /me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sub, ok := middleware.SubjectFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, uniformAuthFailure)
		return
	}
	respondJSON(w, http.StatusOK, subjectPayload(sub))
}

func (h *AuthHandler) writeTokenPair(w http.ResponseWriter, r *http.Request, sub domain.Subject) {
	var slug string
	if part, ok := tenancy.From(r.Context()); ok && !part.Platform() {
		slug = part.Schema
	}

	access, refresh, err := h.issuer.IssuePair(sub, slug)
	if err != nil {
		h.logger.Error("token issuance failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, tokenResponse{
		Access:  access,
		Refresh: refresh,
		User:    subjectPayload(sub),
	})
}

// writeAuthFailure collapses every known credential/token failure into the
// uniform 401; anything else is a storage-class fault and must surface as a
// generic 500 without leaking tenant or account existence.
func (h *AuthHandler) writeAuthFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrAccountInactive),
		errors.Is(err, domain.ErrPartitionMismatch),
		errors.Is(err, domain.ErrUnknownSubject),
		errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrStaleCredential):
		respondError(w, http.StatusUnauthorized, uniformAuthFailure)
	default:
		h.logger.Error("authentication failed unexpectedly", "error", err, "host", r.Host)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func subjectPayload(sub domain.Subject) userPayload {
	p := userPayload{
		ID:          sub.SubjectID().String(),
		Username:    sub.Username(),
		DisplayName: sub.DisplayName(),
		Domain:      string(sub.IdentityDomain()),
	}
	switch s := sub.(type) {
	case *domain.Account:
		p.Role = string(s.Role)
	case *domain.Operator:
		p.Superuser = s.Superuser
	}
	return p
}
