package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/crewbase/crewbase/internal/domain"
	"github.com/crewbase/crewbase/internal/pkg/password"
	"github.com/crewbase/crewbase/internal/pkg/tenancy"
	"github.com/crewbase/crewbase/internal/usecase"
)

// AdminHandler serves the management console. Route guards ensure the
// platform section is reachable only with the shared partition bound and the
// tenant section only with a tenant partition bound; the handlers themselves
// read everything through the binding.
type AdminHandler struct {
	provision *usecase.ProvisionService
	operators domain.OperatorRepository
	accounts  domain.AccountRepository
	logger    *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(provision *usecase.ProvisionService, operators domain.OperatorRepository, accounts domain.AccountRepository, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{provision: provision, operators: operators, accounts: accounts, logger: logger}
}

// HealthCheck is a simple health check endpoint.
func (h *AdminHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Platform section ---

// ListTenants handles GET /admin/platform/tenants.
func (h *AdminHandler) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.provision.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list tenants", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, tenants)
}

type provisionRequest struct {
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	Hostname      string `json:"hostname"`
	AdminUsername string `json:"admin_username"`
	AdminPassword string `json:"admin_password"`
}

// ProvisionTenant handles POST /admin/platform/tenants. Provisioning errors
// surface field-level detail; registration is not a security-sensitive
// boundary.
func (h *AdminHandler) ProvisionTenant(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	tenant, err := h.provision.ProvisionTenant(r.Context(), req.Name, req.Slug, req.Hostname, req.AdminUsername, req.AdminPassword)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSlug):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrReservedSlug),
			errors.Is(err, domain.ErrDuplicateTenant),
			errors.Is(err, domain.ErrDuplicateHostname):
			respondError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("tenant provisioning failed", "error", err, "slug", req.Slug)
			respondError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	respondJSON(w, http.StatusCreated, tenant)
}

// SuspendTenant handles POST /admin/platform/tenants/{slug}/suspend.
func (h *AdminHandler) SuspendTenant(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.provision.Suspend)
}

// ReactivateTenant handles POST /admin/platform/tenants/{slug}/reactivate.
func (h *AdminHandler) ReactivateTenant(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.provision.Reactivate)
}

type renewRequest struct {
	PaidUntil string `json:"paid_until"` // YYYY-MM-DD
}

// RenewTenant handles POST /admin/platform/tenants/{slug}/renew.
func (h *AdminHandler) RenewTenant(w http.ResponseWriter, r *http.Request) {
	var req renewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	until, err := time.Parse("2006-01-02", req.PaidUntil)
	if err != nil {
		respondError(w, http.StatusBadRequest, "paid_until must be YYYY-MM-DD")
		return
	}

	slug := chi.URLParam(r, "slug")
	if err := h.provision.Renew(r.Context(), slug, until); err != nil {
		h.lifecycleError(w, err, slug)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DropTenant handles POST /admin/platform/tenants/{slug}/drop. Irreversible.
func (h *AdminHandler) DropTenant(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.provision.Drop)
}

// ListOperators handles GET /admin/platform/operators.
func (h *AdminHandler) ListOperators(w http.ResponseWriter, r *http.Request) {
	ops, err := h.operators.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list operators", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, ops)
}

func (h *AdminHandler) lifecycle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, slug string) error) {
	slug := chi.URLParam(r, "slug")
	if err := op(r.Context(), slug); err != nil {
		h.lifecycleError(w, err, slug)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) lifecycleError(w http.ResponseWriter, err error, slug string) {
	if errors.Is(err, domain.ErrNotFound) {
		respondError(w, http.StatusNotFound, "tenant not found")
		return
	}
	h.logger.Error("tenant lifecycle operation failed", "error", err, "slug", slug)
	respondError(w, http.StatusInternalServerError, "internal server error")
}

// --- Tenant section ---

// ListAccounts handles GET /admin/tenant/accounts for the bound partition.
func (h *AdminHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	part, ok := tenancy.From(r.Context())
	if !ok || part.Platform() {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	accounts, err := h.accounts.List(r.Context(), part.Schema)
	if err != nil {
		h.logger.Error("failed to list accounts", "error", err, "tenant", part.Schema)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, accounts)
}

type createAccountRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// CreateAccount handles POST /admin/tenant/accounts.
func (h *AdminHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	part, ok := tenancy.From(r.Context())
	if !ok || part.Platform() {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	role := domain.AccountRole(req.Role)
	if role != domain.RoleAdmin && role != domain.RoleWorker {
		role = domain.RoleWorker
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	now := time.Now().UTC()
	acct := &domain.Account{
		ID:           uuid.New(),
		TenantSlug:   part.Schema,
		Name:         req.Username,
		PasswordHash: hash,
		Display:      req.DisplayName,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if acct.Display == "" {
		acct.Display = req.Username
	}

	if err := h.accounts.Create(r.Context(), part.Schema, acct); err != nil {
		h.logger.Error("failed to create account", "error", err, "tenant", part.Schema)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusCreated, acct)
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// ResetAccountPassword handles POST /admin/tenant/accounts/{id}/password.
// The new hash immediately invalidates the account's outstanding quick-login
// tokens.
func (h *AdminHandler) ResetAccountPassword(w http.ResponseWriter, r *http.Request) {
	part, ok := tenancy.From(r.Context())
	if !ok || part.Platform() {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "malformed account id")
		return
	}
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
		respondError(w, http.StatusBadRequest, "password is required")
		return
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.accounts.SetPassword(r.Context(), part.Schema, id, hash); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(w, http.StatusNotFound, "account not found")
			return
		}
		h.logger.Error("failed to reset password", "error", err, "tenant", part.Schema)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
