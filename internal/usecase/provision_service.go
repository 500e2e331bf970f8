package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/crewbase/crewbase/internal/domain"
	"github.com/crewbase/crewbase/internal/pkg/password"
)

var slugPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{2,62}$`)

// ProvisionService drives the tenant lifecycle: atomic registration,
// suspension, reactivation, subscription renewal, and the irreversible
// partition drop.
type ProvisionService struct {
	tenants domain.TenantRepository
	audit   domain.AuditPublisher
	logger  *slog.Logger
}

// NewProvisionService creates a new ProvisionService.
func NewProvisionService(tenants domain.TenantRepository, audit domain.AuditPublisher, logger *slog.Logger) *ProvisionService {
	return &ProvisionService{tenants: tenants, audit: audit, logger: logger}
}

// ProvisionTenant registers a tenant as one atomic operation: directory row,
// primary domain row, partition schema, and the bootstrap ADMIN account.
func (s *ProvisionService) ProvisionTenant(ctx context.Context, name, slug, hostname, adminUsername, adminPassword string) (*domain.Tenant, error) {
	ctx, span := tracer.Start(ctx, "provision.tenant")
	defer span.End()

	if domain.IsReservedSlug(slug) {
		return nil, domain.ErrReservedSlug
	}
	if !slugPattern.MatchString(slug) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidSlug, slug)
	}
	if name == "" || hostname == "" || adminUsername == "" || adminPassword == "" {
		return nil, fmt.Errorf("provision tenant: missing required field")
	}

	hash, err := password.Hash(adminPassword)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}

	now := time.Now().UTC()
	tenant := &domain.Tenant{
		ID:        uuid.New(),
		Slug:      slug,
		Name:      name,
		Active:    true,
		Status:    domain.TenantStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	dom := &domain.Domain{
		ID:        uuid.New(),
		TenantID:  tenant.ID,
		Hostname:  hostname,
		IsPrimary: true,
		CreatedAt: now,
	}
	admin := &domain.Account{
		ID:           uuid.New(),
		TenantSlug:   slug,
		Name:         adminUsername,
		PasswordHash: hash,
		Display:      adminUsername,
		Role:         domain.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.tenants.Provision(ctx, tenant, dom, admin); err != nil {
		return nil, fmt.Errorf("provision tenant %q: %w", slug, err)
	}

	s.logger.Info("tenant provisioned", "slug", slug, "hostname", hostname)
	s.publish(ctx, domain.AuditTenantProvisioned, slug, hostname)
	return tenant, nil
}

// Suspend toggles the activation flag off. The gate refuses the tenant's
// traffic on the next request.
func (s *ProvisionService) Suspend(ctx context.Context, slug string) error {
	if err := s.tenants.SetActive(ctx, slug, false); err != nil {
		return fmt.Errorf("suspend tenant %q: %w", slug, err)
	}
	s.publish(ctx, domain.AuditTenantSuspended, slug, "")
	return nil
}

// Reactivate toggles the activation flag back on.
func (s *ProvisionService) Reactivate(ctx context.Context, slug string) error {
	if err := s.tenants.SetActive(ctx, slug, true); err != nil {
		return fmt.Errorf("reactivate tenant %q: %w", slug, err)
	}
	s.publish(ctx, domain.AuditTenantReactivated, slug, "")
	return nil
}

// Renew moves the subscription end date.
func (s *ProvisionService) Renew(ctx context.Context, slug string, paidUntil time.Time) error {
	if err := s.tenants.Renew(ctx, slug, paidUntil); err != nil {
		return fmt.Errorf("renew tenant %q: %w", slug, err)
	}
	s.publish(ctx, domain.AuditTenantRenewed, slug, paidUntil.Format("2006-01-02"))
	return nil
}

// Drop destroys a tenant. The directory row is marked deleting first so the
// gate rejects new requests while the schema is physically dropped; only
// then are the rows removed. Irreversible.
func (s *ProvisionService) Drop(ctx context.Context, slug string) error {
	ctx, span := tracer.Start(ctx, "provision.drop")
	defer span.End()

	if err := s.tenants.MarkDeleting(ctx, slug); err != nil {
		return fmt.Errorf("mark tenant %q deleting: %w", slug, err)
	}
	if err := s.tenants.Drop(ctx, slug); err != nil {
		return fmt.Errorf("drop tenant %q: %w", slug, err)
	}

	s.logger.Info("tenant dropped", "slug", slug)
	s.publish(ctx, domain.AuditTenantDropped, slug, "")
	return nil
}

// List returns the tenant registry.
func (s *ProvisionService) List(ctx context.Context) ([]domain.Tenant, error) {
	return s.tenants.List(ctx)
}

func (s *ProvisionService) publish(ctx context.Context, kind domain.AuditEventKind, slug, detail string) {
	if s.audit == nil {
		return
	}
	event := domain.AuditEvent{Kind: kind, TenantSlug: slug, At: time.Now().UTC(), Detail: detail}
	if err := s.audit.Publish(ctx, event); err != nil {
		s.logger.Warn("audit publish failed", "error", err, "kind", kind)
	}
}
