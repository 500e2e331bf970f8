package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/crewbase/crewbase/internal/adapter/metrics"
	"github.com/crewbase/crewbase/internal/domain"
	"github.com/crewbase/crewbase/internal/pkg/password"
	"github.com/crewbase/crewbase/internal/pkg/tenancy"
)

var tracer = otel.Tracer("crewbase/usecase")

// SubjectResolver looks a subject up by identity-domain discriminator and id.
// Token verification and quick-login redemption both depend on it.
type SubjectResolver interface {
	ResolveSubject(ctx context.Context, dom domain.IdentityDomain, id uuid.UUID) (domain.Subject, error)
}

// AuthService implements the authentication contract over the two identity
// domains. All lookups are scoped by the partition bound in the request
// context; no credential or identifier ever crosses a partition boundary.
type AuthService struct {
	operators domain.OperatorRepository
	accounts  domain.AccountRepository
	audit     domain.AuditPublisher
	metrics   *metrics.IdentityMetrics
	logger    *slog.Logger
}

// NewAuthService creates a new AuthService. metrics may be nil in tests.
func NewAuthService(
	operators domain.OperatorRepository,
	accounts domain.AccountRepository,
	audit domain.AuditPublisher,
	m *metrics.IdentityMetrics,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		operators: operators,
		accounts:  accounts,
		audit:     audit,
		metrics:   m,
		logger:    logger,
	}
}

// Authenticate resolves (username, password) against the bound partition.
//
// Platform partition: operators only, no fallback. Tenant partition: the
// partition's own accounts first, then the one-directional superuser mirror
// path. Tenant credentials never authenticate against the platform domain.
//
// Failures are internally distinguishable (ErrInvalidCredentials,
// ErrAccountInactive, ErrPartitionMismatch) but the HTTP edge must present
// them uniformly.
func (s *AuthService) Authenticate(ctx context.Context, username, plaintext string) (domain.Subject, error) {
	ctx, span := tracer.Start(ctx, "auth.authenticate")
	defer span.End()

	part, ok := tenancy.From(ctx)
	if !ok {
		return nil, fmt.Errorf("authenticate: %w", domain.ErrPartitionMismatch)
	}

	if part.Platform() {
		sub, err := s.authenticateOperator(ctx, username, plaintext)
		s.observeLogin(err, domain.IdentityDomainPlatform)
		return sub, err
	}

	sub, err := s.authenticateAccount(ctx, part, username, plaintext)
	s.observeLogin(err, domain.IdentityDomainTenant)
	return sub, err
}

func (s *AuthService) authenticateOperator(ctx context.Context, username, plaintext string) (domain.Subject, error) {
	op, err := s.operators.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("operator lookup: %w", err)
	}
	if !password.Check(plaintext, op.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	if !op.Active {
		return nil, domain.ErrAccountInactive
	}

	s.publish(ctx, domain.AuditEvent{
		Kind:      domain.AuditLogin,
		SubjectID: op.ID.String(),
		Username:  op.Name,
		At:        time.Now().UTC(),
	})
	return op, nil
}

func (s *AuthService) authenticateAccount(ctx context.Context, part tenancy.Partition, username, plaintext string) (domain.Subject, error) {
	acct, err := s.accounts.FindByUsername(ctx, part.Schema, username)
	switch {
	case err == nil:
		if !password.Check(plaintext, acct.PasswordHash) {
			return nil, domain.ErrInvalidCredentials
		}
		if !acct.Active {
			return nil, domain.ErrAccountInactive
		}
		s.publish(ctx, domain.AuditEvent{
			Kind:       domain.AuditLogin,
			TenantSlug: part.Schema,
			SubjectID:  acct.ID.String(),
			Username:   acct.Name,
			At:         time.Now().UTC(),
		})
		return acct, nil
	case errors.Is(err, domain.ErrNotFound):
		return s.authenticateMirror(ctx, part, username, plaintext)
	default:
		return nil, fmt.Errorf("account lookup: %w", err)
	}
}

// authenticateMirror is the controlled platform→tenant entry path: a
// superuser operator's credentials bootstrap a partition-scoped ADMIN mirror
// so every in-partition action stays attributable to a local identity record.
func (s *AuthService) authenticateMirror(ctx context.Context, part tenancy.Partition, username, plaintext string) (domain.Subject, error) {
	op, err := s.operators.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("operator lookup: %w", err)
	}
	if !op.Superuser || !password.Check(plaintext, op.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	if !op.Active {
		return nil, domain.ErrAccountInactive
	}

	acct, created, err := s.ensureMirror(ctx, part.Schema, op)
	if err != nil {
		return nil, err
	}

	if created {
		s.publish(ctx, domain.AuditEvent{
			Kind:       domain.AuditMirrorProvisioned,
			TenantSlug: part.Schema,
			SubjectID:  acct.ID.String(),
			Username:   acct.Name,
			At:         time.Now().UTC(),
			Detail:     "operator " + op.ID.String(),
		})
	}
	s.publish(ctx, domain.AuditEvent{
		Kind:       domain.AuditMirrorLogin,
		TenantSlug: part.Schema,
		SubjectID:  acct.ID.String(),
		Username:   acct.Name,
		At:         time.Now().UTC(),
		Detail:     "operator " + op.ID.String(),
	})
	return acct, nil
}

// ensureMirror provisions or refreshes the operator's mirror account in the
// given partition. Kept as an explicit step so tests can assert exactly when
// provisioning occurs.
func (s *AuthService) ensureMirror(ctx context.Context, schema string, op *domain.Operator) (*domain.Account, bool, error) {
	acct, created, err := s.accounts.UpsertMirror(ctx, schema, op)
	if err != nil {
		return nil, false, fmt.Errorf("ensure mirror: %w", err)
	}
	if created {
		if s.metrics != nil {
			s.metrics.MirrorProvisions.Inc()
		}
		s.logger.Info("provisioned mirror account",
			"tenant", schema,
			"username", op.Name,
			"operator_id", op.ID,
		)
	}
	return acct, created, nil
}

// ResolveSubject re-resolves a token's subject in the store matching its
// identity-domain discriminator only. Tenant subjects additionally require
// that a tenant partition is bound; the active flag is left to the caller so
// redemption flows can order their checks.
func (s *AuthService) ResolveSubject(ctx context.Context, dom domain.IdentityDomain, id uuid.UUID) (domain.Subject, error) {
	switch dom {
	case domain.IdentityDomainPlatform:
		op, err := s.operators.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrUnknownSubject
			}
			return nil, fmt.Errorf("operator lookup: %w", err)
		}
		return op, nil
	case domain.IdentityDomainTenant:
		part, ok := tenancy.From(ctx)
		if !ok || part.Platform() {
			return nil, domain.ErrPartitionMismatch
		}
		acct, err := s.accounts.FindByID(ctx, part.Schema, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrUnknownSubject
			}
			return nil, fmt.Errorf("account lookup: %w", err)
		}
		return acct, nil
	default:
		return nil, domain.ErrUnknownSubject
	}
}

func (s *AuthService) observeLogin(err error, dom domain.IdentityDomain) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidCredentials):
		outcome = "invalid"
	case errors.Is(err, domain.ErrAccountInactive):
		outcome = "inactive"
	default:
		outcome = "error"
	}
	s.metrics.LoginAttempts.WithLabelValues(outcome, string(dom)).Inc()
}

func (s *AuthService) publish(ctx context.Context, event domain.AuditEvent) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Publish(ctx, event); err != nil {
		s.logger.Warn("audit publish failed", "error", err, "kind", event.Kind)
	}
}
