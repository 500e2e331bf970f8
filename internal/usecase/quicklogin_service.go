package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/crewbase/crewbase/internal/adapter/metrics"
	"github.com/crewbase/crewbase/internal/domain"
	"github.com/crewbase/crewbase/internal/pkg/quicktoken"
)

// QuickLoginService issues and redeems the stateless capability tokens used
// for passwordless login handoff, e.g. a printed code scanned by a field
// worker. A redeemed token establishes a session exactly like a password
// login; the bearer-token system is untouched by it.
type QuickLoginService struct {
	signer   *quicktoken.Signer
	resolver SubjectResolver
	audit    domain.AuditPublisher
	metrics  *metrics.IdentityMetrics
	logger   *slog.Logger
}

// NewQuickLoginService creates a new QuickLoginService.
func NewQuickLoginService(
	signer *quicktoken.Signer,
	resolver SubjectResolver,
	audit domain.AuditPublisher,
	m *metrics.IdentityMetrics,
	logger *slog.Logger,
) *QuickLoginService {
	return &QuickLoginService{
		signer:   signer,
		resolver: resolver,
		audit:    audit,
		metrics:  m,
		logger:   logger,
	}
}

// Issue signs a capability token for an authenticated subject and returns it
// with its lifetime.
func (s *QuickLoginService) Issue(ctx context.Context, sub domain.Subject) (string, time.Duration) {
	return s.signer.Issue(sub), s.signer.MaxAge()
}

// Redeem verifies a capability token and resolves its subject. Check order
// is fixed: signature+age, subject existence, credential fingerprint, active
// flag. The fingerprint comparison against the subject's current password
// hash is the sole revocation mechanism.
func (s *QuickLoginService) Redeem(ctx context.Context, token string) (domain.Subject, error) {
	payload, err := s.signer.Verify(token)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			s.observe("expired")
		} else {
			s.observe("invalid")
		}
		return nil, err
	}

	sub, err := s.resolver.ResolveSubject(ctx, payload.Domain, payload.SubjectID)
	if err != nil {
		s.observe("unknown")
		if errors.Is(err, domain.ErrPartitionMismatch) {
			return nil, err
		}
		return nil, domain.ErrUnknownSubject
	}

	if quicktoken.Fingerprint(sub.Fingerprint()) != payload.Fingerprint {
		s.observe("stale")
		return nil, domain.ErrStaleCredential
	}

	if !sub.IsActive() {
		s.observe("inactive")
		return nil, domain.ErrAccountInactive
	}

	s.observe("ok")
	s.publish(ctx, domain.AuditEvent{
		Kind:      domain.AuditQuickLogin,
		SubjectID: sub.SubjectID().String(),
		Username:  sub.Username(),
		At:        time.Now().UTC(),
	})
	return sub, nil
}

func (s *QuickLoginService) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.QuickLoginRedeems.WithLabelValues(outcome).Inc()
	}
}

func (s *QuickLoginService) publish(ctx context.Context, event domain.AuditEvent) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Publish(ctx, event); err != nil {
		s.logger.Warn("audit publish failed", "error", err, "kind", event.Kind)
	}
}
