package token

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/crewbase/crewbase/internal/domain"
)

func TestIssuer_IssueAndValidate(t *testing.T) {
	issuer := NewIssuer("test-secret", 15*time.Minute, 7*24*time.Hour)

	op := &domain.Operator{ID: uuid.New(), Name: "root", Display: "Root", Superuser: true, Active: true}
	acct := &domain.Account{ID: uuid.New(), Name: "owner", Display: "Owner", Role: domain.RoleAdmin, Active: true}

	t.Run("Access Token Round Trip", func(t *testing.T) {
		access, refresh, err := issuer.IssuePair(acct, "acme01")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		claims, err := issuer.Validate(access, TypeAccess)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if claims.Domain != domain.IdentityDomainTenant {
			t.Errorf("expected tenant discriminator, got %s", claims.Domain)
		}
		if claims.TenantSlug != "acme01" {
			t.Errorf("expected tenant slug claim, got %q", claims.TenantSlug)
		}
		id, err := claims.SubjectID()
		if err != nil || id != acct.ID {
			t.Error("subject id mismatch")
		}

		if _, err := issuer.Validate(refresh, TypeRefresh); err != nil {
			t.Fatalf("refresh token should validate as refresh, got %v", err)
		}
	})

	t.Run("Domain Discriminator Distinguishes Identical IDs", func(t *testing.T) {
		// An operator and an account may collide on id; the discriminator
		// must keep their tokens apart.
		collidingOp := &domain.Operator{ID: acct.ID, Name: "root", Active: true}

		opToken, _, err := issuer.IssuePair(collidingOp, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		claims, err := issuer.Validate(opToken, TypeAccess)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if claims.Domain != domain.IdentityDomainPlatform {
			t.Errorf("expected platform discriminator, got %s", claims.Domain)
		}
	})

	t.Run("Type Mismatch Rejected", func(t *testing.T) {
		access, refresh, err := issuer.IssuePair(op, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := issuer.Validate(access, TypeRefresh); !errors.Is(err, domain.ErrTokenInvalid) {
			t.Errorf("access token validated as refresh: %v", err)
		}
		if _, err := issuer.Validate(refresh, TypeAccess); !errors.Is(err, domain.ErrTokenInvalid) {
			t.Errorf("refresh token validated as access: %v", err)
		}
	})

	t.Run("Expired Token Rejected", func(t *testing.T) {
		expired := NewIssuer("test-secret", -time.Minute, -time.Minute)
		access, _, err := expired.IssuePair(op, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := issuer.Validate(access, TypeAccess); !errors.Is(err, domain.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("Wrong Secret Rejected", func(t *testing.T) {
		other := NewIssuer("other-secret", 15*time.Minute, time.Hour)
		access, _, err := other.IssuePair(op, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := issuer.Validate(access, TypeAccess); !errors.Is(err, domain.ErrTokenInvalid) {
			t.Errorf("expected ErrTokenInvalid, got %v", err)
		}
	})

	t.Run("Garbage Rejected", func(t *testing.T) {
		if _, err := issuer.Validate("not-a-jwt", TypeAccess); !errors.Is(err, domain.ErrTokenInvalid) {
			t.Errorf("expected ErrTokenInvalid, got %v", err)
		}
	})
}
