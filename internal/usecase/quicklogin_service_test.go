package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/crewbase/crewbase/internal/domain"
	"github.com/crewbase/crewbase/internal/domain/mocks"
	"github.com/crewbase/crewbase/internal/pkg/quicktoken"
	"github.com/crewbase/crewbase/internal/pkg/token"
)

func TestQuickLoginService_Redeem(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	issued := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	maxAge := 12 * time.Hour

	newFixture := func(now *time.Time) (*QuickLoginService, *mocks.MockAccountRepository, *domain.Account, string) {
		acct := &domain.Account{
			ID:           uuid.New(),
			Name:         "field1",
			PasswordHash: "$2a$10$storedhashvalue",
			Display:      "Field One",
			Role:         domain.RoleWorker,
			Active:       true,
		}
		operators := &mocks.MockOperatorRepository{}
		accounts := mocks.NewMockAccountRepository()
		accounts.Add("acme01", acct)
		resolver := NewAuthService(operators, accounts, &mocks.MockAuditPublisher{}, nil, logger)

		signer := quicktoken.NewSignerAt("quick-secret", maxAge, func() time.Time { return *now })
		svc := NewQuickLoginService(signer, resolver, &mocks.MockAuditPublisher{}, nil, logger)

		tok, _ := svc.Issue(context.Background(), acct)
		return svc, accounts, acct, tok
	}

	t.Run("Fresh Token Redeems To Its Subject", func(t *testing.T) {
		now := issued
		svc, _, acct, tok := newFixture(&now)

		now = issued.Add(time.Hour)
		sub, err := svc.Redeem(tenantCtx("acme01"), tok)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sub.SubjectID() != acct.ID {
			t.Error("redeemed subject mismatch")
		}
	})

	t.Run("Token Dies One Second Past Max Age", func(t *testing.T) {
		now := issued
		svc, _, _, tok := newFixture(&now)

		now = issued.Add(maxAge)
		if _, err := svc.Redeem(tenantCtx("acme01"), tok); err != nil {
			t.Fatalf("token at exactly max age should redeem, got %v", err)
		}

		now = issued.Add(maxAge + time.Second)
		if _, err := svc.Redeem(tenantCtx("acme01"), tok); !errors.Is(err, domain.ErrTokenExpired) {
			t.Fatalf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("Password Change Revokes Outstanding Tokens", func(t *testing.T) {
		now := issued
		svc, accounts, acct, tok := newFixture(&now)

		if err := accounts.SetPassword(context.Background(), "acme01", acct.ID, "$2a$10$rotatedhashvalue"); err != nil {
			t.Fatalf("set password: %v", err)
		}

		now = issued.Add(time.Minute)
		if _, err := svc.Redeem(tenantCtx("acme01"), tok); !errors.Is(err, domain.ErrStaleCredential) {
			t.Fatalf("expected ErrStaleCredential, got %v", err)
		}
	})

	t.Run("Password Change Leaves Bearer Tokens Untouched", func(t *testing.T) {
		now := issued
		svc, accounts, acct, quickTok := newFixture(&now)

		issuer := token.NewIssuer("jwt-secret", 15*time.Minute, time.Hour)
		access, _, err := issuer.IssuePair(acct, "acme01")
		if err != nil {
			t.Fatalf("issue bearer pair: %v", err)
		}

		if err := accounts.SetPassword(context.Background(), "acme01", acct.ID, "$2a$10$rotatedhashvalue"); err != nil {
			t.Fatalf("set password: %v", err)
		}

		now = issued.Add(time.Minute)
		if _, err := svc.Redeem(tenantCtx("acme01"), quickTok); !errors.Is(err, domain.ErrStaleCredential) {
			t.Fatalf("quick token should be stale, got %v", err)
		}
		if _, err := issuer.Validate(access, token.TypeAccess); err != nil {
			t.Fatalf("bearer token must survive the password change, got %v", err)
		}
	})

	t.Run("Deactivated Subject Rejected After Fingerprint Check", func(t *testing.T) {
		now := issued
		svc, accounts, acct, tok := newFixture(&now)

		stored := accounts.Accounts["acme01"][acct.Name]
		stored.Active = false

		now = issued.Add(time.Minute)
		if _, err := svc.Redeem(tenantCtx("acme01"), tok); !errors.Is(err, domain.ErrAccountInactive) {
			t.Fatalf("expected ErrAccountInactive, got %v", err)
		}
	})

	t.Run("Deleted Subject Is Unknown", func(t *testing.T) {
		now := issued
		svc, accounts, acct, tok := newFixture(&now)

		delete(accounts.Accounts["acme01"], acct.Name)

		now = issued.Add(time.Minute)
		if _, err := svc.Redeem(tenantCtx("acme01"), tok); !errors.Is(err, domain.ErrUnknownSubject) {
			t.Fatalf("expected ErrUnknownSubject, got %v", err)
		}
	})

	t.Run("Tenant Token Needs A Tenant Partition", func(t *testing.T) {
		now := issued
		svc, _, _, tok := newFixture(&now)

		now = issued.Add(time.Minute)
		if _, err := svc.Redeem(platformCtx(), tok); !errors.Is(err, domain.ErrPartitionMismatch) {
			t.Fatalf("expected ErrPartitionMismatch, got %v", err)
		}
	})

	t.Run("Wrong Partition Cannot Redeem", func(t *testing.T) {
		now := issued
		svc, _, _, tok := newFixture(&now)

		now = issued.Add(time.Minute)
		if _, err := svc.Redeem(tenantCtx("beta01"), tok); !errors.Is(err, domain.ErrUnknownSubject) {
			t.Fatalf("expected ErrUnknownSubject, got %v", err)
		}
	})

	t.Run("Redemption Is Audited", func(t *testing.T) {
		now := issued
		acct := &domain.Account{ID: uuid.New(), Name: "field1", PasswordHash: "h", Role: domain.RoleWorker, Active: true}
		accounts := mocks.NewMockAccountRepository()
		accounts.Add("acme01", acct)
		resolver := NewAuthService(&mocks.MockOperatorRepository{}, accounts, &mocks.MockAuditPublisher{}, nil, logger)
		audit := &mocks.MockAuditPublisher{}
		signer := quicktoken.NewSignerAt("quick-secret", maxAge, func() time.Time { return now })
		svc := NewQuickLoginService(signer, resolver, audit, nil, logger)

		tok, _ := svc.Issue(context.Background(), acct)
		if _, err := svc.Redeem(tenantCtx("acme01"), tok); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		kinds := audit.Kinds()
		if len(kinds) != 1 || kinds[0] != domain.AuditQuickLogin {
			t.Errorf("expected a single quick_login audit event, got %v", kinds)
		}
	})
}

func TestQuickLoginService_Issue(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	signer := quicktoken.NewSigner("quick-secret", 12*time.Hour)
	svc := NewQuickLoginService(signer, nil, nil, nil, logger)

	op := &domain.Operator{ID: uuid.New(), Name: "root", PasswordHash: "h", Active: true}
	tok, maxAge := svc.Issue(context.Background(), op)
	if tok == "" {
		t.Fatal("expected a token")
	}
	if maxAge != 12*time.Hour {
		t.Errorf("expected configured lifetime, got %v", maxAge)
	}
}
