package quicktoken

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/crewbase/crewbase/internal/domain"
)

func testSubject() *domain.Account {
	return &domain.Account{
		ID:           uuid.New(),
		Name:         "field1",
		PasswordHash: "$2a$10$somestoredbcrypthashvalue",
		Role:         domain.RoleWorker,
		Active:       true,
	}
}

func TestSigner_IssueAndVerify(t *testing.T) {
	maxAge := 12 * time.Hour
	issued := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	t.Run("Round Trip", func(t *testing.T) {
		now := issued
		s := NewSignerAt("secret", maxAge, func() time.Time { return now })
		sub := testSubject()

		tok := s.Issue(sub)
		payload, err := s.Verify(tok)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if payload.Domain != domain.IdentityDomainTenant {
			t.Errorf("expected tenant domain, got %s", payload.Domain)
		}
		if payload.SubjectID != sub.ID {
			t.Error("subject id mismatch")
		}
		if payload.Fingerprint != Fingerprint(sub.PasswordHash) {
			t.Error("fingerprint mismatch")
		}
		if !payload.IssuedAt.Equal(issued) {
			t.Errorf("issued at mismatch: got %v", payload.IssuedAt)
		}
	})

	t.Run("Valid At Exactly Max Age", func(t *testing.T) {
		now := issued
		s := NewSignerAt("secret", maxAge, func() time.Time { return now })
		tok := s.Issue(testSubject())

		now = issued.Add(maxAge)
		if _, err := s.Verify(tok); err != nil {
			t.Fatalf("token at exactly max age should verify, got %v", err)
		}
	})

	t.Run("Expired One Second Past Max Age", func(t *testing.T) {
		now := issued
		s := NewSignerAt("secret", maxAge, func() time.Time { return now })
		tok := s.Issue(testSubject())

		now = issued.Add(maxAge + time.Second)
		_, err := s.Verify(tok)
		if !errors.Is(err, domain.ErrTokenExpired) {
			t.Fatalf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("Accepted One Second Before Max Age", func(t *testing.T) {
		now := issued
		s := NewSignerAt("secret", maxAge, func() time.Time { return now })
		tok := s.Issue(testSubject())

		now = issued.Add(maxAge - time.Second)
		if _, err := s.Verify(tok); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("Tampered Payload Rejected", func(t *testing.T) {
		s := NewSignerAt("secret", maxAge, func() time.Time { return issued })
		tok := s.Issue(testSubject())

		parts := strings.SplitN(tok, ".", 2)
		tampered := parts[0][:len(parts[0])-2] + "xx." + parts[1]
		if _, err := s.Verify(tampered); !errors.Is(err, domain.ErrTokenInvalid) {
			t.Fatalf("expected ErrTokenInvalid, got %v", err)
		}
	})

	t.Run("Wrong Secret Rejected", func(t *testing.T) {
		s := NewSignerAt("secret", maxAge, func() time.Time { return issued })
		other := NewSignerAt("different", maxAge, func() time.Time { return issued })

		tok := s.Issue(testSubject())
		if _, err := other.Verify(tok); !errors.Is(err, domain.ErrTokenInvalid) {
			t.Fatalf("expected ErrTokenInvalid, got %v", err)
		}
	})

	t.Run("Malformed Token Rejected", func(t *testing.T) {
		s := NewSignerAt("secret", maxAge, func() time.Time { return issued })
		for _, tok := range []string{"", "nodot", "a.b", "!!!.???"} {
			if _, err := s.Verify(tok); !errors.Is(err, domain.ErrTokenInvalid) {
				t.Errorf("token %q: expected ErrTokenInvalid, got %v", tok, err)
			}
		}
	})
}

func TestFingerprint(t *testing.T) {
	fp1 := Fingerprint("hash-a")
	fp2 := Fingerprint("hash-b")
	if fp1 == fp2 {
		t.Error("distinct hashes must produce distinct fingerprints")
	}
	if fp1 != Fingerprint("hash-a") {
		t.Error("fingerprint must be deterministic")
	}
	if len(fp1) != 16 {
		t.Errorf("expected 16 hex chars, got %d", len(fp1))
	}
}
