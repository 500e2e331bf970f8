// Package quicktoken implements the signed capability token behind
// passwordless quick-login. Tokens are stateless: nothing is persisted at
// issuance, so there is no denylist. Bounded exposure comes from the max-age
// check, and changing the subject's password invalidates every outstanding
// token because the embedded credential fingerprint no longer matches.
package quicktoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crewbase/crewbase/internal/domain"
)

// Payload is the decoded content of a capability token.
type Payload struct {
	Domain      domain.IdentityDomain
	SubjectID   uuid.UUID
	Fingerprint string
	IssuedAt    time.Time
}

// Signer issues and verifies capability tokens.
type Signer struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewSigner creates a Signer. maxAge bounds how long an issued token stays
// redeemable.
func NewSigner(secret string, maxAge time.Duration) *Signer {
	return &Signer{secret: []byte(secret), maxAge: maxAge, now: time.Now}
}

// NewSignerAt is NewSigner with an injectable clock, for tests.
func NewSignerAt(secret string, maxAge time.Duration, now func() time.Time) *Signer {
	return &Signer{secret: []byte(secret), maxAge: maxAge, now: now}
}

// MaxAge returns the configured token lifetime.
func (s *Signer) MaxAge() time.Duration { return s.maxAge }

// Fingerprint condenses a password hash into the short credential
// fingerprint embedded in tokens. Never derived from the plaintext.
func Fingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return fmt.Sprintf("%x", sum[:8])
}

// Issue signs a token binding the subject's identity domain, id, and current
// credential fingerprint to the issue time.
func (s *Signer) Issue(sub domain.Subject) string {
	payload := fmt.Sprintf("%s:%s:%s:%d",
		sub.IdentityDomain(),
		sub.SubjectID(),
		Fingerprint(sub.Fingerprint()),
		s.now().Unix(),
	)
	encoded := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return encoded + "." + s.sign(encoded)
}

// Verify checks signature and age and decodes the payload. Fingerprint and
// active-flag checks belong to the caller, which owns the identity stores.
// A token aged exactly maxAge is still valid; one second past is not.
func (s *Signer) Verify(token string) (*Payload, error) {
	encoded, sig, ok := strings.Cut(token, ".")
	if !ok {
		return nil, domain.ErrTokenInvalid
	}
	if !hmac.Equal([]byte(s.sign(encoded)), []byte(sig)) {
		return nil, domain.ErrTokenInvalid
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}
	parts := strings.Split(string(raw), ":")
	if len(parts) != 4 {
		return nil, domain.ErrTokenInvalid
	}

	dom := domain.IdentityDomain(parts[0])
	if dom != domain.IdentityDomainPlatform && dom != domain.IdentityDomainTenant {
		return nil, domain.ErrTokenInvalid
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}
	ts, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}

	issuedAt := time.Unix(ts, 0)
	age := s.now().Sub(issuedAt)
	if age < 0 || age > s.maxAge {
		return nil, domain.ErrTokenExpired
	}

	return &Payload{
		Domain:      dom,
		SubjectID:   id,
		Fingerprint: parts[2],
		IssuedAt:    issuedAt,
	}, nil
}

func (s *Signer) sign(encoded string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
