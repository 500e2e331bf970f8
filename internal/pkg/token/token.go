package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/crewbase/crewbase/internal/domain"
)

// Token types carried in the typ claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims defines the custom claims for issued bearer tokens. Dom is
// mandatory: subject ids are unique only within their own identity domain,
// so without the discriminator an id collision between an operator and a
// tenant account could authenticate as the wrong party.
type Claims struct {
	Domain      domain.IdentityDomain `json:"dom"`
	TenantSlug  string                `json:"tnt,omitempty"`
	DisplayName string                `json:"name"`
	TokenType   string                `json:"typ"`
	jwt.RegisteredClaims
}

// SubjectID parses the registered subject claim.
func (c *Claims) SubjectID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Issuer creates and validates access/refresh token pairs.
type Issuer struct {
	secret     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewIssuer creates an Issuer signing with the given HMAC secret.
func NewIssuer(secret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// IssuePair creates an access and a refresh token for an authenticated
// subject. The tenant slug claim is informational only; the server rebinds
// the partition from the Host header on every request.
func (i *Issuer) IssuePair(sub domain.Subject, tenantSlug string) (access, refresh string, err error) {
	access, err = i.issue(sub, tenantSlug, TypeAccess, i.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = i.issue(sub, tenantSlug, TypeRefresh, i.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (i *Issuer) issue(sub domain.Subject, tenantSlug, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Domain:      sub.IdentityDomain(),
		TenantSlug:  tenantSlug,
		DisplayName: sub.DisplayName(),
		TokenType:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.SubjectID().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(i.secret))
}

// Validate parses a token and checks its signature, expiry, and type.
func (i *Issuer) Validate(tokenString, wantType string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(i.secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}
	if !tok.Valid {
		return nil, domain.ErrTokenInvalid
	}
	if claims.TokenType != wantType {
		return nil, domain.ErrTokenInvalid
	}
	switch claims.Domain {
	case domain.IdentityDomainPlatform, domain.IdentityDomainTenant:
	default:
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}
