package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IdentityDomain discriminates the two identity namespaces. Subject ids are
// only unique within their own domain, so every token and lookup carries this
// tag; call sites branch on it, never on the shape of the record.
type IdentityDomain string

const (
	IdentityDomainPlatform IdentityDomain = "platform"
	IdentityDomainTenant   IdentityDomain = "tenant"
)

// AccountRole is the permission level of a tenant account.
type AccountRole string

const (
	RoleAdmin  AccountRole = "admin"
	RoleWorker AccountRole = "worker"
)

// Subject is the capability surface shared by both identity domains. The
// fingerprint is the current password hash; tokens bind to it so a password
// change invalidates outstanding quick-login tokens.
type Subject interface {
	SubjectID() uuid.UUID
	IdentityDomain() IdentityDomain
	Username() string
	DisplayName() string
	IsActive() bool
	Fingerprint() string
	CanAdmin() bool
}

// Operator is a platform identity: a system-wide account with a globally
// unique username, living in the shared partition.
type Operator struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"username"`
	PasswordHash string    `json:"-"`
	Display      string    `json:"display_name"`
	Superuser    bool      `json:"superuser"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (o *Operator) SubjectID() uuid.UUID             { return o.ID }
func (o *Operator) IdentityDomain() IdentityDomain   { return IdentityDomainPlatform }
func (o *Operator) Username() string                 { return o.Name }
func (o *Operator) DisplayName() string              { return o.Display }
func (o *Operator) IsActive() bool                   { return o.Active }
func (o *Operator) Fingerprint() string              { return o.PasswordHash }
func (o *Operator) CanAdmin() bool                   { return o.Superuser }

// Account is a tenant identity. Its username is unique only inside its own
// partition; two tenants may hold identically named but distinct accounts.
// Mirrored marks accounts auto-provisioned for platform operators.
type Account struct {
	ID           uuid.UUID   `json:"id"`
	TenantSlug   string      `json:"-"`
	Name         string      `json:"username"`
	PasswordHash string      `json:"-"`
	Display      string      `json:"display_name"`
	Role         AccountRole `json:"role"`
	Active       bool        `json:"active"`
	Mirrored     bool        `json:"mirrored"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (a *Account) SubjectID() uuid.UUID           { return a.ID }
func (a *Account) IdentityDomain() IdentityDomain { return IdentityDomainTenant }
func (a *Account) Username() string               { return a.Name }
func (a *Account) DisplayName() string            { return a.Display }
func (a *Account) IsActive() bool                 { return a.Active }
func (a *Account) Fingerprint() string            { return a.PasswordHash }
func (a *Account) CanAdmin() bool                 { return a.Role == RoleAdmin }

// OperatorProfile optionally associates an operator with one tenant for
// support purposes.
type OperatorProfile struct {
	ID          uuid.UUID `json:"id"`
	OperatorID  uuid.UUID `json:"operator_id"`
	TenantSlug  string    `json:"tenant_slug,omitempty"`
	SupportRole bool      `json:"support_role"`
	CreatedAt   time.Time `json:"created_at"`
}

// OperatorRepository accesses platform identities in the shared partition.
type OperatorRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Operator, error)
	FindByUsername(ctx context.Context, username string) (*Operator, error)
	List(ctx context.Context) ([]Operator, error)
}

// AccountRepository accesses tenant identities. Every method takes the tenant
// schema explicitly; no account lookup may span partitions.
type AccountRepository interface {
	FindByID(ctx context.Context, schema string, id uuid.UUID) (*Account, error)
	FindByUsername(ctx context.Context, schema, username string) (*Account, error)
	Create(ctx context.Context, schema string, a *Account) error
	SetPassword(ctx context.Context, schema string, id uuid.UUID, passwordHash string) error
	List(ctx context.Context, schema string) ([]Account, error)

	// UpsertMirror creates or refreshes the mirror account representing a
	// platform operator inside a tenant partition. Idempotent: a second
	// call for the same operator updates the existing row in place. The
	// bool reports whether a new row was created.
	UpsertMirror(ctx context.Context, schema string, op *Operator) (*Account, bool, error)
}
