package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PlatformSchema is the shared partition holding platform-wide data. It is
// reserved and never assignable to a customer tenant.
const PlatformSchema = "public"

// TenantStatus tracks the directory-level lifecycle of a tenant. Suspension
// and expiry are derived from Active/PaidUntil; status only distinguishes a
// live row from one whose partition is being torn down.
type TenantStatus string

const (
	TenantStatusActive   TenantStatus = "active"
	TenantStatusDeleting TenantStatus = "deleting"
)

// Tenant represents one customer organization and its isolated partition.
// Slug doubles as the Postgres schema name and is immutable once created.
type Tenant struct {
	ID        uuid.UUID    `json:"id"`
	Slug      string       `json:"slug"`
	Name      string       `json:"name"`
	Active    bool         `json:"active"`
	PaidUntil *time.Time   `json:"paid_until,omitempty"`
	Status    TenantStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// SubscriptionExpired reports whether the tenant's subscription window has
// closed. A nil PaidUntil means the subscription never expires.
func (t *Tenant) SubscriptionExpired(now time.Time) bool {
	if t.PaidUntil == nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return t.PaidUntil.Before(today)
}

// Domain maps an inbound hostname to a tenant. Hostnames are unique across
// all tenants; exactly one domain per tenant is primary.
type Domain struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Hostname  string    `json:"hostname"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}

var reservedSlugs = map[string]struct{}{
	PlatformSchema: {},
	"shared":       {},
	"pg_catalog":   {},
}

// IsReservedSlug reports whether a partition key is reserved for the platform
// and therefore not assignable to a customer tenant.
func IsReservedSlug(slug string) bool {
	_, ok := reservedSlugs[slug]
	return ok
}

// TenantDirectory is the read side of the tenant registry, consulted on every
// request. Implementations should cache hostname lookups.
type TenantDirectory interface {
	// FindByHostname resolves an inbound host to its tenant, or ErrNotFound.
	FindByHostname(ctx context.Context, hostname string) (*Tenant, error)

	// FindBySlug looks a tenant up by partition key, or ErrNotFound.
	FindBySlug(ctx context.Context, slug string) (*Tenant, error)
}

// TenantRepository is the write side of the tenant registry plus the
// partition lifecycle. Provision and Drop span directory rows and schema DDL.
type TenantRepository interface {
	TenantDirectory

	// Provision atomically creates the directory row, the primary domain
	// row, the tenant schema, and the bootstrap admin account. All or
	// nothing.
	Provision(ctx context.Context, t *Tenant, d *Domain, admin *Account) error

	// SetActive toggles the activation flag.
	SetActive(ctx context.Context, slug string, active bool) error

	// Renew moves the subscription end date.
	Renew(ctx context.Context, slug string, paidUntil time.Time) error

	// MarkDeleting flips the row to deleting so the gate refuses new
	// requests before the schema is physically dropped.
	MarkDeleting(ctx context.Context, slug string) error

	// Drop removes the tenant schema and its directory rows. Irreversible.
	Drop(ctx context.Context, slug string) error

	// List returns all tenants ordered by creation time.
	List(ctx context.Context) ([]Tenant, error)
}
