// Package tenancy carries the active-partition binding through a request.
// The binding is a context value, never process state, so pooled workers
// cannot leak one request's partition into the next: the binding dies with
// the request context on every exit path.
package tenancy

import (
	"context"

	"github.com/crewbase/crewbase/internal/domain"
)

type ctxKey struct{}

// Partition is the resolved storage binding for one request. For platform
// traffic Tenant is nil and Schema is the reserved shared schema.
type Partition struct {
	Schema string
	Tenant *domain.Tenant
}

// Platform reports whether the shared platform partition is bound.
func (p Partition) Platform() bool {
	return p.Schema == domain.PlatformSchema
}

// PlatformPartition is the binding used for all platform-host traffic.
func PlatformPartition() Partition {
	return Partition{Schema: domain.PlatformSchema}
}

// TenantPartition binds a customer tenant's schema.
func TenantPartition(t *domain.Tenant) Partition {
	return Partition{Schema: t.Slug, Tenant: t}
}

// Bind attaches the partition to the context. Exactly one binding per
// request; the resolver is the only caller.
func Bind(ctx context.Context, p Partition) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// From returns the bound partition, if any.
func From(ctx context.Context) (Partition, bool) {
	p, ok := ctx.Value(ctxKey{}).(Partition)
	return p, ok
}
