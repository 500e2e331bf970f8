package middleware

import (
	"net/http"

	"github.com/crewbase/crewbase/internal/domain"
	"github.com/crewbase/crewbase/internal/pkg/tenancy"
)

// PlatformOnly guards console sections exposing platform-wide entities. The
// shared partition must be bound AND the subject must be a platform
// identity; a tenant ADMIN reaching this with a tenant partition bound is
// denied so privilege never leaks across the domain boundary.
func PlatformOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		part, ok := tenancy.From(r.Context())
		if !ok || !part.Platform() {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		sub, ok := SubjectFrom(r.Context())
		if !ok || sub.IdentityDomain() != domain.IdentityDomainPlatform {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TenantAdmin guards tenant-scope console sections: a tenant partition must
// be bound and the subject must be an active admin-capable tenant identity
// (a tenant ADMIN or a mirrored operator).
func TenantAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		part, ok := tenancy.From(r.Context())
		if !ok || part.Platform() {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		sub, ok := SubjectFrom(r.Context())
		if !ok || sub.IdentityDomain() != domain.IdentityDomainTenant || !sub.CanAdmin() || !sub.IsActive() {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
