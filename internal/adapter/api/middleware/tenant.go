package middleware

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/crewbase/crewbase/internal/domain"
	"github.com/crewbase/crewbase/internal/pkg/tenancy"
)

// ResolveTenant is a middleware factory that maps the request host to a
// tenant partition and binds it into the request context. Platform hosts
// bind the reserved shared partition. Unknown hosts get a generic 404 that
// does not reveal whether any tenant exists.
//
// The binding lives only on the request context, so it is cleared on every
// exit path and can never bleed into another request on a reused worker.
func ResolveTenant(directory domain.TenantDirectory, platformHosts []string, logger *slog.Logger) func(http.Handler) http.Handler {
	platform := make(map[string]struct{}, len(platformHosts))
	for _, h := range platformHosts {
		platform[strings.ToLower(h)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := normalizeHost(r.Host)
			if host == "" {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}

			if _, ok := platform[host]; ok {
				ctx := tenancy.Bind(r.Context(), tenancy.PlatformPartition())
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			tenant, err := directory.FindByHostname(r.Context(), host)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					logger.Warn("unresolvable host", "host", host, "remote_addr", r.RemoteAddr)
					http.Error(w, "Not found", http.StatusNotFound)
					return
				}
				logger.Error("tenant resolution failed", "error", err, "host", host)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			ctx := tenancy.Bind(r.Context(), tenancy.TenantPartition(tenant))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// normalizeHost strips an optional port and lowercases the host.
func normalizeHost(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.TrimSpace(host))
}
