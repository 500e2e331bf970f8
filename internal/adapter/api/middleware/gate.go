package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/crewbase/crewbase/internal/adapter/metrics"
	"github.com/crewbase/crewbase/internal/domain"
	"github.com/crewbase/crewbase/internal/pkg/tenancy"
)

// Gate denial messages. Suspended and expired share the 403 status class but
// carry distinct remediation messages.
const (
	MsgSuspended = "account suspended"
	MsgExpired   = "subscription expired"
)

// AccessGate is a middleware factory enforcing tenant activation and
// subscription state immediately after resolution, before any business
// logic. Platform traffic bypasses all subscription checks. The gate reads
// and decides; it never mutates a record.
func AccessGate(m *metrics.IdentityMetrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			part, ok := tenancy.From(r.Context())
			if !ok {
				// Gate before resolver is a wiring bug, not a client error.
				logger.Error("access gate reached without a bound partition", "path", r.URL.Path)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			if part.Platform() {
				next.ServeHTTP(w, r)
				return
			}

			tenant := part.Tenant
			switch {
			case !tenant.Active || tenant.Status != domain.TenantStatusActive:
				deny(w, m, logger, MsgSuspended, "suspended", tenant.Slug)
				return
			case tenant.SubscriptionExpired(time.Now()):
				deny(w, m, logger, MsgExpired, "expired", tenant.Slug)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func deny(w http.ResponseWriter, m *metrics.IdentityMetrics, logger *slog.Logger, msg, reason, slug string) {
	if m != nil {
		m.GateDenials.WithLabelValues(reason).Inc()
	}
	logger.Info("access gate denied request", "tenant", slug, "reason", reason)
	http.Error(w, msg, http.StatusForbidden)
}
