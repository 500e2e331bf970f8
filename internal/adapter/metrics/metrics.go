package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// IdentityMetrics holds all Prometheus metrics for the identity core.
type IdentityMetrics struct {
	LoginAttempts        *prometheus.CounterVec
	GateDenials          *prometheus.CounterVec
	DirectoryCacheHits   prometheus.Counter
	DirectoryCacheMisses prometheus.Counter
	MirrorProvisions     prometheus.Counter
	QuickLoginRedeems    *prometheus.CounterVec
}

// NewIdentityMetrics initializes and registers the Prometheus metrics.
func NewIdentityMetrics() *IdentityMetrics {
	return &IdentityMetrics{
		LoginAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crewbase",
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Total number of login attempts by outcome and identity domain.",
		}, []string{"outcome", "domain"}), // outcome: ok, invalid, inactive, error
		GateDenials: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crewbase",
			Subsystem: "gate",
			Name:      "denials_total",
			Help:      "Total number of access-gate denials by reason.",
		}, []string{"reason"}), // reason: suspended, expired
		DirectoryCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "crewbase",
			Subsystem: "directory",
			Name:      "cache_hits_total",
			Help:      "Total number of tenant directory cache hits.",
		}),
		DirectoryCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "crewbase",
			Subsystem: "directory",
			Name:      "cache_misses_total",
			Help:      "Total number of tenant directory cache misses.",
		}),
		MirrorProvisions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "crewbase",
			Subsystem: "auth",
			Name:      "mirror_provisions_total",
			Help:      "Total number of operator mirror accounts provisioned into tenant partitions.",
		}),
		QuickLoginRedeems: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crewbase",
			Subsystem: "auth",
			Name:      "quick_login_redemptions_total",
			Help:      "Total number of quick-login redemptions by outcome.",
		}, []string{"outcome"}), // outcome: ok, expired, stale, unknown, inactive
	}
}
