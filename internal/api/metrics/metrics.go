// Package metrics defines and registers the custom Prometheus metrics of the
// identity service. Metrics are registered with the default registry on
// package initialisation through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity"

// AuthOperationsTotal counts auth core calls by outcome.
// Labels:
//   - operation: register, login, change_password, update_account
//   - result: ok, or the error kind (e.g. "invalid_credentials", "internal")
var AuthOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_operations_total",
		Help:      "Total number of auth operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// TokensIssuedTotal counts bearer tokens issued at login.
// Label:
//   - role: role claim of the token (e.g. "User", "Driver")
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of bearer tokens issued, by role.",
	},
	[]string{"role"},
)

// PasswordHashDuration measures bcrypt work including time queued for a worker.
// Label:
//   - operation: "hash" or "verify"
var PasswordHashDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "password_hash_duration_seconds",
		Help:      "Duration of password hashing and verification, including pool wait.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
	},
	[]string{"operation"},
)
