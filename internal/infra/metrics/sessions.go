package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(sessionOperationsTotal, sessionsRevokedTotal)
}

var (
	sessionOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_operations_total",
			Help: "Session lifecycle operations by operation and result.",
		},
		[]string{"operation", "result"}, // e.g., operation="info", result="ok"
	)

	sessionsRevokedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_revoked_deleted_total",
			Help: "Accounts deleted because the remote side revoked their session.",
		},
	)
)

func IncSessionOperation(operation, result string) {
	sessionOperationsTotal.WithLabelValues(norm(operation), norm(result)).Inc()
}

func IncSessionRevokedDeleted() {
	sessionsRevokedTotal.Inc()
}
