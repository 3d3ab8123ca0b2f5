package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Application metrics for the duel orchestrator. Registered by the metrics
// server during setup (see internal/server/metrics.go).

var (
	// DuelsStartedTotal counts duel sessions that passed consent and cooldown
	// and reached the engine, labeled by duel mode.
	DuelsStartedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duel_sessions_started_total",
			Help: "Total number of duel sessions handed to the battle engine",
		},
		[]string{"mode"},
	)

	// DuelsSettledTotal counts duel sessions that completed settlement.
	DuelsSettledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duel_sessions_settled_total",
			Help: "Total number of duel sessions that completed settlement",
		},
		[]string{"mode"},
	)

	// CooldownDenialsTotal counts authorization denials by reason.
	CooldownDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duel_cooldown_denials_total",
			Help: "Total number of cooldown gate denials",
		},
		[]string{"reason"},
	)

	// EngineFaultsTotal counts engine execution faults by class.
	EngineFaultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duel_engine_faults_total",
			Help: "Total number of battle engine faults",
		},
		[]string{"class"},
	)
)

// All returns every collector this package defines, for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		DuelsStartedTotal,
		DuelsSettledTotal,
		CooldownDenialsTotal,
		EngineFaultsTotal,
	}
}
