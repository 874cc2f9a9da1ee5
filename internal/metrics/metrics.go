// Package metrics exposes prometheus collectors for action and dispatch
// outcomes. Collectors register on the default registry; hosts that front the
// SDK with an HTTP layer can expose them via promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActionsTotal counts engine actions by kind and outcome (ok,
	// policy_violation, no_provider, provider_error, compose_rejected,
	// dispatch_error).
	ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "strata",
		Subsystem: "engine",
		Name:      "actions_total",
		Help:      "Actions executed through the engine, by kind and outcome.",
	}, []string{"action", "outcome"})

	// DispatchesTotal counts dispatched plans by mode and outcome
	// (confirmed, failed, partial).
	DispatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "strata",
		Subsystem: "dispatch",
		Name:      "plans_total",
		Help:      "Transaction plans dispatched, by mode and outcome.",
	}, []string{"mode", "outcome"})

	// PlanSteps observes how many steps composed plans carry.
	PlanSteps = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "strata",
		Subsystem: "dispatch",
		Name:      "plan_steps",
		Help:      "Number of steps per dispatched plan.",
		Buckets:   []float64{1, 2},
	})
)
