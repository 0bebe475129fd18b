// Package metrics содержит счётчики prometheus для движка квот.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GraceGrantsTotal количество выданных грейс-периодов.
	GraceGrantsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quota_grace_grants_total",
		Help: "Number of grace periods granted on downgrade.",
	})

	// SweepsTotal количество запусков свипера.
	SweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quota_sweeps_total",
		Help: "Number of grace period sweep runs.",
	})

	// AccountsExpiredTotal количество финализированных аккаунтов.
	AccountsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quota_accounts_expired_total",
		Help: "Number of accounts whose grace period was finalized by the sweeper.",
	})

	// SweepErrorsTotal количество ошибок обработки отдельных аккаунтов.
	SweepErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quota_sweep_errors_total",
		Help: "Number of per-account errors recorded during sweeps.",
	})
)
