package rewards

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewards_logins_total",
		Help: "Total number of processed player logins.",
	})

	claimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_claims_total",
			Help: "Total number of daily reward claim attempts by result.",
		},
		[]string{"result"},
	)

	returnClaimsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewards_return_claims_total",
		Help: "Total number of claimed return rewards.",
	})

	sinkFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_sink_failures_total",
			Help: "Total number of failed reward deliveries by sink.",
		},
		[]string{"sink"},
	)

	milestonesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewards_milestones_total",
		Help: "Total number of reached streak milestones.",
	})

	reloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_reloads_total",
			Help: "Total number of reward table reloads by result.",
		},
		[]string{"result"},
	)
)
