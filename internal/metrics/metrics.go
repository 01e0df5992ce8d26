package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TopupDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photoquest_topup_decisions_total",
			Help: "Top-up approve/reject attempts by outcome",
		},
		[]string{"decision", "outcome"},
	)
	TopupSubmissions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "photoquest_topup_submissions_total",
			Help: "Top-up requests accepted for review",
		},
	)
	CoinsCredited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "photoquest_coins_credited_total",
			Help: "Coins credited to users through approved top-ups",
		},
	)
	QuestJoins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photoquest_quest_joins_total",
			Help: "Quest join attempts by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(TopupDecisions, TopupSubmissions, CoinsCredited, QuestJoins)
}
