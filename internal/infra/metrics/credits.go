package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(creditsSpentTotal, creditsGrantedTotal, creditPrecheckBlocks) }

var creditsSpentTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "credits_spent_total",
		Help: "Credits debited for delivered artifacts.",
	},
)

var creditsGrantedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "credits_granted_total",
		Help: "Credits added to balances, labeled by source.",
	},
	[]string{"source"}, // 'signup', 'purchase'
)

var creditPrecheckBlocks = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "credit_precheck_blocks_total",
		Help: "Jobs blocked before the transform call for lack of credits.",
	},
)

func AddCreditsSpent(n int) {
	creditsSpentTotal.Add(float64(n))
}

func AddCreditsGranted(source string, n int) {
	creditsGrantedTotal.WithLabelValues(norm(source)).Add(float64(n))
}

func PrecheckBlocked() {
	creditPrecheckBlocks.Inc()
}
