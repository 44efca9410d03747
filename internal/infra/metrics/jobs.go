package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsProcessedTotal, webhookEventsTotal, repliesTotal) }

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "image_jobs_processed_total",
		Help: "Total number of image jobs processed, labeled by outcome and failure class.",
	},
	[]string{"outcome", "class"}, // outcome: 'delivered'|'failed', class: error taxonomy or 'none'
)

var webhookEventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Inbound webhook events, labeled by classified kind.",
	},
	[]string{"kind"}, // 'image', 'command', 'instruction', 'unknown', 'duplicate'
)

var repliesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "replies_total",
		Help: "Outbound reply deliveries, labeled by status.",
	},
	[]string{"status"}, // 'sent', 'failed'
)

func IncJob(outcome, class string) {
	if class == "" {
		class = "none"
	}
	jobsProcessedTotal.WithLabelValues(norm(outcome), norm(class)).Inc()
}

func IncWebhookEvent(kind string) {
	webhookEventsTotal.WithLabelValues(norm(kind)).Inc()
}

func IncReply(status string) {
	repliesTotal.WithLabelValues(norm(status)).Inc()
}
