// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks admin HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "admin_request_duration_seconds",
			Help:    "Admin HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total admin HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_requests_total",
			Help: "Total admin HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// TicketsOpened tracks tickets created.
	TicketsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_opened_total",
			Help: "Total tickets opened",
		},
	)

	// TicketsClosed tracks tickets closed, by how they were closed.
	TicketsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_closed_total",
			Help: "Total tickets closed",
		},
		[]string{"reason"},
	)

	// TicketsLive tracks the number of live ticket sessions.
	TicketsLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tickets_live",
			Help: "Number of live ticket sessions",
		},
	)

	// OpenRejections tracks open requests that did not create a ticket.
	OpenRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_open_rejections_total",
			Help: "Open requests that did not create a ticket",
		},
		[]string{"reason"},
	)

	// Suspensions tracks actor suspension requests by result.
	Suspensions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "actor_suspensions_total",
			Help: "Actor suspension requests",
		},
		[]string{"result"},
	)

	// CompletionDuration tracks completion service latency.
	CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "completion_duration_seconds",
			Help:    "Completion service response duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "status"},
	)

	// CompletionTokens tracks tokens exchanged with the completion service.
	CompletionTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "completion_tokens_total",
			Help: "Total completion tokens processed",
		},
		[]string{"provider", "direction"},
	)

	// ChunksSent tracks outbound message chunks.
	ChunksSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "message_chunks_sent_total",
			Help: "Outbound message chunks sent",
		},
	)

	// CountingSubmissions tracks counting verdicts.
	CountingSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "counting_submissions_total",
			Help: "Counting channel submissions by verdict",
		},
		[]string{"verdict"},
	)

	// ReaperSweeps tracks inactivity sweeps and how many tickets each closed.
	ReaperSweeps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reaper_sweeps_total",
			Help: "Inactivity reaper sweeps",
		},
	)

	// ScheduledTasks tracks pending delayed tasks.
	ScheduledTasks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduled_tasks_pending",
			Help: "Delayed tasks waiting to run",
		},
	)
)

// RecordRequest records metrics for an admin HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordCompletion records metrics for a completion call.
func RecordCompletion(provider, status string, duration float64, tokensIn, tokensOut int) {
	CompletionDuration.WithLabelValues(provider, status).Observe(duration)
	CompletionTokens.WithLabelValues(provider, "in").Add(float64(tokensIn))
	CompletionTokens.WithLabelValues(provider, "out").Add(float64(tokensOut))
}

// RecordTicketClosed records a ticket leaving the live set.
func RecordTicketClosed(reason string) {
	TicketsClosed.WithLabelValues(reason).Inc()
	TicketsLive.Dec()
}
