// Package metrics holds the Prometheus collectors shared by background jobs
// and delivery code.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	JobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_runs_total",
			Help: "Scheduled job runs by job and outcome",
		},
		[]string{"job", "outcome"},
	)
	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "Duration of scheduled job runs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)
	ChecklistRecordsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checklist_records_created_total",
			Help: "Completion records created by source",
		},
		[]string{"source"},
	)
	DeliveryFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_failures_total",
			Help: "Failed email, gateway and push deliveries",
		},
		[]string{"channel"},
	)
	DispatchDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_dropped_total",
			Help: "Jobs dropped because the dispatch queue was full",
		},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(JobRuns, JobDuration, ChecklistRecordsCreated, DeliveryFailures, DispatchDropped)
}
