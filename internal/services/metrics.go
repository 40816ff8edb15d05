package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("pennywise/services")

var (
	recurringRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pennywise",
		Subsystem: "recurring",
		Name:      "runs_total",
		Help:      "Recurrence evaluation cycles by result.",
	}, []string{"result"})

	recurringGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pennywise",
		Subsystem: "recurring",
		Name:      "generated_total",
		Help:      "Expenses generated from recurring rules, by recurrence type.",
	}, []string{"type"})

	recurringDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pennywise",
		Subsystem: "recurring",
		Name:      "run_duration_seconds",
		Help:      "Duration of a recurrence evaluation cycle.",
		Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
	})

	schedulerCollapsed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pennywise",
		Subsystem: "scheduler",
		Name:      "collapsed_triggers_total",
		Help:      "Triggers that joined an evaluation already in flight.",
	})

	expensesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pennywise",
		Subsystem: "expenses",
		Name:      "events_published_total",
		Help:      "Expense events handed to the broker, by event and result.",
	}, []string{"event", "result"})
)
