package observability

import (
	"context"

	"github.com/aretw0/tether/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors fed by container lifecycle hooks.
type Metrics struct {
	Dispatches         *prometheus.CounterVec
	ActionDuration     *prometheus.HistogramVec
	Commits            prometheus.Counter
	NotifyDuration     prometheus.Histogram
	SubscriberFailures prometheus.Counter
	Errors             prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg (nil skips registration).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tether_dispatches_total",
				Help: "Total number of dispatched actions",
			},
			[]string{"action", "outcome"},
		),
		ActionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "tether_action_duration_seconds",
				Help: "Duration of action executions, notification rounds included",
			},
			[]string{"action"},
		),
		Commits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tether_commits_total",
			Help: "Total number of committed snapshots",
		}),
		NotifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "tether_notify_duration_seconds",
			Help: "Duration of notification rounds",
		}),
		SubscriberFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tether_subscriber_failures_total",
			Help: "Total number of subscriber calls that failed",
		}),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tether_queued_errors_total",
			Help: "Total number of failures of queued work",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Dispatches, m.ActionDuration, m.Commits, m.NotifyDuration, m.SubscriberFailures, m.Errors)
	}
	return m
}

// Hooks returns lifecycle hooks updating the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDispatch: func(_ context.Context, e *domain.DispatchEvent) {
			m.Dispatches.WithLabelValues(e.Record.Action, string(e.Record.Outcome)).Inc()
			if e.Record.Outcome != domain.OutcomeRejected {
				m.ActionDuration.WithLabelValues(e.Record.Action).Observe(e.Record.Duration.Seconds())
			}
		},
		OnCommit: func(context.Context, *domain.CommitEvent) {
			m.Commits.Inc()
		},
		OnNotify: func(_ context.Context, e *domain.NotifyEvent) {
			m.NotifyDuration.Observe(e.Duration.Seconds())
			m.SubscriberFailures.Add(float64(e.Failed))
		},
		OnError: func(context.Context, *domain.ErrorEvent) {
			m.Errors.Inc()
		},
	}
}
