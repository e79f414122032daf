package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterMutations         *prometheus.CounterVec
	CounterPersistFailures   *prometheus.CounterVec
	CounterCommits           *prometheus.CounterVec
	CounterSetsConfirmed     *prometheus.CounterVec
	CounterRestTimersElapsed prometheus.Counter
	CounterRemoteRequests    *prometheus.CounterVec
	CounterRequests          *prometheus.CounterVec

	// gauges
	GaugeActiveSessions  *prometheus.GaugeVec
	GaugeRestTimerActive prometheus.Gauge

	// histograms
	HistCommitDuration prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("liftlog", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("liftlog", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterMutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "session_mutations",
			Help:      "The total number of applied session mutations",
		}, []string{"kind", "op"}),
		CounterPersistFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "persist_failures",
			Help:      "Local session writes that failed",
		}, []string{"kind"}),
		CounterCommits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "commits",
			Help:      "Commits sent to the remote API",
		}, []string{"kind", "result"}),
		CounterSetsConfirmed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sets_confirmed",
			Help:      "The total number of confirmed sets",
		}, []string{"kind"}),
		CounterRestTimersElapsed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rest_timers_elapsed",
			Help:      "Rest countdowns that ran to zero",
		}),
		CounterRemoteRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "remote_requests",
			Help:      "Requests made to the remote API",
		}, []string{"op", "result"}),
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request",
			Help:      "The total number of incoming requests",
		}, []string{"method", "route", "status"}),
		GaugeActiveSessions: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_sessions",
			Help:      "Whether a session of the kind is in progress",
		}, []string{"kind"}),
		GaugeRestTimerActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rest_timer_active",
			Help:      "Whether a rest countdown is running",
		}),
		HistCommitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "commit_duration_seconds",
			Help:      "Duration of commit round trips",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
