package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "guessgame"

type Metrics struct {
	sessionsStarted prometheus.Counter
	answers         *prometheus.CounterVec
	undos           prometheus.Counter
	outcomes        *prometheus.CounterVec
	teaches         *prometheus.CounterVec
	oracleCalls     *prometheus.CounterVec
	oracleDuration  *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		sessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Games started from the root.",
		}),
		answers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Answers given to questions.",
		}, []string{"side"}),
		undos: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "undos_total",
			Help:      "Undo requests.",
		}),
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Finished games by outcome.",
		}, []string{"outcome"}),
		teaches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "teaches_total",
			Help:      "Attempts to teach the tree a new title.",
		}, []string{"result"}),
		oracleCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_calls_total",
			Help:      "Calls to the game metadata oracle.",
		}, []string{"op", "result"}),
		oracleDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_call_duration_seconds",
			Help:      "Latency of game metadata oracle calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

func (that *Metrics) SessionStarted() {
	that.sessionsStarted.Inc()
}

func (that *Metrics) Answered(side string) {
	that.answers.WithLabelValues(side).Inc()
}

func (that *Metrics) Undone() {
	that.undos.Inc()
}

func (that *Metrics) Finished(outcome string) {
	that.outcomes.WithLabelValues(outcome).Inc()
}

func (that *Metrics) Taught(result string) {
	that.teaches.WithLabelValues(result).Inc()
}

func (that *Metrics) ObserveOracle(op, result string, elapsed time.Duration) {
	that.oracleCalls.WithLabelValues(op, result).Inc()
	that.oracleDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}
