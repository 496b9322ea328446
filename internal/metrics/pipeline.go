package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pairwatch"

// Pipeline holds the Prometheus collectors for the discovery pipeline.
// All methods are safe on a nil receiver so components can run without
// metrics.
type Pipeline struct {
	PollDuration       *prometheus.HistogramVec
	PollErrors         *prometheus.CounterVec
	EventsObserved     *prometheus.CounterVec
	PairsClaimed       *prometheus.CounterVec
	DuplicatesSkipped  *prometheus.CounterVec
	EnrichmentFailures *prometheus.CounterVec
	Dispatches         *prometheus.CounterVec
	ArchiveErrors      prometheus.Counter
}

// NewPipeline creates the collectors and registers them with reg.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	p := &Pipeline{
		PollDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "poll_duration_seconds",
				Help:      "Duration of one fetch-claim-enrich-notify cycle per source",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"source"},
		),
		PollErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "poll_errors_total",
				Help:      "Failed event fetches per source",
			},
			[]string{"source"},
		),
		EventsObserved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_observed_total",
				Help:      "PairCreated events returned by the chain per source",
			},
			[]string{"source"},
		),
		PairsClaimed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pairs_claimed_total",
				Help:      "Pairs claimed for notification per source",
			},
			[]string{"source"},
		),
		DuplicatesSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "duplicates_skipped_total",
				Help:      "Events discarded because the pair was already claimed",
			},
			[]string{"source"},
		),
		EnrichmentFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "enrichment_failures_total",
				Help:      "Enrichment lookups that fell back to placeholders",
			},
			[]string{"kind"},
		),
		Dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatches_total",
				Help:      "Notification delivery attempts by result",
			},
			[]string{"result"},
		),
		ArchiveErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "archive_errors_total",
				Help:      "Discoveries that could not be written to the archive",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			p.PollDuration,
			p.PollErrors,
			p.EventsObserved,
			p.PairsClaimed,
			p.DuplicatesSkipped,
			p.EnrichmentFailures,
			p.Dispatches,
			p.ArchiveErrors,
		)
	}
	return p
}

// ObservePoll records the duration of one cycle and whether its fetch failed.
func (p *Pipeline) ObservePoll(source string, elapsed time.Duration, fetchErr error) {
	if p == nil {
		return
	}
	p.PollDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	if fetchErr != nil {
		p.PollErrors.WithLabelValues(source).Inc()
	}
}

// ObserveEvents counts events returned by one fetch.
func (p *Pipeline) ObserveEvents(source string, n int) {
	if p == nil || n == 0 {
		return
	}
	p.EventsObserved.WithLabelValues(source).Add(float64(n))
}

// ObserveClaim counts the outcome of a dedup claim.
func (p *Pipeline) ObserveClaim(source string, claimed bool) {
	if p == nil {
		return
	}
	if claimed {
		p.PairsClaimed.WithLabelValues(source).Inc()
		return
	}
	p.DuplicatesSkipped.WithLabelValues(source).Inc()
}

// EnrichmentFailed counts a lookup that degraded to a placeholder.
func (p *Pipeline) EnrichmentFailed(kind string) {
	if p == nil {
		return
	}
	p.EnrichmentFailures.WithLabelValues(kind).Inc()
}

// ObserveDispatch counts a delivery by its outcome.
func (p *Pipeline) ObserveDispatch(err error) {
	if p == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	p.Dispatches.WithLabelValues(result).Inc()
}

// ArchiveFailed counts an archive write failure.
func (p *Pipeline) ArchiveFailed() {
	if p == nil {
		return
	}
	p.ArchiveErrors.Inc()
}
