// Package metrics exposes Prometheus collectors for RPCs and ballots.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/officevote/internal/ballot"
)

const namespace = "officevote"

// Metrics holds the collectors. Each instance has its own registry.
type Metrics struct {
	registry *prometheus.Registry

	rpcRequests *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec

	ballots      *prometheus.CounterVec
	votes        prometheus.Counter
	rejections   *prometheus.CounterVec
	txnAttempts  prometheus.Histogram
	sessionsOpen prometheus.GaugeFunc
}

// New creates and registers every collector. sessions, if not nil, reports the
// number of open voting sessions.
func New(sessions func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "RPCs handled, by procedure and result code.",
		}, []string{"procedure", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		ballots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ballots_submitted_total",
			Help:      "Committed ballots, by office and rehearsal flag.",
		}, []string{"office", "rehearsal"}),
		votes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_cast_total",
			Help:      "Candidate votes applied.",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ballot_rejections_total",
			Help:      "Ballots rejected by the engine, by reason.",
		}, []string{"reason"}),
		txnAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ballot_transaction_attempts",
			Help:      "Transaction attempts needed to commit a ballot.",
			Buckets:   []float64{1, 2, 3, 5, 8},
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.rpcRequests, m.rpcDuration,
		m.ballots, m.votes, m.rejections, m.txnAttempts,
	)
	if sessions != nil {
		m.sessionsOpen = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "voting_sessions_open",
			Help:      "Voting sessions currently held in memory.",
		}, func() float64 { return float64(sessions()) })
		m.registry.MustRegister(m.sessionsOpen)
	}
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Interceptor counts and times every RPC.
func (m *Metrics) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure
			resp, err := next(ctx, req)

			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
			}
			m.rpcRequests.WithLabelValues(procedure, code).Inc()
			m.rpcDuration.WithLabelValues(procedure).Observe(time.Since(start).Seconds())
			return resp, err
		}
	}
}

// ObserveBallot records a committed ballot.
func (m *Metrics) ObserveBallot(r *ballot.Receipt) {
	rehearsal := "false"
	if r.Rehearsal {
		rehearsal = "true"
	}
	for _, office := range r.Offices {
		m.ballots.WithLabelValues(string(office), rehearsal).Inc()
	}
	m.votes.Add(float64(r.Votes))
	m.txnAttempts.Observe(float64(r.Attempts))
}

// ObserveRejection records a ballot the engine refused.
func (m *Metrics) ObserveRejection(err error) {
	m.rejections.WithLabelValues(RejectionReason(err)).Inc()
}

// RejectionReason names the class of a SubmitBallot error.
func RejectionReason(err error) string {
	var (
		alreadyVoted *ballot.AlreadyVotedError
		notFound     *ballot.CandidateNotFoundError
		limit        *ballot.SelectionLimitError
		notEligible  *ballot.CandidateNotEligibleError
	)
	switch {
	case errors.As(err, &alreadyVoted):
		return "already_voted"
	case errors.As(err, &notFound):
		return "candidate_not_found"
	case errors.As(err, &limit):
		return "selection_limit"
	case errors.As(err, &notEligible):
		return "not_eligible"
	case errors.Is(err, ballot.ErrVoterNotFound):
		return "voter_not_found"
	case errors.Is(err, ballot.ErrEmptyBallot), errors.Is(err, ballot.ErrUnknownOffice):
		return "invalid"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "error"
}
