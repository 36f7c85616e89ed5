package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Outcome string

const (
	Success  Outcome = "success"
	Rejected Outcome = "rejected"
	Error    Outcome = "error"

	MetricRequestTimeout     time.Duration = 5 * time.Second
	MetricRequestIdleTimeout time.Duration = 10 * time.Second
)

func (o Outcome) String() string {
	return string(o)
}

var defaultHistogramBucketsSeconds = []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5}

var (
	settlementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "settlement_duration_seconds",
			Help:    "Histogram of result publication durations in seconds, lock to commit.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"outcome"},
	)

	pointsMoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "points_moved_total",
			Help: "Absolute total-point deltas written to history, by entry type.",
		},
		[]string{"entry_type"},
	)

	votesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "votes_total",
			Help: "Votes cast, by outcome.",
		},
		[]string{"outcome"},
	)

	storeFallbackCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_fallback_total",
			Help: "Calls rerouted to the local store because the primary was unavailable.",
		},
		[]string{"op"},
	)

	auditFailureCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "settlement_audit_failure_total",
			Help: "Settled projects whose history does not net to zero.",
		},
	)

	withdrawalsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "withdrawals_total",
			Help: "Withdrawal requests by status transition.",
		},
		[]string{"status"},
	)
)

// Router serves /metrics.
func Router() *chi.Mux {
	r := chi.NewRouter()
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	return r
}

// Serve runs the metrics server until ctx is done.
func Serve(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:         addr,
		Handler:      Router(),
		ReadTimeout:  MetricRequestTimeout,
		WriteTimeout: MetricRequestTimeout,
		IdleTimeout:  MetricRequestIdleTimeout,
	}
	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()
	slog.Info("Starting metrics server", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func RecordSettlement(d time.Duration, outcome Outcome) {
	settlementDuration.WithLabelValues(outcome.String()).Observe(d.Seconds())
}

// RecordPointsMoved adds |delta| to the entry type's counter.
func RecordPointsMoved(entryType string, delta int64) {
	if delta < 0 {
		delta = -delta
	}
	pointsMoved.WithLabelValues(entryType).Add(float64(delta))
}

func RecordVote(outcome Outcome) {
	votesCounter.WithLabelValues(outcome.String()).Inc()
}

func RecordStoreFallback(op string) {
	storeFallbackCounter.WithLabelValues(op).Inc()
}

func RecordAuditFailure() {
	auditFailureCounter.Inc()
}

func RecordWithdrawal(status string) {
	withdrawalsCounter.WithLabelValues(status).Inc()
}
