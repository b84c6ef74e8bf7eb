// Package metrics provides Prometheus instrumentation for legalyze.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DocumentsTotal counts processed documents by outcome.
	DocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legalyze",
			Name:      "documents_total",
			Help:      "Total documents processed by status.",
		},
		[]string{"status"},
	)

	// DocumentsByLevel counts analysed documents by risk level.
	DocumentsByLevel = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legalyze",
			Name:      "documents_by_level_total",
			Help:      "Total analysed documents by risk level.",
		},
		[]string{"level"},
	)

	// LLMRequestsTotal counts language-model calls.
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legalyze",
			Name:      "llm_requests_total",
			Help:      "Total LLM requests by provider, operation, and status.",
		},
		[]string{"provider", "operation", "status"},
	)

	// LLMCacheHits counts responses served from cache.
	LLMCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legalyze",
			Name:      "llm_cache_hits_total",
			Help:      "Total LLM responses served from cache by operation.",
		},
		[]string{"operation"},
	)

	// RiskScore observes total document risk scores.
	RiskScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "legalyze",
			Name:      "risk_score",
			Help:      "Distribution of document risk scores.",
			Buckets:   []float64{0, 5, 10, 20, 35, 50, 75, 100, 150, 250},
		},
	)

	// DocumentDuration observes end-to-end analysis time.
	DocumentDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "legalyze",
			Name:      "document_duration_seconds",
			Help:      "Document analysis duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	// BatchInFlight tracks documents currently being processed.
	BatchInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "legalyze",
			Name:      "batch_in_flight",
			Help:      "Number of documents currently being processed.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		DocumentsTotal,
		DocumentsByLevel,
		LLMRequestsTotal,
		LLMCacheHits,
		RiskScore,
		DocumentDuration,
		BatchInFlight,
	)
}

// ObserveDocument records the outcome of one document analysis
func ObserveDocument(status, level string, score int, elapsed time.Duration) {
	DocumentsTotal.WithLabelValues(status).Inc()
	DocumentDuration.Observe(elapsed.Seconds())
	if status != StatusOK {
		return
	}
	DocumentsByLevel.WithLabelValues(level).Inc()
	RiskScore.Observe(float64(score))
}

// ObserveLLM records one language-model request
func ObserveLLM(provider, operation string, err error) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	LLMRequestsTotal.WithLabelValues(provider, operation, status).Inc()
}

// Status label values
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve runs a /metrics endpoint on addr until ctx is cancelled
func Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
