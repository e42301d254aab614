package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultStale = "stale"
)

var (
	Fetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wikilist_profile_fetches_total",
		Help: "Profile list fetches by outcome.",
	}, []string{"result"})

	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wikilist_profile_fetch_duration_seconds",
		Help:    "Latency of profile list requests.",
		Buckets: prometheus.DefBuckets,
	})

	DebouncedInputs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wikilist_input_changes_total",
		Help: "Input changes received by search views.",
	})
)

func ObserveFetch(result string, started time.Time) {
	Fetches.WithLabelValues(result).Inc()
	FetchDuration.Observe(time.Since(started).Seconds())
}

// Serve exposes /metrics on addr until ctx is done. An empty addr disables
// the listener.
func Serve(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown", "error", err)
		}
	}()

	slog.Info("Serving metrics", "address", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
