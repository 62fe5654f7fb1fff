// Package metrics exports matcher activity to Prometheus.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/endorses/ackit/internal/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry with the matcher metrics.
type Collector struct {
	registry *prometheus.Registry

	buildsTotal   *prometheus.CounterVec
	buildDuration prometheus.Histogram
	patterns      prometheus.Gauge
	states        prometheus.Gauge
	scansTotal    prometheus.Counter
	scannedRunes  prometheus.Counter
	matchesTotal  prometheus.Counter
	reloadsTotal  *prometheus.CounterVec
}

// NewCollector creates a collector and registers its metrics.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		buildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ackit_builds_total",
				Help: "Total number of automaton builds",
			},
			[]string{"result"},
		),
		buildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ackit_build_duration_seconds",
				Help:    "Time spent building automata",
				Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5, 30},
			},
		),
		patterns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ackit_patterns",
			Help: "Number of patterns in the active automaton",
		}),
		states: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ackit_states",
			Help: "Number of states in the active automaton",
		}),
		scansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ackit_scans_total",
			Help: "Total number of texts scanned",
		}),
		scannedRunes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ackit_scanned_runes_total",
			Help: "Total number of runes scanned",
		}),
		matchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ackit_matches_total",
			Help: "Total number of matches reported",
		}),
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ackit_dictionary_reloads_total",
				Help: "Total number of dictionary reloads",
			},
			[]string{"result"},
		),
	}

	c.registry.MustRegister(
		c.buildsTotal,
		c.buildDuration,
		c.patterns,
		c.states,
		c.scansTotal,
		c.scannedRunes,
		c.matchesTotal,
		c.reloadsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveBuild records one automaton build. Its signature matches
// ahocorasick.BuildObserver.
func (c *Collector) ObserveBuild(patterns, states int, duration time.Duration, err error) {
	c.buildsTotal.WithLabelValues(result(err)).Inc()
	if err != nil {
		return
	}
	c.buildDuration.Observe(duration.Seconds())
	c.patterns.Set(float64(patterns))
	c.states.Set(float64(states))
}

// ObserveScan records one scanned text.
func (c *Collector) ObserveScan(runes, matches int) {
	c.scansTotal.Inc()
	c.scannedRunes.Add(float64(runes))
	c.matchesTotal.Add(float64(matches))
}

// ObserveReload records one dictionary reload attempt.
func (c *Collector) ObserveReload(err error) {
	c.reloadsTotal.WithLabelValues(result(err)).Inc()
}

// Handler returns the HTTP handler serving /metrics and /health.
func (c *Collector) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

// Serve runs the metrics server on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return c.serve(ctx, listener)
}

func (c *Collector) serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:      c.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "Starting Prometheus metrics server", "addr", listener.Addr().String())
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.ErrorContext(ctx, "Error shutting down Prometheus server", "error", err)
			return err
		}
		<-errCh
		return nil
	}
}
