// Package telemetry exposes the loop state as Prometheus metrics.
package telemetry

import (
	"context"
	"net"
	"net/http"

	"codeberg.org/mutker/pidctl/internal/errors"
	"codeberg.org/mutker/pidctl/internal/logger"
	"codeberg.org/mutker/pidctl/internal/record"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Service records loop observations into a private registry and
// optionally serves it over HTTP. It implements record.Sink.
type Service struct {
	registry *prometheus.Registry

	current    prometheus.Gauge
	corrected  prometheus.Gauge
	elapsed    prometheus.Gauge
	iterations prometheus.Counter
	fallbacks  *prometheus.CounterVec

	server   *http.Server
	listener net.Listener
}

func New(cfg Config) (*Service, error) {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	labels := prometheus.Labels{"role": cfg.Role, "channel": cfg.Channel}

	s := &Service{
		registry: registry,
		current: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "loop",
			Name:        "current_value",
			Help:        "Shared value read at the start of the last iteration",
			ConstLabels: labels,
		}),
		corrected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "loop",
			Name:        "corrected_value",
			Help:        "Value written back at the end of the last iteration",
			ConstLabels: labels,
		}),
		elapsed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "loop",
			Name:        "elapsed_seconds",
			Help:        "Seconds since the loop started",
			ConstLabels: labels,
		}),
		iterations: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "loop",
			Name:        "iterations_total",
			Help:        "Completed loop iterations",
			ConstLabels: labels,
		}),
		fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "channel",
			Name:        "fallbacks_total",
			Help:        "Reads recovered with the last known value",
			ConstLabels: labels,
		}, []string{"reason"}),
	}
	if cfg.Setpoint != nil {
		factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "loop",
			Name:        "setpoint",
			Help:        "Target value of the controller",
			ConstLabels: labels,
		}).Set(*cfg.Setpoint)
	}

	if cfg.ListenAddr != "" {
		if err := s.serve(cfg.ListenAddr); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Service) serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.New().Wrap(ErrListenFailed, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))

	s.listener = ln
	s.server = &http.Server{Handler: mux}

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Telemetry server stopped")
		}
	}()

	logger.Info().Str("addr", ln.Addr().String()).Msg("Serving metrics")

	return nil
}

// Addr returns the listening address, or "" when not serving.
func (s *Service) Addr() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

func (s *Service) Append(_ context.Context, rec record.Record) error {
	s.current.Set(rec.Current)
	s.corrected.Set(rec.Corrected)
	s.elapsed.Set(rec.Elapsed.Seconds())
	s.iterations.Inc()

	return nil
}

// ObserveFallback counts a read recovered with the last known value.
func (s *Service) ObserveFallback(_, reason string) {
	s.fallbacks.WithLabelValues(reason).Inc()
}

func (s *Service) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return errors.New().Wrap(ErrServiceShutdown, err)
	}

	return nil
}
