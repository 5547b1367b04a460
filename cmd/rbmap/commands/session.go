package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/rbmap/internal/workload"
	"github.com/Sumatoshi-tech/rbmap/pkg/config"
	"github.com/Sumatoshi-tech/rbmap/pkg/observability"
	"github.com/Sumatoshi-tech/rbmap/pkg/version"
)

const (
	metricsPath              = "/metrics"
	metricsReadHeaderTimeout = 5 * time.Second
)

// session bundles what a workload command needs: configuration, telemetry
// and a runner wired to both.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	runner   *workload.Runner
	shutdown []func(ctx context.Context) error

	// metricsURL is set when a Prometheus endpoint is being served.
	metricsURL string
}

// openSession loads the configuration, lets override adjust it, validates
// the result and initializes telemetry.
func openSession(cmd *cobra.Command, globals *Globals, override func(cfg *config.Config)) (*session, error) {
	cfg, err := config.LoadConfig(globals.ConfigPath)
	if err != nil {
		return nil, err
	}

	if override != nil {
		override(cfg)
	}

	err = config.Validate(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, err
	}

	switch {
	case globals.Verbose:
		level = slog.LevelDebug
	case globals.Quiet:
		level = slog.LevelError
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = cfg.Telemetry.Environment
	obsCfg.Command = cmd.Name()
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Log.JSON

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	sess := &session{
		cfg:      cfg,
		logger:   observability.NewLogger(obsCfg, cmd.ErrOrStderr()),
		shutdown: []func(ctx context.Context) error{providers.Shutdown},
	}

	meter := providers.Meter

	if cfg.Telemetry.MetricsAddr != "" {
		meter, err = sess.serveMetrics(cfg.Telemetry.MetricsAddr)
		if err != nil {
			return nil, errors.Join(err, sess.close(cmd.Context()))
		}
	}

	metrics, err := observability.NewTreeMetrics(meter)
	if err != nil {
		return nil, errors.Join(err, sess.close(cmd.Context()))
	}

	sess.runner = workload.NewRunner(sess.logger, providers.Tracer, metrics)

	return sess, nil
}

// serveMetrics exposes a Prometheus scrape endpoint until the session closes.
func (s *session) serveMetrics(addr string) (metric.Meter, error) {
	provider, handler, err := observability.PrometheusProvider()
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("listen on %s: %w", addr, err), provider.Shutdown(context.Background()))
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath, handler)

	server := &http.Server{Handler: mux, ReadHeaderTimeout: metricsReadHeaderTimeout}

	go func() {
		serveErr := server.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("metrics server stopped", "error", serveErr)
		}
	}()

	s.metricsURL = "http://" + listener.Addr().String() + metricsPath
	s.shutdown = append(s.shutdown, server.Shutdown, provider.Shutdown)
	s.logger.Info("serving metrics", "url", s.metricsURL)

	return provider.Meter("github.com/Sumatoshi-tech/rbmap"), nil
}

func (s *session) close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error

	for idx := len(s.shutdown) - 1; idx >= 0; idx-- {
		errs = append(errs, s.shutdown[idx](ctx))
	}

	return errors.Join(errs...)
}
