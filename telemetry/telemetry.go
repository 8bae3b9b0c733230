// Package telemetry installs the OpenTelemetry providers used by the
// shellcheck runner and exposes collected metrics over HTTP.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/corymhall/shlsp/debug"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

// ErrUnknownExporter is returned for exporter names Init does not know.
var ErrUnknownExporter = errors.New("unknown exporter")

// Config holds the [telemetry] table of the configuration file.
type Config struct {
	// MetricExporter is one of none, prometheus or stdout.
	MetricExporter string `toml:"metric_exporter" json:"metric_exporter"`
	// TraceExporter is one of none or stdout.
	TraceExporter string `toml:"trace_exporter" json:"trace_exporter"`
	// MetricsAddr is the listen address of the /metrics endpoint when the
	// prometheus exporter is selected.
	MetricsAddr string `toml:"metrics_addr" json:"metrics_addr"`
}

func DefaultConfig() Config {
	return Config{
		MetricExporter: "none",
		TraceExporter:  "none",
	}
}

func (c Config) Validate() error {
	switch c.MetricExporter {
	case "", "none", "prometheus", "stdout":
	default:
		return fmt.Errorf("%w: metric exporter %q", ErrUnknownExporter, c.MetricExporter)
	}
	switch c.TraceExporter {
	case "", "none", "stdout":
	default:
		return fmt.Errorf("%w: trace exporter %q", ErrUnknownExporter, c.TraceExporter)
	}
	return nil
}

// Telemetry owns the installed providers.
type Telemetry struct {
	shutdownFuncs []func(context.Context) error
	handler       http.Handler
	addr          string
}

// Init installs global tracer and meter providers for cfg. Stdout
// exporters write to out, never to the process stdout, which carries the
// language server protocol.
func Init(ctx context.Context, cfg Config, version string, out io.Writer) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &Telemetry{addr: cfg.MetricsAddr}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", "shlsp"),
		attribute.String("service.version", version),
	)

	if cfg.TraceExporter == "stdout" {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(out))
		if err != nil {
			return nil, fmt.Errorf("create trace exporter: %w", err)
		}
		tp := trace.NewTracerProvider(
			trace.WithBatcher(exporter),
			trace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		t.shutdownFuncs = append(t.shutdownFuncs, tp.Shutdown)
	}

	var reader metric.Reader
	switch cfg.MetricExporter {
	case "prometheus":
		reg := prometheus.NewRegistry()
		exporter, err := promexporter.New(promexporter.WithRegisterer(reg))
		if err != nil {
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}
		t.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		reader = exporter
	case "stdout":
		exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(out))
		if err != nil {
			return nil, fmt.Errorf("create stdout metric exporter: %w", err)
		}
		reader = metric.NewPeriodicReader(exporter)
	}
	if reader != nil {
		mp := metric.NewMeterProvider(
			metric.WithResource(res),
			metric.WithReader(reader),
		)
		otel.SetMeterProvider(mp)
		t.shutdownFuncs = append(t.shutdownFuncs, mp.Shutdown)
	}

	debug.Debug.Log(ctx, "telemetry initialised", "metrics", cfg.MetricExporter, "traces", cfg.TraceExporter)
	return t, nil
}

// MetricsHandler serves the prometheus exposition format, or is nil when
// the prometheus exporter is not selected.
func (t *Telemetry) MetricsHandler() http.Handler {
	return t.handler
}

// Serve listens on the configured metrics address until ctx is done. It
// returns immediately when there is nothing to serve.
func (t *Telemetry) Serve(ctx context.Context) error {
	if t.handler == nil || t.addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", t.handler)
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	ln, err := net.Listen("tcp", t.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", t.addr, err)
	}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown flushes and stops every installed provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range t.shutdownFuncs {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
