package shellcheck

import (
	"context"
	"sync"
	"time"

	"github.com/corymhall/shlsp/projector"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("shlsp.shellcheck")
	meter  = otel.Meter("shlsp.shellcheck")
)

var (
	runLatency metric.Float64Histogram
	runTotal   metric.Int64Counter
	findings   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		runLatency, err = meter.Float64Histogram(
			"shellcheck_duration_seconds",
			metric.WithDescription("Duration of shellcheck runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		runTotal, err = meter.Int64Counter(
			"shellcheck_runs_total",
			metric.WithDescription("Total number of shellcheck runs"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		findings, err = meter.Int64Counter(
			"shellcheck_findings_total",
			metric.WithDescription("Total number of findings by severity"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startRunSpan(ctx context.Context, shell string, revision uint64) (context.Context, trace.Span) {
	return tracer.Start(ctx, "shellcheck.Run",
		trace.WithAttributes(
			attribute.String("shellcheck.shell", shell),
			attribute.Int64("shellcheck.revision", int64(revision)),
		),
	)
}

func recordRunMetrics(ctx context.Context, shell string, duration time.Duration, diags []projector.Diagnostic, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("shell", shell),
		attribute.Bool("success", success),
	)
	runLatency.Record(ctx, duration.Seconds(), attrs)
	runTotal.Add(ctx, 1, attrs)

	counts := map[projector.Severity]int64{}
	for _, d := range diags {
		counts[projector.SeverityOf(d.Level)]++
	}
	for sev, n := range counts {
		findings.Add(ctx, n, metric.WithAttributes(attribute.String("severity", sev.String())))
	}
}
