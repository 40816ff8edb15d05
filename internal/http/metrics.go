package http

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("pennywise/http")

// calculatorMetrics are OTel instruments, exported over OTLP when telemetry
// is enabled and no-ops otherwise.
type calculatorMetrics struct {
	keys     metric.Int64Counter
	errors   metric.Int64Counter
	sessions metric.Int64Counter
	duration metric.Float64Histogram
}

func newCalculatorMetrics() (*calculatorMetrics, error) {
	meter := otel.Meter("pennywise/calculator")
	m := &calculatorMetrics{}

	var err error
	m.keys, err = meter.Int64Counter("calculator.keys.total",
		metric.WithDescription("Keypad presses applied, by key kind"),
		metric.WithUnit("{key}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating keys counter: %w", err)
	}

	m.errors, err = meter.Int64Counter("calculator.errors.total",
		metric.WithDescription("Key sequences that left the calculator in the error state"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating error counter: %w", err)
	}

	m.sessions, err = meter.Int64Counter("calculator.requests.total",
		metric.WithDescription("Calculator key sequence requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request counter: %w", err)
	}

	m.duration, err = meter.Float64Histogram("calculator.replay.duration",
		metric.WithDescription("Time spent replaying a key sequence in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("creating replay histogram: %w", err)
	}

	return m, nil
}
