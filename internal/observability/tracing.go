package observability

import (
	"context"

	"gifts-assessment-service/internal/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TracingConfig toggles span export.
type TracingConfig struct {
	Enabled     bool
	SampleRatio float64
}

// InitTracing installs a global tracer provider exporting to stdout. The
// returned shutdown function is never nil.
func InitTracing(cfg TracingConfig, log *logger.Logger) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop, nil
	}
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return noop, err
	}
	ratio := cfg.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)
	otel.SetTracerProvider(tp)
	if log != nil {
		log.Info("tracing initialized", "exporter", "stdout", "ratio", ratio)
	}
	return tp.Shutdown, nil
}
