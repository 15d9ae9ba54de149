package metrics

import (
	"context"

	"go.uber.org/fx"

	config "github.com/tigerroll/switchprep/pkg/batch/core/config"
	metrics "github.com/tigerroll/switchprep/pkg/batch/core/metrics"
	logger "github.com/tigerroll/switchprep/pkg/batch/support/util/logger"
)

// NewTracer returns the SDK tracer when tracing is enabled, otherwise the no-op tracer.
func NewTracer(lc fx.Lifecycle, cfg *config.Config) metrics.Tracer {
	if !cfg.SwitchPrep.Batch.TracingEnabled {
		return metrics.NewNoOpTracer()
	}
	tracer := NewOpenTelemetryTracer()
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tracer.Shutdown(ctx)
		},
	})
	return tracer
}

// NewMetricRecorder exposes the Prometheus recorder as metrics.MetricRecorder.
// When a metrics textfile is configured it is written on shutdown.
func NewMetricRecorder(lc fx.Lifecycle, cfg *config.Config, recorder *PrometheusRecorder) metrics.MetricRecorder {
	if path := cfg.SwitchPrep.Batch.MetricsTextfile; path != "" {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if err := recorder.WriteTextfile(path); err != nil {
					logger.Errorf("Failed to write metrics textfile '%s': %v", path, err)
					return err
				}
				logger.Infof("Metrics written to '%s'.", path)
				return nil
			},
		})
	}
	return recorder
}

// Module provides the Prometheus recorder and the tracer.
var Module = fx.Options(
	fx.Provide(NewPrometheusRecorder),
	fx.Provide(NewMetricRecorder),
	fx.Provide(NewTracer),
)
