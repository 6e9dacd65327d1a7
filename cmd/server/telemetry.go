package main

import (
	"context"

	"github.com/erp/marketsync/internal/infrastructure/config"
	"github.com/erp/marketsync/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// observability bundles the OTEL providers, the profiler and the pricing
// instruments
type observability struct {
	providers *telemetry.Providers
	profiler  *telemetry.Profiler
	metrics   *telemetry.PricingMetrics
}

// setupTelemetry starts exporters and the profiler. The returned logger also
// ships its entries to the collector when log export is on.
func setupTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*observability, *zap.Logger, error) {
	tc := cfg.Telemetry
	providers, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:           tc.Enabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		Insecure:          tc.Insecure,
		ServiceName:       cfg.App.Name,
		ServiceVersion:    version,
		SamplingRatio:     tc.SamplingRatio,
		MetricsInterval:   tc.MetricsInterval,
		LogsEnabled:       tc.LogsEnabled,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	o := &observability{providers: providers}

	if o.metrics, err = telemetry.NewPricingMetrics(providers.Meter()); err != nil {
		return nil, nil, err
	}
	if o.profiler, err = telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           tc.Profiler.Enabled,
		ServerAddress:     tc.Profiler.ServerAddress,
		ApplicationName:   cfg.App.Name,
		BasicAuthUser:     tc.Profiler.BasicAuthUser,
		BasicAuthPassword: tc.Profiler.BasicAuthPassword,
	}, log); err != nil {
		return nil, nil, err
	}
	if tc.Profiler.SpanProfiles && o.profiler.IsRunning() {
		providers.EnableSpanProfiles()
	}

	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	return o, providers.BridgeLogger(log, cfg.App.Name, level), nil
}

// shutdown stops the profiler and flushes the exporters
func (o *observability) shutdown(ctx context.Context, log *zap.Logger) {
	if err := o.profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := o.providers.Shutdown(ctx); err != nil {
		log.Error("Error flushing telemetry", zap.Error(err))
	}
}
