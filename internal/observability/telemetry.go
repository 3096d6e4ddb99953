// Package observability настраивает трассировку OpenTelemetry для демона:
// спаны REST API (otelgin) и операций хранилища конфигурации.
package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/modrt/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// DefaultEndpoint - адрес OTLP HTTP коллектора по умолчанию.
const DefaultEndpoint = "localhost:4318"

// Options - параметры трассировки.
type Options struct {
	Enabled     bool
	ServiceName string
	Version     string
	// Endpoint - host:port OTLP HTTP. Пусто - DefaultEndpoint.
	Endpoint string
	Insecure bool
	// SampleRatio - доля записываемых корневых спанов, 0 или 1 - все.
	SampleRatio float64
}

// ShutdownFunc сбрасывает буферы экспортера и останавливает провайдер.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// sampler выбирает семплер по доле; дочерние спаны следуют решению родителя.
func (o Options) sampler() (sdktrace.Sampler, error) {
	switch {
	case o.SampleRatio < 0 || o.SampleRatio > 1:
		return nil, fmt.Errorf("доля семплирования вне [0, 1]: %v", o.SampleRatio)
	case o.SampleRatio == 0 || o.SampleRatio == 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample()), nil
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(o.SampleRatio)), nil
}

// InitTelemetry настраивает OTLP экспортер, глобальный TracerProvider и
// распространение контекста W3C. При выключенной трассировке остаётся
// no-op провайдер, а shutdown ничего не делает.
func InitTelemetry(ctx context.Context, opts Options) (ShutdownFunc, error) {
	if !opts.Enabled {
		logging.Debug("OpenTelemetry отключён")
		return noopShutdown, nil
	}
	if opts.ServiceName == "" {
		return nil, errors.New("не задано имя сервиса для трассировки")
	}
	sampler, err := opts.sampler()
	if err != nil {
		return nil, err
	}
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}

	expOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		expOpts = append(expOpts, otlptracehttp.WithInsecure())
	}
	exp, err := otlptracehttp.New(ctx, expOpts...)
	if err != nil {
		return nil, fmt.Errorf("OTLP экспортер: %w", err)
	}

	attrs := []resource.Option{resource.WithAttributes(semconv.ServiceName(opts.ServiceName))}
	if opts.Version != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.ServiceVersion(opts.Version)))
	}
	res, err := resource.New(ctx, append(attrs, resource.WithHost(), resource.WithProcessPID())...)
	if err != nil {
		_ = exp.Shutdown(ctx)
		return nil, fmt.Errorf("ресурс трассировки: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	logging.Info("📡 OpenTelemetry инициализирован (OTLP → %s, service=%s, доля=%v)",
		opts.Endpoint, opts.ServiceName, opts.SampleRatio)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}, nil
}
