package storage

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/annel0/modrt/internal/storage"

// tracedRepo оборачивает Load/Save в спаны OpenTelemetry.
type tracedRepo struct {
	inner   ConfigRepo
	backend string
	tracer  trace.Tracer
}

// WithTracing добавляет трассировку к репозиторию. Без настроенного
// TracerProvider спаны не записываются.
func WithTracing(repo ConfigRepo, backend string) ConfigRepo {
	return &tracedRepo{inner: repo, backend: backend, tracer: otel.Tracer(tracerName)}
}

func (t *tracedRepo) Load(ctx context.Context) (Snapshot, error) {
	ctx, span := t.tracer.Start(ctx, "storage.Load",
		trace.WithAttributes(attribute.String("storage.backend", t.backend)))
	defer span.End()

	snap, err := t.inner.Load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return snap, err
	}
	span.SetAttributes(attribute.Int("storage.modules", len(snap.Modules)))
	return snap, nil
}

func (t *tracedRepo) Save(ctx context.Context, snap Snapshot) error {
	ctx, span := t.tracer.Start(ctx, "storage.Save",
		trace.WithAttributes(
			attribute.String("storage.backend", t.backend),
			attribute.Int("storage.modules", len(snap.Modules)),
		))
	defer span.End()

	if err := t.inner.Save(ctx, snap); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (t *tracedRepo) Close() error { return t.inner.Close() }

// Unwrap возвращает исходный репозиторий.
func (t *tracedRepo) Unwrap() ConfigRepo { return t.inner }
