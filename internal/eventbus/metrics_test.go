package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/annel0/modrt/internal/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedQueue int

func (q fixedQueue) Pending() int { return int(q) }

func TestMetricsExporter_Collect(t *testing.T) {
	registry := prometheus.NewRegistry()
	bus := NewBus()
	bus.Register(NewGroup("t", On(func(*event.Tick) {})))

	me, err := NewMetricsExporter(registry, bus, fixedQueue(3))
	require.NoError(t, err)

	bus.Post(&event.Tick{})
	bus.Post(&event.Tick{})
	me.Collect()

	assert.Equal(t, 2.0, testutil.ToFloat64(me.posted))
	assert.Equal(t, 2.0, testutil.ToFloat64(me.delivered))
	assert.Equal(t, 1.0, testutil.ToFloat64(me.listeners))
	assert.Equal(t, 3.0, testutil.ToFloat64(me.pending))

	// Повторный сбор без новых событий не меняет счётчики
	me.Collect()
	assert.Equal(t, 2.0, testutil.ToFloat64(me.posted))
}

func TestMetricsExporter_DuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	bus := NewBus()

	_, err := NewMetricsExporter(registry, bus, nil)
	require.NoError(t, err)
	_, err = NewMetricsExporter(registry, bus, nil)
	assert.Error(t, err, "повторная регистрация тех же метрик должна завершиться ошибкой")
}

func TestMetricsExporter_StartStop(t *testing.T) {
	registry := prometheus.NewRegistry()
	bus := NewBus()
	me, err := NewMetricsExporter(registry, bus, nil)
	require.NoError(t, err)

	me.Start(10 * time.Millisecond)
	bus.Post(&event.Tick{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, me.Stop(ctx))
	// Финальный сбор выполняется при остановке
	assert.Equal(t, 1.0, testutil.ToFloat64(me.posted))
}
