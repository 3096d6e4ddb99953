package eventbus

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/annel0/modrt/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsProvider - источник счётчиков шины.
type StatsProvider interface {
	Stats() Stats
}

// QueueGauge - источник длины очереди отложенных задач (планировщик).
type QueueGauge interface {
	Pending() int
}

// MetricsExporter периодически переносит счётчики шины и планировщика в Prometheus.
type MetricsExporter struct {
	bus   StatsProvider
	queue QueueGauge

	mu     sync.Mutex
	prev   Stats
	server *http.Server
	quit   chan struct{}
	done   chan struct{}
	once   sync.Once

	posted    prometheus.Counter
	delivered prometheus.Counter
	skipped   prometheus.Counter
	failed    prometheus.Counter
	listeners prometheus.Gauge
	pending   prometheus.Gauge
}

// NewMetricsExporter создаёт экспортер и регистрирует метрики в reg.
// queue может быть nil.
func NewMetricsExporter(reg prometheus.Registerer, bus StatsProvider, queue QueueGauge) (*MetricsExporter, error) {
	me := &MetricsExporter{
		bus:   bus,
		queue: queue,
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
		posted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "modrt",
			Subsystem: "eventbus",
			Name:      "events_posted_total",
			Help:      "Общее число опубликованных событий.",
		}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "modrt",
			Subsystem: "eventbus",
			Name:      "deliveries_total",
			Help:      "Успешных вызовов слушателей.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "modrt",
			Subsystem: "eventbus",
			Name:      "skipped_cancelled_total",
			Help:      "Слушателей, пропущенных из-за отмены события.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "modrt",
			Subsystem: "eventbus",
			Name:      "listener_failures_total",
			Help:      "Слушателей, завершившихся паникой.",
		}),
		listeners: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "modrt",
			Subsystem: "eventbus",
			Name:      "listeners",
			Help:      "Зарегистрированных слушателей.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "modrt",
			Subsystem: "scheduler",
			Name:      "pending_tasks",
			Help:      "Отложенных задач в очереди планировщика.",
		}),
	}

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{me.posted, me.delivered, me.skipped, me.failed, me.listeners, me.pending} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return me, nil
}

// Collect переносит текущие значения. Counter растёт на дельту с прошлого вызова.
func (m *MetricsExporter) Collect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := m.bus.Stats()
	addDelta(m.posted, stats.Posted, m.prev.Posted)
	addDelta(m.delivered, stats.Delivered, m.prev.Delivered)
	addDelta(m.skipped, stats.Skipped, m.prev.Skipped)
	addDelta(m.failed, stats.Failed, m.prev.Failed)
	m.listeners.Set(float64(stats.Listeners))
	if m.queue != nil {
		m.pending.Set(float64(m.queue.Pending()))
	}
	m.prev = stats
}

func addDelta(c prometheus.Counter, cur, prev uint64) {
	if cur > prev {
		c.Add(float64(cur - prev))
	}
}

// Start запускает периодическое обновление без HTTP-эндпоинта.
func (m *MetricsExporter) Start(interval time.Duration) {
	go m.loop(interval)
}

// StartHTTP запускает эндпоинт /metrics на addr (например, ":2112") и цикл обновления.
// Метод неблокирующий.
func (m *MetricsExporter) StartHTTP(addr string, interval time.Duration) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	m.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logging.Info("📈 Prometheus /metrics доступен по адресу %s", addr)
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()
	m.Start(interval)
}

// Stop останавливает цикл обновления и HTTP-сервер, если он был запущен.
func (m *MetricsExporter) Stop(ctx context.Context) error {
	m.once.Do(func() { close(m.quit) })
	select {
	case <-m.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if m.server != nil {
		return m.server.Shutdown(ctx)
	}
	return nil
}

func (m *MetricsExporter) loop(interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(m.done)

	for {
		select {
		case <-ticker.C:
			m.Collect()
		case <-m.quit:
			m.Collect()
			return
		}
	}
}
