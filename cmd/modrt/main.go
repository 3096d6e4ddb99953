// Команда modrt - демон runtime модулей: цикл тиков, REST API и метрики.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/modrt/internal/api"
	"github.com/annel0/modrt/internal/config"
	"github.com/annel0/modrt/internal/eventbus"
	"github.com/annel0/modrt/internal/logging"
	"github.com/annel0/modrt/internal/namelist"
	"github.com/annel0/modrt/internal/observability"
	"github.com/annel0/modrt/internal/runtime"
	"github.com/annel0/modrt/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// version подставляется при сборке: -ldflags "-X main.version=..."
var version = "dev"

func main() {
	configPath := flag.String("config", "", "путь к YAML-конфигурации (по умолчанию MODRT_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	if err := logging.InitDefaultLogger("modrt", cfg.LoggingOptions()); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	if err := logging.GetLoggerManager().SetComponentLevels(cfg.Logging.Components); err != nil {
		log.Fatalf("❌ Ошибка уровней логирования: %v", err)
	}

	if err := run(cfg); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info("🚀 Запуск modrt: бэкенд=%s, тики=%d Гц, API=%t, метрики=%t",
		cfg.Store.Backend, cfg.Runtime.TickRate, cfg.API.Enabled, cfg.Metrics.Enabled)

	// === ТРАССИРОВКА ===
	shutdownTelemetry, err := observability.InitTelemetry(ctx, observability.Options{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		SampleRatio: cfg.Telemetry.SampleRatio,
		Version:     version,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			logging.Warn("⚠️ Ошибка остановки трассировки: %v", err)
		}
	}()

	// === ХРАНИЛИЩЕ И СПИСОК ДРУЗЕЙ ===
	store, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return err
	}

	friends, err := namelist.Open(cfg.Friends.Path)
	if err != nil {
		_ = store.Close()
		return err
	}

	// === RUNTIME ===
	rt, err := runtime.New(ctx, runtime.Options{Store: store, Friends: friends})
	if err != nil {
		_ = store.Close()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return rt.Run(gctx, cfg.Runtime.TickRate) })

	if cfg.Friends.Watch {
		g.Go(func() error { return friends.Watch(gctx) })
	}

	var server *api.Server
	if cfg.API.Enabled {
		server, err = api.NewServer(rt, api.Config{
			Addr:      cfg.APIAddr(),
			JWTSecret: cfg.API.JWTSecret,
		})
		if err != nil {
			stop()
			_ = g.Wait()
			return errors.Join(err, shutdownRuntime(rt))
		}
		g.Go(server.Start)
	}

	var exporter *eventbus.MetricsExporter
	if cfg.Metrics.Enabled {
		exporter, err = eventbus.NewMetricsExporter(prometheus.DefaultRegisterer, rt.Bus, rt.Scheduler)
		if err != nil {
			stop()
			_ = g.Wait()
			return errors.Join(err, shutdownRuntime(rt))
		}
		exporter.StartHTTP(cfg.MetricsAddr(), cfg.Metrics.Interval)
	}

	// Останавливаем HTTP-сервисы при отмене, иначе Start не вернётся.
	g.Go(func() error {
		<-gctx.Done()
		logging.Info("🛑 Получен сигнал остановки")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		if server != nil {
			errs = append(errs, server.Shutdown(sctx))
		}
		if exporter != nil {
			errs = append(errs, exporter.Stop(sctx))
		}
		return errors.Join(errs...)
	})

	runErr := g.Wait()
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	return errors.Join(runErr, shutdownRuntime(rt))
}

func shutdownRuntime(rt *runtime.Runtime) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return rt.Shutdown(ctx)
}
