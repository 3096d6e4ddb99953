// Package runtime собирает шину, планировщик, менеджер модулей и мост
// сохранения в один объект и даёт хосту точки входа для его событий.
//
// Всё состояние модулей меняется только в управляющем потоке - том, что
// вызывает Tick и остальные обработчики хоста. Другие горутины (REST API,
// наблюдатель файлов) передают работу в этот поток через Do.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/modrt/internal/event"
	"github.com/annel0/modrt/internal/eventbus"
	"github.com/annel0/modrt/internal/logging"
	"github.com/annel0/modrt/internal/module"
	"github.com/annel0/modrt/internal/modules"
	"github.com/annel0/modrt/internal/namelist"
	"github.com/annel0/modrt/internal/scheduler"
	"github.com/annel0/modrt/internal/storage"
)

// ErrStopped возвращается после Shutdown.
var ErrStopped = errors.New("runtime остановлен")

// DefaultInboxSize - ёмкость очереди команд Do.
const DefaultInboxSize = 256

// Options - параметры сборки Runtime.
type Options struct {
	// Store - хранилище конфигурации модулей. По умолчанию в памяти.
	Store storage.ConfigRepo
	// Friends - список друзей для IgnoreList. Может быть nil.
	Friends *namelist.Store
	// Catalog - модули для загрузки. По умолчанию встроенные.
	Catalog *module.Catalog
	// InboxSize - ёмкость очереди Do.
	InboxSize int
}

type command struct {
	fn   func()
	done chan error
}

// Runtime - корневой объект: шина, планировщик, менеджер, мост, список друзей.
type Runtime struct {
	Bus       *eventbus.Bus
	Scheduler *scheduler.Scheduler
	Manager   *module.Manager
	Bridge    *module.ConfigBridge
	Friends   *namelist.Store

	store   storage.ConfigRepo
	inbox   chan command
	quit    chan struct{} // закрывается в Shutdown
	log     *logging.Logger
	started time.Time

	ticks    atomic.Uint64
	stopped  atomic.Bool
	stopOnce sync.Once
	stopErr  error
}

// New собирает Runtime, находит модули и загружает их конфигурацию.
// Ошибка загрузки конфигурации не фатальна: модули остаются по умолчанию.
func New(ctx context.Context, opts Options) (*Runtime, error) {
	if opts.Store == nil {
		opts.Store = storage.NewMemoryConfigRepo()
	}
	if opts.Catalog == nil {
		opts.Catalog = modules.Catalog()
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = DefaultInboxSize
	}

	rt := &Runtime{
		Bus:       eventbus.NewBus(),
		Scheduler: scheduler.New(),
		Friends:   opts.Friends,
		store:     opts.Store,
		inbox:     make(chan command, opts.InboxSize),
		quit:      make(chan struct{}),
		log:       logging.GetComponentLogger("runtime"),
		started:   time.Now(),
	}

	env := module.Env{Bus: rt.Bus, Scheduler: rt.Scheduler}
	if opts.Friends != nil {
		env.Names = opts.Friends
	}
	rt.Manager = module.NewManager(env)
	rt.Bridge = module.NewConfigBridge(rt.Manager, opts.Store)

	if err := rt.Manager.Initialize(ctx, opts.Catalog); err != nil {
		if ctx.Err() != nil {
			_ = rt.Bridge.Close(context.Background())
			return nil, fmt.Errorf("инициализация модулей: %w", err)
		}
		rt.log.Warn("⚠️ Конфигурация модулей не загружена, используются значения по умолчанию: %v", err)
	}

	rt.log.Info("✅ Runtime готов: модулей %d, включено %d", len(rt.Manager.All()), len(rt.Manager.Enabled()))
	return rt, nil
}

// Tick - шаг хоста: выполнить команды Do, продвинуть планировщик,
// затем опубликовать Tick.
func (r *Runtime) Tick() {
	if r.stopped.Load() {
		return
	}
	r.drain()
	r.Scheduler.Advance()
	r.Bus.Post(&event.Tick{})
	r.ticks.Add(1)
}

// drain выполняет команды, уже стоявшие в очереди к началу тика.
func (r *Runtime) drain() {
	for n := len(r.inbox); n > 0; n-- {
		select {
		case cmd := <-r.inbox:
			cmd.done <- r.execute(cmd.fn)
		default:
			return
		}
	}
}

func (r *Runtime) execute(fn func()) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("❌ Ошибка в команде управляющего потока: %v", rec)
			err = fmt.Errorf("команда завершилась паникой: %v", rec)
		}
	}()
	fn()
	return nil
}

// Do выполняет fn в управляющем потоке на ближайшем Tick и ждёт завершения.
// Нельзя вызывать из самого управляющего потока. Команда, не успевшая
// выполниться до Shutdown, завершается с ErrStopped.
func (r *Runtime) Do(ctx context.Context, fn func()) error {
	if r.stopped.Load() {
		return ErrStopped
	}
	cmd := command{fn: fn, done: make(chan error, 1)}

	select {
	case r.inbox <- cmd:
	case <-r.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.done:
		return err
	case <-r.quit:
		// Shutdown мог сам ответить на команду при разборе очереди
		select {
		case err := <-cmd.done:
			return err
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run вызывает Tick с частотой tickRate до отмены ctx (хост без собственного цикла).
func (r *Runtime) Run(ctx context.Context, tickRate int) error {
	if tickRate <= 0 {
		return fmt.Errorf("некорректная частота тиков: %d", tickRate)
	}

	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	r.log.Info("🔄 Цикл тиков запущен (%d Гц)", tickRate)
	for {
		select {
		case <-ctx.Done():
			r.log.Info("Цикл тиков остановлен после %d тиков", r.ticks.Load())
			return nil
		case <-ticker.C:
			if r.stopped.Load() {
				return ErrStopped
			}
			r.Tick()
		}
	}
}

// Shutdown очищает планировщик, отклоняет ожидающие команды, сохраняет
// конфигурацию и закрывает хранилище. Модули не выключаются, чтобы
// их состояние попало в сохранённый снимок.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.stopOnce.Do(func() {
		r.stopped.Store(true)
		close(r.quit)
		r.log.Info("🛑 Остановка runtime...")

	pending:
		for {
			select {
			case cmd := <-r.inbox:
				cmd.done <- ErrStopped
			default:
				break pending
			}
		}

		r.Scheduler.Clear()

		var errs []error
		if err := r.Bridge.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("сохранение конфигурации: %w", err))
		}
		if err := r.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("закрытие хранилища: %w", err))
		}
		r.stopErr = errors.Join(errs...)

		if r.stopErr != nil {
			r.log.Error("❌ Runtime остановлен с ошибками: %v", r.stopErr)
		} else {
			r.log.Info("👋 Runtime остановлен")
		}
	})
	return r.stopErr
}

// Stopped сообщает, вызывался ли Shutdown.
func (r *Runtime) Stopped() bool { return r.stopped.Load() }

// Delay откладывает fn на ticks тиков.
func (r *Runtime) Delay(ticks int, fn func()) *scheduler.Token {
	return r.Scheduler.Schedule(fn, ticks)
}

// SetInputCaptured задаёт предикат "ввод занят хостом".
func (r *Runtime) SetInputCaptured(fn func() bool) {
	r.Manager.SetInputCaptured(fn)
}
