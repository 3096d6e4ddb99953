package module

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/modrt/internal/logging"
	"github.com/annel0/modrt/internal/storage"
)

type pendingSnapshot struct {
	seq  uint64
	snap storage.Snapshot
}

// ConfigBridge связывает менеджер модулей с хранилищем конфигурации.
//
// Снимок собирается в управляющем потоке, а пишется фоновым писателем:
// из очереди берётся только последний снимок, промежуточные отбрасываются.
type ConfigBridge struct {
	mgr  *Manager
	repo storage.ConfigRepo
	log  *logging.Logger

	loading bool
	seq     atomic.Uint64

	writeMu sync.Mutex
	written uint64

	latest   chan pendingSnapshot
	quit     chan struct{}
	done     chan struct{}
	closed   atomic.Bool
	stopOnce sync.Once

	saves    atomic.Uint64
	failures atomic.Uint64
}

// SaveTimeout ограничивает одну фоновую запись.
const SaveTimeout = 10 * time.Second

// NewConfigBridge создаёт мост, подключает его к менеджеру и запускает писателя.
func NewConfigBridge(mgr *Manager, repo storage.ConfigRepo) *ConfigBridge {
	b := &ConfigBridge{
		mgr:    mgr,
		repo:   repo,
		log:    logging.GetStorageLogger(),
		latest: make(chan pendingSnapshot, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	mgr.SetBridge(b)
	go b.writer()
	return b
}

// Snapshot собирает текущее состояние всех модулей.
func (b *ConfigBridge) Snapshot() storage.Snapshot {
	snap := storage.NewSnapshot()
	for _, mod := range b.mgr.All() {
		rec := storage.ModuleRecord{
			Enabled: mod.Enabled(),
			Keybind: storage.Key(mod.Keybind()),
		}
		if settings := mod.Settings(); len(settings) > 0 {
			rec.Settings = make(map[string]string, len(settings))
			for _, s := range settings {
				rec.Settings[s.Name()] = s.Serialize()
			}
		}
		snap.Modules[mod.Name()] = rec
	}
	return snap
}

// Load применяет сохранённую конфигурацию к зарегистрированным модулям:
// клавишу, значения настроек, затем состояние включения. Во время загрузки
// запросы на сохранение игнорируются. Ошибка хранилища логируется и
// возвращается; модули остаются со значениями по умолчанию.
func (b *ConfigBridge) Load(ctx context.Context) error {
	snap, err := b.repo.Load(ctx)
	if err != nil {
		b.log.Error("❌ Failed to load module configuration: %v", err)
		return err
	}
	if len(snap.Modules) == 0 {
		b.log.Info("Module config not found, using defaults")
		return nil
	}

	b.loading = true
	defer func() { b.loading = false }()

	applied := 0
	for _, mod := range b.mgr.All() {
		rec, ok := snap.Lookup(mod.Name())
		if !ok {
			continue
		}
		if rec.Keybind != nil {
			mod.SetKeybind(*rec.Keybind)
		}
		for name, raw := range rec.Settings {
			s := mod.Setting(name)
			if s == nil {
				b.log.Debug("Неизвестная настройка %s модуля %s пропущена", name, mod.Name())
				continue
			}
			_ = s.Deserialize(raw)
		}
		if rec.Enabled {
			mod.SetEnabled(true)
		}
		applied++
	}

	b.log.Info("Module configuration loaded successfully (%d module(s))", applied)
	return nil
}

// Loading сообщает, идёт ли загрузка.
func (b *ConfigBridge) Loading() bool { return b.loading }

// RequestSave ставит текущий снимок в очередь фоновой записи.
// Вызывается из управляющего потока при каждом изменении модуля.
func (b *ConfigBridge) RequestSave() {
	if b.loading || b.closed.Load() {
		return
	}
	p := pendingSnapshot{seq: b.seq.Add(1), snap: b.Snapshot()}

	for {
		select {
		case b.latest <- p:
			return
		default:
		}
		// Очередь занята устаревшим снимком: выбрасываем его
		select {
		case <-b.latest:
		default:
		}
	}
}

// Flush синхронно записывает текущий снимок.
func (b *ConfigBridge) Flush(ctx context.Context) error {
	p := pendingSnapshot{seq: b.seq.Add(1), snap: b.Snapshot()}
	return b.write(ctx, p)
}

// Close останавливает писателя и выполняет финальный Flush.
// Хранилище не закрывается: им владеет вызывающий.
func (b *ConfigBridge) Close(ctx context.Context) error {
	b.closed.Store(true)
	b.stopOnce.Do(func() { close(b.quit) })

	select {
	case <-b.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return b.Flush(ctx)
}

// Stats возвращает число успешных и неудачных записей.
func (b *ConfigBridge) Stats() (saves, failures uint64) {
	return b.saves.Load(), b.failures.Load()
}

func (b *ConfigBridge) writer() {
	defer close(b.done)
	for {
		select {
		case p := <-b.latest:
			b.writeBackground(p)
		case <-b.quit:
			select {
			case p := <-b.latest:
				b.writeBackground(p)
			default:
			}
			return
		}
	}
}

func (b *ConfigBridge) writeBackground(p pendingSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), SaveTimeout)
	defer cancel()
	_ = b.write(ctx, p)
}

// write сохраняет снимок, если более новый ещё не записан.
func (b *ConfigBridge) write(ctx context.Context, p pendingSnapshot) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if p.seq <= b.written {
		return nil
	}
	if err := b.repo.Save(ctx, p.snap); err != nil {
		b.failures.Add(1)
		b.log.Error("❌ Failed to save module configuration: %v", err)
		return err
	}
	b.written = p.seq
	b.saves.Add(1)
	b.log.Debug("Module configuration saved successfully")
	return nil
}
