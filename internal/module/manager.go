package module

import (
	"context"
	"strings"
	"sync"

	"github.com/annel0/modrt/internal/event"
	"github.com/annel0/modrt/internal/eventbus"
	"github.com/annel0/modrt/internal/logging"
)

// Manager - реестр модулей и маршрутизатор горячих клавиш.
// Сам подписан на KeyPress в шине окружения.
type Manager struct {
	mu         sync.RWMutex
	modules    []Module
	byName     map[string]Module
	byCategory map[Category][]Module

	env           *Env
	bridge        *ConfigBridge
	inputCaptured func() bool
	initialized   bool
	log           *logging.Logger
}

// NewManager создаёт менеджер и подписывает его на шину env.Bus.
func NewManager(env Env) *Manager {
	m := &Manager{
		byName:     make(map[string]Module),
		byCategory: make(map[Category][]Module),
		log:        logging.GetModuleLogger(),
	}
	env.persist = m.requestSave
	m.env = &env

	if env.Bus != nil {
		env.Bus.Register(m)
	}
	return m
}

// Name реализует event.Named (для логов шины).
func (m *Manager) Name() string { return "ModuleManager" }

// Listeners реализует eventbus.Subject.
func (m *Manager) Listeners() []eventbus.Binding {
	return []eventbus.Binding{
		eventbus.On(m.onKeyPress).Named("ModuleManager.onKeyPress"),
	}
}

// Env возвращает окружение, которое получают модули.
func (m *Manager) Env() *Env { return m.env }

// SetInputCaptured задаёт предикат "ввод занят хостом" (открыт экран, чат и т.п.).
// Пока он истинен, горячие клавиши не переключают модули.
func (m *Manager) SetInputCaptured(fn func() bool) {
	m.mu.Lock()
	m.inputCaptured = fn
	m.mu.Unlock()
}

// SetBridge подключает мост сохранения.
func (m *Manager) SetBridge(b *ConfigBridge) {
	m.mu.Lock()
	m.bridge = b
	m.mu.Unlock()
}

func (m *Manager) requestSave(mod Module) {
	m.mu.RLock()
	b := m.bridge
	m.mu.RUnlock()
	if b != nil {
		b.RequestSave()
	}
}

// Initialize находит модули каталога, регистрирует их и загружает сохранённую
// конфигурацию. Повторный вызов только предупреждает.
func (m *Manager) Initialize(ctx context.Context, catalog *Catalog) error {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		m.log.Warn("⚠️ ModuleManager already initialized!")
		return nil
	}
	m.initialized = true
	m.mu.Unlock()

	m.log.Info("Initializing module manager...")
	for _, mod := range Discover(catalog) {
		m.Register(mod)
	}
	m.log.Info("Registered %d module(s)", len(m.All()))

	m.mu.RLock()
	b := m.bridge
	m.mu.RUnlock()
	if b != nil {
		return b.Load(ctx)
	}
	return nil
}

// Initialized сообщает, вызывался ли Initialize.
func (m *Manager) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// Register добавляет модуль. nil и дубликаты имени (без учёта регистра) отклоняются.
func (m *Manager) Register(mod Module) bool {
	if isNil(mod) {
		m.log.Warn("⚠️ Attempted to register null module")
		return false
	}

	key := strings.ToLower(mod.Name())
	m.mu.Lock()
	if _, exists := m.byName[key]; exists {
		m.mu.Unlock()
		m.log.Warn("⚠️ Module with name '%s' already registered", mod.Name())
		return false
	}
	m.modules = append(m.modules, mod)
	m.byName[key] = mod
	m.byCategory[mod.Category()] = append(m.byCategory[mod.Category()], mod)
	m.mu.Unlock()

	mod.base().attach(mod, m.env)
	m.log.Debug("Registered module: %s", mod.Name())
	return true
}

// Unregister выключает модуль без события и удаляет его из реестра.
func (m *Manager) Unregister(mod Module) bool {
	if isNil(mod) {
		return false
	}

	key := strings.ToLower(mod.Name())
	m.mu.Lock()
	if registered, ok := m.byName[key]; !ok || registered != mod {
		m.mu.Unlock()
		return false
	}
	delete(m.byName, key)
	m.modules = removeModule(m.modules, mod)
	cat := mod.Category()
	m.byCategory[cat] = removeModule(m.byCategory[cat], mod)
	m.mu.Unlock()

	mod.base().forceDisable()
	mod.base().detach()
	m.log.Debug("Unregistered module: %s", mod.Name())
	return true
}

func removeModule(list []Module, mod Module) []Module {
	out := list[:0:0]
	for _, x := range list {
		if x != mod {
			out = append(out, x)
		}
	}
	return out
}

// Get ищет модуль по имени без учёта регистра.
func (m *Manager) Get(name string) Module {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byName[strings.ToLower(name)]
}

// Find возвращает первый зарегистрированный модуль типа T.
func Find[T Module](m *Manager) (T, bool) {
	for _, mod := range m.All() {
		if typed, ok := mod.(T); ok {
			return typed, true
		}
	}
	var zero T
	return zero, false
}

// All возвращает копию списка модулей в порядке регистрации.
func (m *Manager) All() []Module {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Module(nil), m.modules...)
}

// ByCategory возвращает копию списка модулей категории.
func (m *Manager) ByCategory(c Category) []Module {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Module(nil), m.byCategory[c]...)
}

// Enabled возвращает включённые модули.
func (m *Manager) Enabled() []Module {
	var out []Module
	for _, mod := range m.All() {
		if mod.Enabled() {
			out = append(out, mod)
		}
	}
	return out
}

// ResetAllKeybinds возвращает всем модулям клавиши по умолчанию.
func (m *Manager) ResetAllKeybinds() {
	for _, mod := range m.All() {
		mod.ResetKeybind()
	}
	m.log.Info("All module keybinds reset to defaults")
}

// onKeyPress переключает модули по нажатию (не повтору и не отпусканию),
// если ввод не занят хостом.
func (m *Manager) onKeyPress(ev *event.KeyPress) {
	if ev.Action != event.ActionPress {
		return
	}

	m.mu.RLock()
	captured := m.inputCaptured
	m.mu.RUnlock()
	if captured != nil && captured() {
		return
	}

	for _, mod := range m.All() {
		if mod.MatchesKey(ev.Key) {
			mod.Toggle()
		}
	}
}
