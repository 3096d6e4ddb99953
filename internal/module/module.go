// Package module - жизненный цикл модулей, их реестр и связь с хранилищем.
//
// Конкретный модуль встраивает Base и объявляет слушателей методом
// Listeners. Пока модуль включён, его слушатели зарегистрированы в шине.
package module

import (
	"strings"

	"github.com/annel0/modrt/internal/event"
	"github.com/annel0/modrt/internal/eventbus"
	"github.com/annel0/modrt/internal/logging"
	"github.com/annel0/modrt/internal/scheduler"
	"github.com/annel0/modrt/internal/setting"
)

// Category группирует модули.
type Category string

const (
	Combat   Category = "Combat"
	Movement Category = "Movement"
	Render   Category = "Render"
	Player   Category = "Player"
	Utility  Category = "Utility"
	Misc     Category = "Misc"
)

// Categories возвращает все категории в порядке отображения.
func Categories() []Category {
	return []Category{Combat, Movement, Render, Player, Utility, Misc}
}

// Module - контракт модуля. Реализуется встраиванием Base.
type Module interface {
	eventbus.Subject
	Name() string
	Description() string
	Category() Category

	Enabled() bool
	SetEnabled(enabled bool)
	Toggle()

	Keybind() int
	DefaultKeybind() int
	SetKeybind(code int)
	ResetKeybind()
	MatchesKey(code int) bool

	Settings() []setting.Setting
	Setting(name string) setting.Setting

	base() *Base
}

// Enabler вызывается после регистрации слушателей при включении.
type Enabler interface {
	OnEnable()
}

// Disabler вызывается после снятия слушателей при выключении.
type Disabler interface {
	OnDisable()
}

// NameSet - набор имён (список друзей), доступный модулям.
type NameSet interface {
	Contains(name string) bool
}

// Env - окружение, в котором работает модуль. Выдаётся менеджером при регистрации.
type Env struct {
	Bus       *eventbus.Bus
	Scheduler *scheduler.Scheduler
	Names     NameSet

	persist func(Module)
}

// Base хранит общее состояние модуля. Поля меняются только из управляющего потока.
type Base struct {
	name           string
	description    string
	category       Category
	enabled        bool
	keybind        int
	defaultKeybind int
	settings       []setting.Setting

	self Module
	env  *Env
	log  *logging.Logger
}

// NewBase создаёт базу модуля. defaultKeybind = event.KeyUnbound, если клавиши нет.
func NewBase(name, description string, category Category, defaultKeybind int) Base {
	return Base{
		name:           name,
		description:    description,
		category:       category,
		keybind:        defaultKeybind,
		defaultKeybind: defaultKeybind,
		log:            logging.GetModuleLogger(),
	}
}

func (b *Base) base() *Base { return b }

func (b *Base) Name() string        { return b.name }
func (b *Base) Description() string { return b.description }
func (b *Base) Category() Category  { return b.category }
func (b *Base) Enabled() bool       { return b.enabled }
func (b *Base) Keybind() int        { return b.keybind }
func (b *Base) DefaultKeybind() int { return b.defaultKeybind }

// Listeners по умолчанию пуст; конкретный модуль переопределяет его.
func (b *Base) Listeners() []eventbus.Binding { return nil }

// Env возвращает окружение или nil, если модуль не зарегистрирован.
func (b *Base) Env() *Env { return b.env }

// Logger возвращает логгер модулей.
func (b *Base) Logger() *logging.Logger { return b.log }

// Delay откладывает fn на ticks тиков. Без окружения возвращает nil.
func (b *Base) Delay(ticks int, fn func()) *scheduler.Token {
	if b.env == nil || b.env.Scheduler == nil {
		b.log.Warn("⚠️ %s: планировщик недоступен, задача отброшена", b.name)
		return nil
	}
	return b.env.Scheduler.Schedule(fn, ticks)
}

func (b *Base) subject() Module {
	if b.self != nil {
		return b.self
	}
	return b
}

// Toggle переключает состояние.
func (b *Base) Toggle() { b.SetEnabled(!b.enabled) }

// SetEnabled меняет состояние через событие ModuleToggle. Если событие
// отменено, состояние не меняется.
func (b *Base) SetEnabled(enabled bool) {
	if b.enabled == enabled {
		return
	}

	if b.env != nil && b.env.Bus != nil {
		ev := b.env.Bus.Post(&event.ModuleToggle{Module: b.subject(), Enabled: enabled})
		if ev.Cancelled() {
			b.log.Debug("Переключение модуля %s отменено", b.name)
			return
		}
	}

	b.enabled = enabled
	if enabled {
		b.runEnable()
		b.log.Info("Module enabled: %s", b.name)
	} else {
		b.runDisable()
		b.log.Info("Module disabled: %s", b.name)
	}
	b.requestSave()
}

// forceDisable выключает модуль без события (при удалении из менеджера).
func (b *Base) forceDisable() {
	if !b.enabled {
		return
	}
	b.enabled = false
	b.runDisable()
}

func (b *Base) runEnable() {
	if b.env != nil && b.env.Bus != nil {
		b.env.Bus.Register(b.subject())
	}
	if h, ok := b.subject().(Enabler); ok {
		b.safeHook("OnEnable", h.OnEnable)
	}
}

func (b *Base) runDisable() {
	if b.env != nil && b.env.Bus != nil {
		b.env.Bus.Unregister(b.subject())
	}
	if h, ok := b.subject().(Disabler); ok {
		b.safeHook("OnDisable", h.OnDisable)
	}
}

func (b *Base) safeHook(name string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			b.log.Error("❌ Ошибка в %s модуля %s: %v", name, b.name, rec)
		}
	}()
	fn()
}

// SetKeybind назначает клавишу; event.KeyUnbound снимает назначение.
func (b *Base) SetKeybind(code int) {
	if code < 0 {
		code = event.KeyUnbound
	}
	b.keybind = code
	b.requestSave()
	b.log.Debug("Keybind for %s set to: %s", b.name, KeyName(code))
}

// ResetKeybind возвращает клавишу по умолчанию.
func (b *Base) ResetKeybind() { b.SetKeybind(b.defaultKeybind) }

// MatchesKey - клавиша назначена и совпадает с code.
func (b *Base) MatchesKey(code int) bool {
	return b.keybind != event.KeyUnbound && b.keybind == code
}

// KeybindName - отображаемое имя текущей клавиши.
func (b *Base) KeybindName() string { return KeyName(b.keybind) }

// AddSetting добавляет настройку и подписывает модуль на её изменения.
func AddSetting[S setting.Setting](b *Base, s S) S {
	s.BindOwner(b.requestSave)
	b.settings = append(b.settings, s)
	return s
}

// Settings возвращает копию списка настроек в порядке добавления.
func (b *Base) Settings() []setting.Setting {
	return append([]setting.Setting(nil), b.settings...)
}

// Setting ищет настройку без учёта регистра.
func (b *Base) Setting(name string) setting.Setting {
	for _, s := range b.settings {
		if strings.EqualFold(s.Name(), name) {
			return s
		}
	}
	return nil
}

func (b *Base) requestSave() {
	if b.env != nil && b.env.persist != nil {
		b.env.persist(b.subject())
	}
}

func (b *Base) attach(self Module, env *Env) {
	b.self = self
	b.env = env
}

func (b *Base) detach() {
	b.env = nil
}
