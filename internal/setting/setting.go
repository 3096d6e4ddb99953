// Package setting - типизированные настройки модулей.
//
// Каждая настройка держит значение в своей области допустимых значений после
// любой операции, умеет сериализоваться в строку и сообщает владельцу об
// изменениях, чтобы тот мог сохранить конфигурацию.
package setting

import (
	"github.com/annel0/modrt/internal/logging"
)

// Type - строковый идентификатор вида настройки.
type Type string

const (
	TypeBool   Type = "boolean"
	TypeString Type = "string"
	TypeMode   Type = "mode"
	TypeNumber Type = "number"
	TypeRange  Type = "range"
	TypeColor  Type = "color"
)

// Setting - общий контракт всех настроек.
type Setting interface {
	Name() string
	Description() string
	Type() Type
	// Serialize возвращает значение в строковом виде для хранилища.
	Serialize() string
	// Deserialize разбирает строку. При ошибке значение сбрасывается
	// к умолчанию, а ошибка возвращается для диагностики.
	Deserialize(s string) error
	// Display - значение в человекочитаемом виде.
	Display() string
	Reset()
	// BindOwner задаёт хук владельца, вызываемый при каждом изменении.
	BindOwner(hook func())
}

// core - общая часть настроек: имя, значение, наблюдатели.
type core[T comparable] struct {
	name        string
	description string
	value       T
	def         T
	observers   []func(T)
	owner       func()
}

func newCore[T comparable](name, description string, def T) core[T] {
	return core[T]{name: name, description: description, value: def, def: def}
}

func (c *core[T]) Name() string        { return c.name }
func (c *core[T]) Description() string { return c.description }

// BindOwner реализует Setting.
func (c *core[T]) BindOwner(hook func()) { c.owner = hook }

// store записывает значение и уведомляет наблюдателей, если оно изменилось.
func (c *core[T]) store(v T) bool {
	if c.value == v {
		return false
	}
	c.value = v
	for _, fn := range c.observers {
		fn(v)
	}
	if c.owner != nil {
		c.owner()
	}
	return true
}

func (c *core[T]) observe(fn func(T)) {
	if fn != nil {
		c.observers = append(c.observers, fn)
	}
}

func logger() *logging.Logger {
	return logging.GetComponentLogger("setting")
}

func warnMalformed(name, raw string, err error) {
	logger().Warn("⚠️ Некорректное значение %q для настройки %s, восстановлено значение по умолчанию: %v", raw, name, err)
}
