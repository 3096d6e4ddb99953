package eventbus

import (
	"fmt"

	"github.com/annel0/modrt/internal/event"
)

// Handler получает событие уже приведённым к нужному типу (см. On).
type Handler func(ev event.Event)

// Binding - декларация слушателя: вид события, приоритет, флаг
// получения отменённых событий и обработчик.
type Binding struct {
	kind             event.Kind
	priority         event.Priority
	receiveCancelled bool
	handler          Handler
	name             string
}

// Subject - владелец слушателей. Модули и менеджер реализуют его,
// перечисляя свои привязки; шина ничего не ищет через рефлексию.
// Реализация должна быть сравнимой (обычно указатель).
type Subject interface {
	Listeners() []Binding
}

// Group - готовый Subject из списка привязок, когда отдельный тип не нужен.
type Group struct {
	name     string
	bindings []Binding
}

// NewGroup создаёт группу слушателей с именем для логов.
func NewGroup(name string, bindings ...Binding) *Group {
	return &Group{name: name, bindings: bindings}
}

// Listeners реализует Subject.
func (g *Group) Listeners() []Binding { return g.bindings }

// Name возвращает имя группы.
func (g *Group) Name() string { return g.name }

// On объявляет слушателя события типа E с приоритетом Normal.
//
//	eventbus.On(func(ev *event.Tick) { ... }).WithPriority(event.High)
func On[E event.Event](fn func(E)) Binding {
	var zero E
	b := Binding{
		kind:     kindOf(zero),
		priority: event.Normal,
	}
	if fn != nil {
		b.handler = func(ev event.Event) {
			if typed, ok := ev.(E); ok {
				fn(typed)
			}
		}
	}
	return b
}

// kindOf достаёт вид события из нулевого значения. Для интерфейсных
// типов (нулевое значение - nil) вид не определён.
func kindOf(ev event.Event) (k event.Kind) {
	defer func() {
		if recover() != nil {
			k = ""
		}
	}()
	return ev.Kind()
}

// WithPriority задаёт приоритет.
func (b Binding) WithPriority(p event.Priority) Binding {
	b.priority = p
	return b
}

// ReceiveCancelled включает доставку уже отменённых событий.
func (b Binding) ReceiveCancelled() Binding {
	b.receiveCancelled = true
	return b
}

// Named задаёт имя слушателя для логов.
func (b Binding) Named(name string) Binding {
	b.name = name
	return b
}

func (b Binding) Kind() event.Kind { return b.kind }

func (b Binding) Priority() event.Priority { return b.priority }

func (b Binding) ReceivesCancelled() bool { return b.receiveCancelled }

func (b Binding) validate() error {
	switch {
	case b.kind == "":
		return fmt.Errorf("не удалось определить вид события")
	case b.handler == nil:
		return fmt.Errorf("обработчик для %s не задан", b.kind)
	case !b.priority.Valid():
		return fmt.Errorf("недопустимый приоритет %s для %s", b.priority, b.kind)
	}
	return nil
}
