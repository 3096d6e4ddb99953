package eventbus

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/annel0/modrt/internal/event"
	"github.com/annel0/modrt/internal/logging"
)

// Stats агрегированные метрики шины.
type Stats struct {
	Posted    uint64 // Опубликовано событий
	Delivered uint64 // Успешных вызовов слушателей
	Skipped   uint64 // Пропусков из-за отмены
	Failed    uint64 // Слушателей, завершившихся паникой
	Listeners int    // Зарегистрированных слушателей
}

// ListenerInfo - снимок одной регистрации для диагностики.
type ListenerInfo struct {
	Owner            string
	Priority         event.Priority
	ReceiveCancelled bool
}

type registration struct {
	owner   Subject
	binding Binding
}

func (r *registration) label() string {
	if r.binding.name != "" {
		return r.binding.name
	}
	return ownerName(r.owner)
}

func ownerName(s Subject) string {
	if n, ok := s.(event.Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}

// Bus - синхронная шина событий с приоритетами.
//
// Таблица слушателей копируется при каждой (раз)регистрации, поэтому Post
// читает неизменяемый срез и слушатели могут подписываться и отписываться
// прямо во время доставки.
type Bus struct {
	mu        sync.RWMutex
	listeners map[event.Kind][]*registration
	log       *logging.Logger

	posted    atomic.Uint64
	delivered atomic.Uint64
	skipped   atomic.Uint64
	failed    atomic.Uint64
}

// NewBus создаёт пустую шину.
func NewBus() *Bus {
	return &Bus{
		listeners: make(map[event.Kind][]*registration),
		log:       logging.GetBusLogger(),
	}
}

// SetLogger подменяет логгер шины.
func (b *Bus) SetLogger(l *logging.Logger) {
	if l != nil {
		b.log = l
	}
}

// Register добавляет все корректные привязки subject. Некорректные
// пропускаются с предупреждением; вызывающему ошибка не возвращается.
// Возвращает число добавленных слушателей.
func (b *Bus) Register(subject Subject) int {
	if subject == nil {
		b.log.Warn("⚠️ Попытка зарегистрировать nil-слушателя")
		return 0
	}
	if !reflect.TypeOf(subject).Comparable() {
		b.log.Warn("⚠️ Слушатель %T несравним, регистрация пропущена", subject)
		return 0
	}

	bindings := subject.Listeners()
	registered := 0

	b.mu.Lock()
	for _, binding := range bindings {
		if err := binding.validate(); err != nil {
			b.log.Warn("⚠️ Пропущен слушатель %s: %v", ownerName(subject), err)
			continue
		}

		current := b.listeners[binding.kind]
		next := make([]*registration, len(current), len(current)+1)
		copy(next, current)
		next = append(next, &registration{owner: subject, binding: binding})
		// Стабильная сортировка: при равном приоритете сохраняется порядок регистрации
		sort.SliceStable(next, func(i, j int) bool {
			return next[i].binding.priority < next[j].binding.priority
		})
		b.listeners[binding.kind] = next
		registered++

		b.log.Trace("Зарегистрирован слушатель %s для %s (%s)", ownerName(subject), binding.kind, binding.priority)
	}
	b.mu.Unlock()

	if registered > 0 {
		b.log.Debug("Зарегистрировано слушателей: %d от %s", registered, ownerName(subject))
	}
	return registered
}

// Unregister удаляет все слушатели subject из всех видов событий.
// Идемпотентен.
func (b *Bus) Unregister(subject Subject) {
	if subject == nil || !reflect.TypeOf(subject).Comparable() {
		return
	}

	b.mu.Lock()
	removed := 0
	for kind, current := range b.listeners {
		var next []*registration
		for _, r := range current {
			if r.owner == subject {
				removed++
				continue
			}
			next = append(next, r)
		}
		if len(next) == len(current) {
			continue
		}
		if len(next) == 0 {
			delete(b.listeners, kind)
		} else {
			b.listeners[kind] = next
		}
	}
	b.mu.Unlock()

	if removed > 0 {
		b.log.Debug("Снято слушателей: %d от %s", removed, ownerName(subject))
	}
}

// Post доставляет событие слушателям его вида по возрастанию приоритета.
// Отменённое событие получают только слушатели с ReceiveCancelled.
// Паника слушателя логируется и не прерывает доставку остальным.
// Возвращает то же событие, чтобы вызывающий прочитал итоговое состояние.
func (b *Bus) Post(ev event.Event) event.Event {
	if ev == nil {
		b.log.Warn("⚠️ Попытка опубликовать nil-событие")
		return nil
	}
	b.posted.Add(1)

	b.mu.RLock()
	snapshot := b.listeners[ev.Kind()]
	b.mu.RUnlock()

	for _, r := range snapshot {
		if ev.Cancelled() && !r.binding.receiveCancelled {
			b.skipped.Add(1)
			continue
		}
		if b.invoke(r, ev) {
			b.delivered.Add(1)
		}
	}
	return ev
}

func (b *Bus) invoke(r *registration, ev event.Event) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			b.failed.Add(1)
			b.log.Error("❌ Ошибка в слушателе %s для события %s: %v", r.label(), ev.Kind(), rec)
			ok = false
		}
	}()
	r.binding.handler(ev)
	return true
}

// Listeners возвращает снимок слушателей вида kind в порядке вызова.
func (b *Bus) Listeners(kind event.Kind) []ListenerInfo {
	b.mu.RLock()
	current := b.listeners[kind]
	b.mu.RUnlock()

	out := make([]ListenerInfo, 0, len(current))
	for _, r := range current {
		out = append(out, ListenerInfo{
			Owner:            r.label(),
			Priority:         r.binding.priority,
			ReceiveCancelled: r.binding.receiveCancelled,
		})
	}
	return out
}

// IsRegistered сообщает, есть ли у subject хотя бы один слушатель.
func (b *Bus) IsRegistered(subject Subject) bool {
	if subject == nil || !reflect.TypeOf(subject).Comparable() {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, current := range b.listeners {
		for _, r := range current {
			if r.owner == subject {
				return true
			}
		}
	}
	return false
}

// Stats возвращает текущие счётчики шины.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	total := 0
	for _, current := range b.listeners {
		total += len(current)
	}
	b.mu.RUnlock()

	return Stats{
		Posted:    b.posted.Load(),
		Delivered: b.delivered.Load(),
		Skipped:   b.skipped.Load(),
		Failed:    b.failed.Load(),
		Listeners: total,
	}
}
