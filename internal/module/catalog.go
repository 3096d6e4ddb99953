package module

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/annel0/modrt/internal/logging"
)

// Constructor создаёт модуль без аргументов.
type Constructor func() Module

type catalogEntry struct {
	priority int
	ctor     Constructor
	label    string
}

// Catalog - статический список модулей с приоритетом загрузки.
// Меньший приоритет создаётся раньше.
type Catalog struct {
	entries []catalogEntry
}

// NewCatalog создаёт пустой каталог.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// Add добавляет конструктор.
func (c *Catalog) Add(priority int, ctor Constructor) *Catalog {
	return c.AddNamed(fmt.Sprintf("#%d", len(c.entries)), priority, ctor)
}

// AddNamed добавляет конструктор с меткой для логов.
func (c *Catalog) AddNamed(label string, priority int, ctor Constructor) *Catalog {
	c.entries = append(c.entries, catalogEntry{priority: priority, ctor: ctor, label: label})
	return c
}

// Len - число записей.
func (c *Catalog) Len() int { return len(c.entries) }

// Discover создаёт модули каталога по возрастанию приоритета (при равном
// приоритете в порядке добавления). Записи без конструктора, с паникой
// в конструкторе или вернувшие nil пропускаются.
func Discover(c *Catalog) []Module {
	log := logging.GetModuleLogger()
	if c == nil {
		return nil
	}

	entries := append([]catalogEntry(nil), c.entries...)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].priority < entries[j].priority
	})

	modules := make([]Module, 0, len(entries))
	for _, e := range entries {
		if e.ctor == nil {
			log.Warn("⚠️ Модуль %s не имеет конструктора, пропущен", e.label)
			continue
		}
		m, err := construct(e.ctor)
		if err != nil {
			log.Error("❌ Не удалось создать модуль %s: %v", e.label, err)
			continue
		}
		if isNil(m) {
			log.Warn("⚠️ Конструктор %s вернул nil, пропущен", e.label)
			continue
		}
		modules = append(modules, m)
		log.Debug("Найден модуль %s (приоритет %d)", m.Name(), e.priority)
	}

	log.Info("Found %d module(s)", len(modules))
	return modules
}

func construct(ctor Constructor) (m Module, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
			m = nil
		}
	}()
	return ctor(), nil
}

func isNil(m Module) bool {
	if m == nil {
		return true
	}
	v := reflect.ValueOf(m)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
