// Package storage хранит сохранённую конфигурацию модулей: состояние
// включения, клавишу и сериализованные значения настроек.
package storage

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// ErrNotFound возвращается, когда запрошенной записи нет в хранилище.
var ErrNotFound = errors.New("запись не найдена")

// ModuleRecord - сохранённое состояние одного модуля.
// Keybind равен nil, если клавиша не записывалась.
type ModuleRecord struct {
	Enabled  bool              `json:"enabled" bson:"enabled"`
	Keybind  *int              `json:"keybind,omitempty" bson:"keybind,omitempty"`
	Settings map[string]string `json:"settings,omitempty" bson:"settings,omitempty"`
}

// Key - удобный конструктор указателя для Keybind.
func Key(code int) *int { return &code }

// Clone возвращает глубокую копию записи.
func (r ModuleRecord) Clone() ModuleRecord {
	out := ModuleRecord{Enabled: r.Enabled}
	if r.Keybind != nil {
		out.Keybind = Key(*r.Keybind)
	}
	if r.Settings != nil {
		out.Settings = make(map[string]string, len(r.Settings))
		for k, v := range r.Settings {
			out.Settings[k] = v
		}
	}
	return out
}

// Snapshot - полная конфигурация всех модулей.
// Формат JSON: {"modules": {"<Имя>": {"enabled": .., "keybind": .., "settings": {..}}}}
type Snapshot struct {
	Modules map[string]ModuleRecord `json:"modules"`
}

// NewSnapshot создаёт пустой снимок.
func NewSnapshot() Snapshot {
	return Snapshot{Modules: make(map[string]ModuleRecord)}
}

// Clone возвращает глубокую копию снимка.
func (s Snapshot) Clone() Snapshot {
	out := NewSnapshot()
	for name, rec := range s.Modules {
		out.Modules[name] = rec.Clone()
	}
	return out
}

// Names возвращает отсортированные имена модулей.
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s.Modules))
	for name := range s.Modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup ищет запись по имени: сначала точное совпадение, затем без учёта регистра.
func (s Snapshot) Lookup(name string) (ModuleRecord, bool) {
	if rec, ok := s.Modules[name]; ok {
		return rec, true
	}
	for k, rec := range s.Modules {
		if strings.EqualFold(k, name) {
			return rec, true
		}
	}
	return ModuleRecord{}, false
}

// ConfigRepo - хранилище конфигурации модулей.
// Отсутствие данных не является ошибкой: Load возвращает пустой снимок.
type ConfigRepo interface {
	// Load читает полный снимок.
	Load(ctx context.Context) (Snapshot, error)

	// Save заменяет сохранённую конфигурацию снимком целиком:
	// модули, которых нет в снимке, удаляются.
	Save(ctx context.Context, snap Snapshot) error

	// Close освобождает ресурсы хранилища.
	Close() error
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
