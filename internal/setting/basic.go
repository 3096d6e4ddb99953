package setting

import (
	"fmt"
	"strconv"
	"strings"
)

// Bool - флаг.
type Bool struct {
	core[bool]
}

// NewBool создаёт флаг со значением по умолчанию def.
func NewBool(name, description string, def bool) *Bool {
	return &Bool{core: newCore(name, description, def)}
}

func (b *Bool) Type() Type        { return TypeBool }
func (b *Bool) Get() bool         { return b.value }
func (b *Bool) Default() bool     { return b.def }
func (b *Bool) Set(v bool)        { b.store(v) }
func (b *Bool) Toggle()           { b.store(!b.value) }
func (b *Bool) Reset()            { b.store(b.def) }
func (b *Bool) Serialize() string { return strconv.FormatBool(b.value) }
func (b *Bool) Display() string {
	if b.value {
		return "On"
	}
	return "Off"
}

// OnChange добавляет наблюдателя изменений.
func (b *Bool) OnChange(fn func(bool)) *Bool {
	b.observe(fn)
	return b
}

func (b *Bool) Deserialize(s string) error {
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		warnMalformed(b.name, s, err)
		b.store(b.def)
		return err
	}
	b.store(v)
	return nil
}

// String - произвольная строка.
type String struct {
	core[string]
}

// NewString создаёт строковую настройку.
func NewString(name, description, def string) *String {
	return &String{core: newCore(name, description, def)}
}

func (s *String) Type() Type        { return TypeString }
func (s *String) Get() string       { return s.value }
func (s *String) Default() string   { return s.def }
func (s *String) Set(v string)      { s.store(v) }
func (s *String) Reset()            { s.store(s.def) }
func (s *String) Serialize() string { return s.value }
func (s *String) Display() string   { return s.value }

// Deserialize принимает любую строку, включая пустую.
func (s *String) Deserialize(v string) error {
	s.store(v)
	return nil
}

// OnChange добавляет наблюдателя изменений.
func (s *String) OnChange(fn func(string)) *String {
	s.observe(fn)
	return s
}

// Mode - выбор одного значения из фиксированного списка.
type Mode struct {
	core[string]
	options []string
}

// NewMode создаёт настройку-режим. Паникует, если def отсутствует в options:
// это ошибка в коде модуля.
func NewMode(name, description, def string, options ...string) *Mode {
	m := &Mode{core: newCore(name, description, def), options: append([]string(nil), options...)}
	if m.indexOf(def) < 0 {
		panic(fmt.Sprintf("setting %s: режим по умолчанию %q отсутствует в списке %v", name, def, options))
	}
	return m
}

func (m *Mode) indexOf(v string) int {
	for i, o := range m.options {
		if o == v {
			return i
		}
	}
	return -1
}

func (m *Mode) Type() Type        { return TypeMode }
func (m *Mode) Get() string       { return m.value }
func (m *Mode) Default() string   { return m.def }
func (m *Mode) Reset()            { m.store(m.def) }
func (m *Mode) Serialize() string { return m.value }
func (m *Mode) Display() string   { return m.value }

// Options возвращает копию списка режимов.
func (m *Mode) Options() []string { return append([]string(nil), m.options...) }

// Index - позиция текущего режима.
func (m *Mode) Index() int { return m.indexOf(m.value) }

// Is сравнивает текущий режим без учёта регистра.
func (m *Mode) Is(name string) bool { return strings.EqualFold(m.value, name) }

// Set выбирает режим; значения вне списка игнорируются.
func (m *Mode) Set(v string) bool {
	if m.indexOf(v) < 0 {
		return false
	}
	m.store(v)
	return true
}

// Cycle переключает на следующий режим по кругу.
func (m *Mode) Cycle() {
	m.store(m.options[(m.Index()+1)%len(m.options)])
}

// CyclePrevious переключает на предыдущий режим по кругу.
func (m *Mode) CyclePrevious() {
	n := len(m.options)
	m.store(m.options[(m.Index()-1+n)%n])
}

func (m *Mode) Deserialize(s string) error {
	if m.indexOf(s) < 0 {
		err := fmt.Errorf("режим %q не входит в %v", s, m.options)
		warnMalformed(m.name, s, err)
		m.store(m.def)
		return err
	}
	m.store(s)
	return nil
}

// OnChange добавляет наблюдателя изменений.
func (m *Mode) OnChange(fn func(string)) *Mode {
	m.observe(fn)
	return m
}
