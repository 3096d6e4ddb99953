// Package modules содержит встроенные модули поведения.
package modules

import "github.com/annel0/modrt/internal/module"

// Catalog возвращает каталог встроенных модулей.
// ToggleSprint создаётся первым, остальные в порядке добавления.
func Catalog() *module.Catalog {
	return module.NewCatalog().
		AddNamed("ToggleSprint", 0, func() module.Module { return NewToggleSprint() }).
		AddNamed("NoJumpDelay", 10, func() module.Module { return NewNoJumpDelay() }).
		AddNamed("FastPlace", 10, func() module.Module { return NewFastPlace() }).
		AddNamed("IgnoreList", 10, func() module.Module { return NewIgnoreList() }).
		AddNamed("AutoSprint", 20, func() module.Module { return NewAutoSprint() })
}
