package modules

import (
	"github.com/annel0/modrt/internal/event"
	"github.com/annel0/modrt/internal/eventbus"
	"github.com/annel0/modrt/internal/module"
	"github.com/annel0/modrt/internal/setting"
)

const (
	SprintAlways      = "Always"
	SprintHoldForward = "Hold Forward"
)

// ToggleSprint держит спринт включённым, пока включён модуль.
type ToggleSprint struct {
	module.Base

	mode          *setting.Mode
	sprintInWater *setting.Bool
	hud           *setting.Bool
}

// NewToggleSprint создаёт модуль с клавишей G.
func NewToggleSprint() *ToggleSprint {
	m := &ToggleSprint{
		Base: module.NewBase("ToggleSprint", "Toggle sprint on/off permanently", module.Movement, module.KeyG),
	}
	m.mode = module.AddSetting(&m.Base, setting.NewMode("Mode", "Sprint behavior mode",
		SprintAlways, SprintAlways, SprintHoldForward))
	m.sprintInWater = module.AddSetting(&m.Base, setting.NewBool("Sprint In Water", "Allow sprinting while in water", true))
	m.hud = module.AddSetting(&m.Base, setting.NewBool("HUD Indicator", "Show sprint status on screen", false))
	return m
}

func (m *ToggleSprint) Listeners() []eventbus.Binding {
	return []eventbus.Binding{
		eventbus.On(m.onMovementInput).Named("ToggleSprint.onMovementInput"),
	}
}

// Mode возвращает настройку режима.
func (m *ToggleSprint) Mode() *setting.Mode { return m.mode }

// HUDText - строка индикатора или "", если индикатор выключен.
func (m *ToggleSprint) HUDText() string {
	if !m.hud.Get() || !m.Enabled() {
		return ""
	}
	return "Sprinting (" + m.mode.Get() + ")"
}

func (m *ToggleSprint) onMovementInput(ev *event.MovementInput) {
	if ev.InWater && !m.sprintInWater.Get() {
		return
	}

	switch {
	case m.mode.Is(SprintAlways):
		ev.Forwards = true
		ev.Sprint = true
	case m.mode.Is(SprintHoldForward):
		if ev.Forwards {
			ev.Sprint = true
		}
	}
}
