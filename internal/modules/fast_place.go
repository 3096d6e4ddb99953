package modules

import (
	"time"

	"github.com/annel0/modrt/internal/event"
	"github.com/annel0/modrt/internal/eventbus"
	"github.com/annel0/modrt/internal/module"
	"github.com/annel0/modrt/internal/setting"
)

const (
	TargetBoth        = "Both"
	TargetBlocks      = "Blocks Only"
	TargetProjectiles = "Projectiles Only"
)

// FastPlace сокращает задержку использования блоков и снарядов.
type FastPlace struct {
	module.Base

	cooldown   *setting.Range
	startDelay *setting.Number
	targetType *setting.Mode
}

func NewFastPlace() *FastPlace {
	m := &FastPlace{
		Base: module.NewBase("FastPlace", "Allows you to place blocks or use projectiles faster.", module.Misc, event.KeyUnbound),
	}
	m.cooldown = module.AddSetting(&m.Base, setting.NewIntRange("Cooldown", "Cooldown delay for placing items (ticks)", 1, 3, 1, 5))
	m.startDelay = module.AddSetting(&m.Base, setting.NewInt("Start Delay", "Delay before fast place starts (ms)", 0, 0, 1000))
	m.targetType = module.AddSetting(&m.Base, setting.NewMode("Target Type", "Which items FastPlace applies to",
		TargetBoth, TargetBoth, TargetBlocks, TargetProjectiles))
	return m
}

func (m *FastPlace) Listeners() []eventbus.Binding {
	return []eventbus.Binding{eventbus.On(m.onUseCooldown)}
}

// Cooldown возвращает диапазон задержки.
func (m *FastPlace) Cooldown() *setting.Range { return m.cooldown }

func (m *FastPlace) applies(target event.UseTarget) bool {
	switch {
	case m.targetType.Is(TargetBlocks):
		return target == event.UseBlock
	case m.targetType.Is(TargetProjectiles):
		return target == event.UseProjectile
	default:
		return target == event.UseBlock || target == event.UseProjectile
	}
}

func (m *FastPlace) onUseCooldown(ev *event.UseCooldown) {
	if !m.applies(ev.Target) {
		return
	}
	if ev.HeldFor < time.Duration(m.startDelay.Int())*time.Millisecond {
		return
	}
	ev.Cooldown = m.cooldown.SampleInt()
}
