package modules

import (
	"github.com/annel0/modrt/internal/event"
	"github.com/annel0/modrt/internal/eventbus"
	"github.com/annel0/modrt/internal/module"
)

// NoJumpDelay обнуляет задержку прыжка на каждом шаге ИИ локального игрока.
type NoJumpDelay struct {
	module.Base
}

func NewNoJumpDelay() *NoJumpDelay {
	return &NoJumpDelay{
		Base: module.NewBase("NoJumpDelay", "Removes the jump cooldown", module.Misc, event.KeyUnbound),
	}
}

func (m *NoJumpDelay) Listeners() []eventbus.Binding {
	return []eventbus.Binding{eventbus.On(m.onAiStep)}
}

func (m *NoJumpDelay) onAiStep(ev *event.AiStep) {
	if ev.Self {
		ev.NoJumpDelay = 0
	}
}
