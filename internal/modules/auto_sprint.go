package modules

import (
	"github.com/annel0/modrt/internal/event"
	"github.com/annel0/modrt/internal/eventbus"
	"github.com/annel0/modrt/internal/module"
	"github.com/annel0/modrt/internal/scheduler"
	"github.com/annel0/modrt/internal/setting"
)

// tapPhase - состояние сброса спринта после удара.
type tapPhase int

const (
	phaseIdle     tapPhase = iota // спринт не трогаем
	phaseReleased                 // спринт и движение вперёд сброшены
	phaseResprint                 // на следующем вводе движения спринт восстанавливается
)

// AutoSprint после удара сбрасывает спринт (W-tap или S-tap) и через
// случайную задержку в тиках восстанавливает его.
type AutoSprint struct {
	module.Base

	delay *setting.Range
	sTap  *setting.Bool

	phase     tapPhase
	pending   *scheduler.Token
	taps      int
	resprints int
}

func NewAutoSprint() *AutoSprint {
	m := &AutoSprint{
		Base: module.NewBase("AutoSprint", "Automatically resets sprint after each hit", module.Movement, event.KeyUnbound),
	}
	m.delay = module.AddSetting(&m.Base, setting.NewIntRange("Resprint Delay", "Ticks before sprint is restored", 1, 2, 1, 10))
	m.sTap = module.AddSetting(&m.Base, setting.NewBool("S-Tap", "Step back instead of releasing forward", false))
	return m
}

// Слушатель движения идёт после ToggleSprint, чтобы его сброс не перезаписывался.
func (m *AutoSprint) Listeners() []eventbus.Binding {
	return []eventbus.Binding{
		eventbus.On(m.onAttack).Named("AutoSprint.onAttack"),
		eventbus.On(m.onMovementInput).WithPriority(event.Low).Named("AutoSprint.onMovementInput"),
	}
}

// ResprintDelay возвращает диапазон задержки.
func (m *AutoSprint) ResprintDelay() *setting.Range { return m.delay }

// Tapping сообщает, что спринт сейчас сброшен.
func (m *AutoSprint) Tapping() bool { return m.phase != phaseIdle }

// Stats - число сбросов и восстановлений спринта.
func (m *AutoSprint) Stats() (taps, resprints int) { return m.taps, m.resprints }

func (m *AutoSprint) OnDisable() {
	if m.pending != nil {
		m.pending.Cancel()
		m.pending = nil
	}
	m.phase = phaseIdle
}

func (m *AutoSprint) onAttack(ev *event.AttackEntity) {
	if m.phase != phaseIdle {
		return
	}

	ticks := m.delay.SampleInt()
	token := m.Delay(ticks, m.restore)
	if token == nil || token.Cancelled() {
		return
	}
	m.pending = token
	m.phase = phaseReleased
	m.taps++
	m.Logger().Debug("AutoSprint: удар по %s, спринт вернётся через %d тик(ов)", ev.TargetName, ticks)
}

func (m *AutoSprint) restore() {
	m.pending = nil
	if m.phase == phaseReleased {
		m.phase = phaseResprint
	}
}

func (m *AutoSprint) onMovementInput(ev *event.MovementInput) {
	switch m.phase {
	case phaseReleased:
		ev.Sprint = false
		ev.Forwards = false
		ev.Backwards = m.sTap.Get()
	case phaseResprint:
		ev.Forwards = true
		ev.Backwards = false
		ev.Sprint = true
		m.phase = phaseIdle
		m.resprints++
	}
}
