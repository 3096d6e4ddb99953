package runtime

import (
	"time"

	"github.com/annel0/modrt/internal/event"
	"github.com/annel0/modrt/internal/eventbus"
	"github.com/annel0/modrt/internal/scheduler"
)

// Обработчики хоста. Вызываются только из управляющего потока.

// KeyInput публикует KeyPress. true - хост должен подавить своё действие.
func (r *Runtime) KeyInput(key, scanCode, action, modifiers int) (suppress bool) {
	ev := r.Bus.Post(&event.KeyPress{Key: key, ScanCode: scanCode, Action: action, Modifiers: modifiers})
	return ev != nil && ev.Cancelled()
}

// Render публикует проход отрисовки.
func (r *Runtime) Render(tickDelta float64) {
	r.Bus.Post(&event.Render{TickDelta: tickDelta})
}

// RenderTaskQueue публикует обработку очереди задач рендера.
func (r *Runtime) RenderTaskQueue() {
	r.Bus.Post(&event.RenderTaskQueue{})
}

// AiStep публикует шаг ИИ и возвращает итоговую задержку прыжка.
func (r *Runtime) AiStep(entityID uint64, self bool, noJumpDelay int) int {
	ev := &event.AiStep{EntityID: entityID, Self: self, NoJumpDelay: noJumpDelay}
	r.Bus.Post(ev)
	return ev.NoJumpDelay
}

// Attack публикует атаку. true - удар нужно отменить.
func (r *Runtime) Attack(targetID uint64, targetName string) (cancelled bool) {
	ev := r.Bus.Post(&event.AttackEntity{TargetID: targetID, TargetName: targetName})
	return ev != nil && ev.Cancelled()
}

// MovementInput публикует ввод движения и возвращает его после слушателей.
func (r *Runtime) MovementInput(in event.MovementInput) event.MovementInput {
	ev := in
	ev.SetCancelled(false)
	r.Bus.Post(&ev)
	return ev
}

// UseCooldown публикует задержку использования и возвращает итоговую.
func (r *Runtime) UseCooldown(cooldown int, target event.UseTarget, heldFor time.Duration) int {
	ev := &event.UseCooldown{Cooldown: cooldown, Target: target, HeldFor: heldFor}
	r.Bus.Post(ev)
	return ev.Cooldown
}

// Stats - сводка для API и логов.
type Stats struct {
	Ticks        uint64          `json:"ticks"`
	Uptime       time.Duration   `json:"uptime"`
	Modules      int             `json:"modules"`
	Enabled      int             `json:"enabled"`
	Bus          eventbus.Stats  `json:"bus"`
	Scheduler    scheduler.Stats `json:"scheduler"`
	Saves        uint64          `json:"saves"`
	SaveFailures uint64          `json:"save_failures"`
}

// Ticks - число выполненных тиков.
func (r *Runtime) Ticks() uint64 { return r.ticks.Load() }

// Stats собирает счётчики. Вызывается из управляющего потока или через Do.
func (r *Runtime) Stats() Stats {
	saves, failures := r.Bridge.Stats()
	return Stats{
		Ticks:        r.ticks.Load(),
		Uptime:       time.Since(r.started),
		Modules:      len(r.Manager.All()),
		Enabled:      len(r.Manager.Enabled()),
		Bus:          r.Bus.Stats(),
		Scheduler:    r.Scheduler.Stats(),
		Saves:        saves,
		SaveFailures: failures,
	}
}
