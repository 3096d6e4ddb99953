// Package event описывает виды событий, которые хост публикует в шину,
// и общий для них флаг отмены.
package event

import "fmt"

// Kind - тег конкретного вида события.
type Kind string

const (
	KindTick            Kind = "tick"
	KindKeyPress        Kind = "key_press"
	KindRender          Kind = "render"
	KindRenderTaskQueue Kind = "render_task_queue"
	KindAiStep          Kind = "ai_step"
	KindAttackEntity    Kind = "attack_entity"
	KindMovementInput   Kind = "movement_input"
	KindModuleToggle    Kind = "module_toggle"
	KindUseCooldown     Kind = "use_cooldown"
)

// Event - любое событие шины. Методы Kind должны работать и на nil-указателе,
// поэтому реализации возвращают константу и не трогают поля.
type Event interface {
	Kind() Kind
	Cancelled() bool
	SetCancelled(bool)
}

// Cancellable хранит флаг отмены; встраивается во все события.
type Cancellable struct {
	cancelled bool
}

// Cancelled сообщает, отменено ли событие.
func (c *Cancellable) Cancelled() bool { return c.cancelled }

// SetCancelled выставляет или снимает отмену.
func (c *Cancellable) SetCancelled(v bool) { c.cancelled = v }

// Cancel - сокращение для SetCancelled(true).
func (c *Cancellable) Cancel() { c.cancelled = true }

// Priority - порядок вызова слушателей; меньшее значение вызывается раньше.
type Priority int

const (
	Highest Priority = iota
	High
	Normal
	Low
	Lowest
)

// Valid проверяет, что приоритет входит в перечисление.
func (p Priority) Valid() bool { return p >= Highest && p <= Lowest }

func (p Priority) String() string {
	switch p {
	case Highest:
		return "HIGHEST"
	case High:
		return "HIGH"
	case Normal:
		return "NORMAL"
	case Low:
		return "LOW"
	case Lowest:
		return "LOWEST"
	default:
		return fmt.Sprintf("Priority(%d)", int(p))
	}
}
