package event

import "time"

// Фазы нажатия клавиши (совпадают с GLFW).
const (
	ActionRelease = 0
	ActionPress   = 1
	ActionRepeat  = 2
)

// KeyUnbound - значение клавиши "не назначена".
const KeyUnbound = -1

// Tick публикуется один раз за шаг хоста.
type Tick struct {
	Cancellable
}

func (*Tick) Kind() Kind { return KindTick }

// KeyPress - сырое нажатие клавиши. Если событие отменено, хост
// должен подавить собственную обработку ввода.
type KeyPress struct {
	Cancellable
	Key       int
	ScanCode  int
	Action    int
	Modifiers int
}

func (*KeyPress) Kind() Kind { return KindKeyPress }

// Render - проход отрисовки.
type Render struct {
	Cancellable
	TickDelta float64
}

func (*Render) Kind() Kind { return KindRender }

// RenderTaskQueue - обработка очереди задач рендера.
type RenderTaskQueue struct {
	Cancellable
}

func (*RenderTaskQueue) Kind() Kind { return KindRenderTaskQueue }

// AiStep - шаг ИИ сущности. NoJumpDelay можно изменить.
type AiStep struct {
	Cancellable
	EntityID    uint64
	Self        bool // сущность управляется локальным игроком
	NoJumpDelay int
}

func (*AiStep) Kind() Kind { return KindAiStep }

// AttackEntity - атака по сущности; отмена запрещает удар.
type AttackEntity struct {
	Cancellable
	TargetID   uint64
	TargetName string
}

func (*AttackEntity) Kind() Kind { return KindAttackEntity }

// MovementInput - ввод движения. Поля изменяемы и читаются
// следующими слушателями.
type MovementInput struct {
	Cancellable
	Direction DirectionalInput
	Forwards  bool
	Backwards bool
	Shift     bool
	Jump      bool
	Sprint    bool
	InWater   bool // только для чтения, заполняет хост
}

func (*MovementInput) Kind() Kind { return KindMovementInput }

// Named - всё, у чего есть имя (модуль в ModuleToggle).
type Named interface {
	Name() string
}

// ModuleToggle публикуется перед включением/выключением модуля.
// Отмена запрещает переключение.
type ModuleToggle struct {
	Cancellable
	Module  Named
	Enabled bool
}

func (*ModuleToggle) Kind() Kind { return KindModuleToggle }

// UseTarget - чем является используемый предмет.
type UseTarget int

const (
	UseOther UseTarget = iota
	UseBlock
	UseProjectile
)

// UseCooldown - задержка использования предмета в тиках.
// HeldFor - сколько удерживается клавиша использования.
type UseCooldown struct {
	Cancellable
	Cooldown int
	Target   UseTarget
	HeldFor  time.Duration
}

func (*UseCooldown) Kind() Kind { return KindUseCooldown }
