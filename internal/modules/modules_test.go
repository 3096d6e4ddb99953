package modules

import (
	"strings"
	"testing"
	"time"

	"github.com/annel0/modrt/internal/event"
	"github.com/annel0/modrt/internal/eventbus"
	"github.com/annel0/modrt/internal/module"
	"github.com/annel0/modrt/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nameSet map[string]bool

func (n nameSet) Contains(name string) bool { return n[strings.ToLower(name)] }

type harness struct {
	bus   *eventbus.Bus
	sched *scheduler.Scheduler
	mgr   *module.Manager
}

func newHarness(t *testing.T, friends ...string) *harness {
	t.Helper()
	names := nameSet{}
	for _, f := range friends {
		names[strings.ToLower(f)] = true
	}
	h := &harness{bus: eventbus.NewBus(), sched: scheduler.New()}
	h.mgr = module.NewManager(module.Env{Bus: h.bus, Scheduler: h.sched, Names: names})
	for _, m := range module.Discover(Catalog()) {
		require.True(t, h.mgr.Register(m))
	}
	return h
}

func get[T module.Module](t *testing.T, h *harness) T {
	t.Helper()
	m, ok := module.Find[T](h.mgr)
	require.True(t, ok)
	return m
}

func TestCatalog(t *testing.T) {
	mods := module.Discover(Catalog())
	names := make([]string, 0, len(mods))
	for _, m := range mods {
		names = append(names, m.Name())
	}
	assert.Equal(t, []string{"ToggleSprint", "NoJumpDelay", "FastPlace", "IgnoreList", "AutoSprint"}, names)

	ts := mods[0]
	assert.Equal(t, module.Movement, ts.Category())
	assert.Equal(t, 71, ts.DefaultKeybind())
	for _, m := range mods[1:] {
		assert.Equal(t, event.KeyUnbound, m.DefaultKeybind(), m.Name())
	}
}

func TestToggleSprint(t *testing.T) {
	h := newHarness(t)
	ts := get[*ToggleSprint](t, h)

	ev := h.bus.Post(&event.MovementInput{}).(*event.MovementInput)
	assert.False(t, ev.Sprint, "выключенный модуль не влияет на ввод")

	// Включение клавишей G
	h.bus.Post(&event.KeyPress{Key: module.KeyG, Action: event.ActionPress})
	require.True(t, ts.Enabled())

	ev = h.bus.Post(&event.MovementInput{}).(*event.MovementInput)
	assert.True(t, ev.Forwards)
	assert.True(t, ev.Sprint)

	require.True(t, ts.Mode().Set(SprintHoldForward))
	ev = h.bus.Post(&event.MovementInput{}).(*event.MovementInput)
	assert.False(t, ev.Sprint)
	ev = h.bus.Post(&event.MovementInput{Forwards: true}).(*event.MovementInput)
	assert.True(t, ev.Sprint)

	require.NoError(t, ts.Setting("Sprint In Water").Deserialize("false"))
	ev = h.bus.Post(&event.MovementInput{Forwards: true, InWater: true}).(*event.MovementInput)
	assert.False(t, ev.Sprint)
}

func TestToggleSprint_HUDText(t *testing.T) {
	h := newHarness(t)
	ts := get[*ToggleSprint](t, h)
	ts.SetEnabled(true)
	assert.Empty(t, ts.HUDText())

	require.NoError(t, ts.Setting("HUD Indicator").Deserialize("true"))
	assert.Equal(t, "Sprinting (Always)", ts.HUDText())
}

func TestNoJumpDelay(t *testing.T) {
	h := newHarness(t)
	get[*NoJumpDelay](t, h).SetEnabled(true)

	own := h.bus.Post(&event.AiStep{Self: true, NoJumpDelay: 10}).(*event.AiStep)
	assert.Zero(t, own.NoJumpDelay)

	other := h.bus.Post(&event.AiStep{EntityID: 7, NoJumpDelay: 10}).(*event.AiStep)
	assert.Equal(t, 10, other.NoJumpDelay, "чужие сущности не меняются")
}

func TestFastPlace(t *testing.T) {
	h := newHarness(t)
	fp := get[*FastPlace](t, h)
	fp.SetEnabled(true)

	for i := 0; i < 50; i++ {
		ev := h.bus.Post(&event.UseCooldown{Cooldown: 4, Target: event.UseBlock}).(*event.UseCooldown)
		assert.GreaterOrEqual(t, ev.Cooldown, 1)
		assert.LessOrEqual(t, ev.Cooldown, 3)
	}

	ev := h.bus.Post(&event.UseCooldown{Cooldown: 4, Target: event.UseOther}).(*event.UseCooldown)
	assert.Equal(t, 4, ev.Cooldown, "прочие предметы не затрагиваются")

	require.NoError(t, fp.Setting("Target Type").Deserialize(TargetProjectiles))
	ev = h.bus.Post(&event.UseCooldown{Cooldown: 4, Target: event.UseBlock}).(*event.UseCooldown)
	assert.Equal(t, 4, ev.Cooldown)

	require.NoError(t, fp.Setting("Start Delay").Deserialize("200"))
	ev = h.bus.Post(&event.UseCooldown{Cooldown: 4, Target: event.UseProjectile, HeldFor: 100 * time.Millisecond}).(*event.UseCooldown)
	assert.Equal(t, 4, ev.Cooldown, "до истечения стартовой задержки значение не меняется")

	fp.Cooldown().SetRange(2, 2)
	ev = h.bus.Post(&event.UseCooldown{Cooldown: 4, Target: event.UseProjectile, HeldFor: time.Second}).(*event.UseCooldown)
	assert.Equal(t, 2, ev.Cooldown)
}

func TestIgnoreList(t *testing.T) {
	h := newHarness(t, "Alice")
	il := get[*IgnoreList](t, h)

	ev := h.bus.Post(&event.AttackEntity{TargetName: "alice"})
	assert.False(t, ev.Cancelled(), "выключенный модуль ничего не отменяет")

	il.SetEnabled(true)
	ev = h.bus.Post(&event.AttackEntity{TargetName: "ALICE"})
	assert.True(t, ev.Cancelled())
	ev = h.bus.Post(&event.AttackEntity{TargetName: "Bob"})
	assert.False(t, ev.Cancelled())
	assert.Equal(t, 1, il.Blocked())

	require.NoError(t, il.Setting("Friends").Deserialize("false"))
	ev = h.bus.Post(&event.AttackEntity{TargetName: "Alice"})
	assert.False(t, ev.Cancelled())
}

func TestAutoSprint_ResprintAfterDelay(t *testing.T) {
	h := newHarness(t)
	as := get[*AutoSprint](t, h)
	as.ResprintDelay().SetRange(2, 2)
	as.SetEnabled(true)

	h.bus.Post(&event.AttackEntity{TargetName: "Bob"})
	require.True(t, as.Tapping())

	ev := h.bus.Post(&event.MovementInput{Forwards: true, Sprint: true}).(*event.MovementInput)
	assert.False(t, ev.Sprint)
	assert.False(t, ev.Forwards)

	// Повторный удар во время сброса не планирует новую задачу
	h.bus.Post(&event.AttackEntity{TargetName: "Bob"})
	assert.Equal(t, 1, h.sched.Pending())

	h.sched.Advance()
	assert.True(t, as.Tapping())
	h.sched.Advance()

	ev = h.bus.Post(&event.MovementInput{}).(*event.MovementInput)
	assert.True(t, ev.Sprint)
	assert.True(t, ev.Forwards)
	assert.False(t, as.Tapping())

	taps, resprints := as.Stats()
	assert.Equal(t, 1, taps)
	assert.Equal(t, 1, resprints)
}

func TestAutoSprint_OverridesToggleSprint(t *testing.T) {
	h := newHarness(t)
	get[*ToggleSprint](t, h).SetEnabled(true)
	as := get[*AutoSprint](t, h)
	as.SetEnabled(true)

	h.bus.Post(&event.AttackEntity{TargetName: "Bob"})
	ev := h.bus.Post(&event.MovementInput{}).(*event.MovementInput)
	assert.False(t, ev.Sprint, "сброс AutoSprint выполняется после ToggleSprint")
}

func TestAutoSprint_IgnoresCancelledAttack(t *testing.T) {
	h := newHarness(t, "Alice")
	get[*IgnoreList](t, h).SetEnabled(true)
	as := get[*AutoSprint](t, h)
	as.SetEnabled(true)

	h.bus.Post(&event.AttackEntity{TargetName: "Alice"})
	assert.False(t, as.Tapping())
	assert.Zero(t, h.sched.Pending())
}

func TestAutoSprint_DisableCancelsToken(t *testing.T) {
	h := newHarness(t)
	as := get[*AutoSprint](t, h)
	as.ResprintDelay().SetRange(1, 1)
	as.SetEnabled(true)

	h.bus.Post(&event.AttackEntity{TargetName: "Bob"})
	require.True(t, as.Tapping())

	as.SetEnabled(false)
	assert.False(t, as.Tapping())
	h.sched.Advance()

	_, resprints := as.Stats()
	assert.Zero(t, resprints)
	assert.Equal(t, uint64(1), h.sched.Stats().Cancelled)
}
