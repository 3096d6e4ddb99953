package runtime

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/annel0/modrt/internal/event"
	"github.com/annel0/modrt/internal/eventbus"
	"github.com/annel0/modrt/internal/module"
	"github.com/annel0/modrt/internal/modules"
	"github.com/annel0/modrt/internal/namelist"
	"github.com/annel0/modrt/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newRuntime(t *testing.T, opts Options) *Runtime {
	t.Helper()
	rt, err := New(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = rt.Shutdown(ctx)
	})
	return rt
}

func TestNew_LoadsBuiltinModules(t *testing.T) {
	rt := newRuntime(t, Options{})
	assert.Len(t, rt.Manager.All(), 5)
	assert.NotNil(t, rt.Manager.Get("ToggleSprint"))
	assert.True(t, rt.Manager.Initialized())
}

func TestNew_AppliesStoredConfig(t *testing.T) {
	repo := storage.NewMemoryConfigRepo()
	snap := storage.NewSnapshot()
	snap.Modules["ToggleSprint"] = storage.ModuleRecord{Enabled: true, Keybind: storage.Key(module.KeyZ)}
	require.NoError(t, repo.Save(context.Background(), snap))

	rt := newRuntime(t, Options{Store: repo})
	ts := rt.Manager.Get("togglesprint")
	require.NotNil(t, ts)
	assert.True(t, ts.Enabled())
	assert.Equal(t, module.KeyZ, ts.Keybind())
}

func TestTick_Order(t *testing.T) {
	rt := newRuntime(t, Options{Catalog: module.NewCatalog()})

	var order []string
	rt.Bus.Register(eventbus.NewGroup("tick-probe", eventbus.On(func(*event.Tick) {
		order = append(order, "tick")
	})))
	rt.Delay(0, func() { order = append(order, "task") })

	done := make(chan error, 1)
	go func() {
		done <- rt.Do(context.Background(), func() { order = append(order, "command") })
	}()
	require.Eventually(t, func() bool { return len(rt.inbox) == 1 }, time.Second, time.Millisecond)

	rt.Tick()
	require.NoError(t, <-done)
	assert.Equal(t, []string{"command", "task", "tick"}, order)
	assert.Equal(t, uint64(1), rt.Ticks())
}

func TestDo_PanicReturnsError(t *testing.T) {
	rt := newRuntime(t, Options{Catalog: module.NewCatalog()})

	done := make(chan error, 1)
	go func() { done <- rt.Do(context.Background(), func() { panic("сбой") }) }()
	require.Eventually(t, func() bool {
		rt.Tick()
		return len(done) == 1
	}, time.Second, time.Millisecond)
	assert.Error(t, <-done)
}

func TestDo_ContextCancelled(t *testing.T) {
	rt := newRuntime(t, Options{Catalog: module.NewCatalog()})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := rt.Do(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestShutdown(t *testing.T) {
	repo := storage.NewMemoryConfigRepo()
	rt, err := New(context.Background(), Options{Store: repo})
	require.NoError(t, err)

	rt.Manager.Get("NoJumpDelay").SetEnabled(true)
	ran := false
	rt.Delay(5, func() { ran = true })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, rt.Shutdown(ctx))
	require.NoError(t, rt.Shutdown(ctx), "повторный вызов безопасен")

	assert.True(t, rt.Stopped())
	assert.Zero(t, rt.Scheduler.Pending())
	assert.ErrorIs(t, rt.Do(ctx, func() {}), ErrStopped)

	rt.Tick()
	assert.False(t, ran)
	assert.Zero(t, rt.Ticks())

	rec, err := repo.Get("NoJumpDelay")
	require.NoError(t, err)
	assert.True(t, rec.Enabled, "состояние сохраняется при остановке")
}

func TestDo_ShutdownReleasesWaiters(t *testing.T) {
	rt, err := New(context.Background(), Options{Catalog: module.NewCatalog(), InboxSize: 1})
	require.NoError(t, err)

	// Первая команда занимает очередь, вторая ждёт места в ней
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { results <- rt.Do(ctx, func() {}) }()
	}
	require.Eventually(t, func() bool { return len(rt.inbox) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, rt.Shutdown(context.Background()))

	for i := 0; i < 2; i++ {
		select {
		case err := <-results:
			assert.ErrorIs(t, err, ErrStopped, "ожидающая команда должна получить ErrStopped, а не таймаут")
		case <-time.After(time.Second):
			t.Fatal("Do не освободился после Shutdown")
		}
	}
	assert.NoError(t, ctx.Err())
}

func TestRun(t *testing.T) {
	rt := newRuntime(t, Options{Catalog: module.NewCatalog()})

	assert.Error(t, rt.Run(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx, 200) }()

	var executed atomic.Bool
	require.NoError(t, rt.Do(context.Background(), func() { executed.Store(true) }))
	assert.True(t, executed.Load())

	require.Eventually(t, func() bool { return rt.Ticks() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestHostCallbacks(t *testing.T) {
	friends, err := namelist.Open(filepath.Join(t.TempDir(), "friends.txt"))
	require.NoError(t, err)
	friends.Add("Alice")

	rt := newRuntime(t, Options{Friends: friends})
	for _, name := range []string{"NoJumpDelay", "FastPlace", "IgnoreList"} {
		rt.Manager.Get(name).SetEnabled(true)
	}

	assert.Zero(t, rt.AiStep(1, true, 10))
	assert.Equal(t, 10, rt.AiStep(2, false, 10))

	assert.True(t, rt.Attack(1, "alice"))
	assert.False(t, rt.Attack(2, "bob"))

	cd := rt.UseCooldown(4, event.UseBlock, time.Second)
	assert.GreaterOrEqual(t, cd, 1)
	assert.LessOrEqual(t, cd, 3)

	// G включает ToggleSprint, после чего ввод движения получает спринт
	assert.False(t, rt.KeyInput(module.KeyG, 0, event.ActionPress, 0))
	out := rt.MovementInput(event.MovementInput{})
	assert.True(t, out.Sprint)

	rt.Render(0.5)
	rt.RenderTaskQueue()

	stats := rt.Stats()
	assert.Equal(t, 5, stats.Modules)
	assert.Equal(t, 4, stats.Enabled)
	assert.NotZero(t, stats.Bus.Posted)
}

func TestKeyInput_Suppress(t *testing.T) {
	rt := newRuntime(t, Options{Catalog: module.NewCatalog()})
	rt.Bus.Register(eventbus.NewGroup("swallow", eventbus.On(func(ev *event.KeyPress) {
		if ev.Key == module.KeyZ {
			ev.Cancel()
		}
	})))
	assert.True(t, rt.KeyInput(module.KeyZ, 0, event.ActionPress, 0))
	assert.False(t, rt.KeyInput(module.KeyA, 0, event.ActionPress, 0))
}

func TestSetInputCaptured(t *testing.T) {
	rt := newRuntime(t, Options{Catalog: module.NewCatalog().Add(0, func() module.Module {
		return modules.NewToggleSprint()
	})})
	rt.SetInputCaptured(func() bool { return true })
	rt.KeyInput(module.KeyG, 0, event.ActionPress, 0)
	assert.False(t, rt.Manager.Get("ToggleSprint").Enabled())
}

type brokenRepo struct{ storage.MemoryConfigRepo }

func (*brokenRepo) Load(context.Context) (storage.Snapshot, error) {
	return storage.Snapshot{}, errors.New("хранилище недоступно")
}

func TestNew_LoadFailureIsNotFatal(t *testing.T) {
	rt := newRuntime(t, Options{Store: &brokenRepo{}})
	assert.Len(t, rt.Manager.All(), 5)
	assert.Empty(t, rt.Manager.Enabled())
}
