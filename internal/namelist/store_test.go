package namelist

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestOpen_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "friends.txt")
	s, err := Open(path)
	require.NoError(t, err)
	assert.Empty(t, s.List())

	_, err = os.Stat(path)
	assert.NoError(t, err, "файл создаётся при первой загрузке")
}

func TestOpen_ParsesLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "friends.txt")
	require.NoError(t, os.WriteFile(path, []byte("  Alice \n\nBOB\nalice\n\t\n"), 0o644))

	s, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, s.List())
	assert.True(t, s.Contains("ALICE"))
	assert.True(t, s.Contains(" bob "))
	assert.False(t, s.Contains("carol"))
}

func TestAddRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "friends.txt")
	s, err := Open(path)
	require.NoError(t, err)

	assert.True(t, s.Add("Carol"))
	assert.False(t, s.Add("  carol "), "повторное добавление")
	assert.False(t, s.Add("   "), "пустое имя")
	assert.True(t, s.Add("Alice"))
	assert.Equal(t, 2, s.Len())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "alice\ncarol\n", string(data))

	assert.True(t, s.Remove("CAROL"))
	assert.False(t, s.Remove("carol"))

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, reopened.List())
}

func TestConcurrentAccess(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "friends.txt"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := string(rune('a' + i))
			s.Add(name)
			s.Contains(name)
			s.List()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, s.Len())
}

func TestWatch_ReloadsExternalChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "friends.txt")
	s, err := Open(path)
	require.NoError(t, err)
	s.debounce = 20 * time.Millisecond

	reloaded := make(chan []string, 4)
	s.OnReload(func(names []string) {
		select {
		case reloaded <- names:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	// Даём наблюдателю подписаться
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("Dave\n"), 0o644))

	require.Eventually(t, func() bool { return s.Contains("dave") }, 2*time.Second, 10*time.Millisecond)
	select {
	case names := <-reloaded:
		assert.Contains(t, names, "dave")
	case <-time.After(time.Second):
		t.Fatal("обработчик перезагрузки не вызван")
	}
}
