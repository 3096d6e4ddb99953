package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/annel0/modrt/internal/auth"
	"github.com/annel0/modrt/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// workspace создаёт конфигурацию с файловым хранилищем во временном каталоге.
func workspace(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	body := "runtime:\n  config_dir: " + dir + "\n" + extra
	path := filepath.Join(dir, "modrt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Cleanup(logging.CloseDefaultLogger)
	return path
}

func execute(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestFriendsCommands(t *testing.T) {
	cfg := workspace(t, "")

	out, err := execute(t, cfg, "friends", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Список пуст")

	out, err = execute(t, cfg, "friends", "add", "Alice", "Bob")
	require.NoError(t, err)
	assert.Contains(t, out, "✅ Alice добавлен")

	out, err = execute(t, cfg, "friends", "add", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "уже в списке")

	out, err = execute(t, cfg, "friends", "list")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, strings.Fields(out))

	_, err = execute(t, cfg, "friends", "remove", "ghost")
	assert.Error(t, err, "удаление только отсутствующих имён - ошибка")

	_, err = execute(t, cfg, "friends", "remove", "BOB", "ghost")
	require.NoError(t, err)
	out, err = execute(t, cfg, "friends", "list")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, strings.Fields(out))
}

func findRow(t *testing.T, out, name string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, name+" ") {
			return line
		}
	}
	t.Fatalf("модуль %s не найден в выводе:\n%s", name, out)
	return ""
}

func TestModulesCommands(t *testing.T) {
	cfg := workspace(t, "")

	out, err := execute(t, cfg, "modules", "list")
	require.NoError(t, err)
	cols := strings.Fields(findRow(t, out, "ToggleSprint"))
	assert.Equal(t, []string{"ToggleSprint", "Movement", "false", "G"}, cols[:4])

	out, err = execute(t, cfg, "modules", "enable", "togglesprint")
	require.NoError(t, err)
	assert.Contains(t, out, "✅ ToggleSprint: включён=true")

	_, err = execute(t, cfg, "modules", "set", "FastPlace", "Start Delay", "250")
	require.NoError(t, err)

	_, err = execute(t, cfg, "modules", "set", "FastPlace", "Start Delay", "abc")
	assert.Error(t, err)
	_, err = execute(t, cfg, "modules", "set", "FastPlace", "Nope", "1")
	assert.Error(t, err)
	_, err = execute(t, cfg, "modules", "enable", "Nope")
	assert.Error(t, err)

	out, err = execute(t, cfg, "modules", "list")
	require.NoError(t, err)
	assert.Equal(t, "true", strings.Fields(findRow(t, out, "ToggleSprint"))[2])
	assert.Contains(t, findRow(t, out, "FastPlace"), "Start Delay=250", "неудачная запись не затирает значение")

	out, err = execute(t, cfg, "modules", "reset-keybinds")
	require.NoError(t, err)
	assert.Contains(t, out, "Клавиши сброшены у 5 модулей")

	out, err = execute(t, cfg, "modules", "list")
	require.NoError(t, err)
	assert.Equal(t, "true", strings.Fields(findRow(t, out, "ToggleSprint"))[2], "сброс клавиш не меняет включение")
}

func TestTokenCommand(t *testing.T) {
	_, err := execute(t, workspace(t, ""), "token")
	assert.Error(t, err, "без секрета токен не выпускается")

	cfg := workspace(t, "api:\n  jwt_secret: "+testSecret+"\n")
	out, err := execute(t, cfg, "token", "--subject", "ops", "--admin=false")
	require.NoError(t, err)

	signer, err := auth.NewSigner(testSecret)
	require.NoError(t, err)
	claims, err := signer.Validate(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.False(t, claims.Admin)

	out, err = execute(t, cfg, "token", "secret")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(strings.TrimSpace(out)), auth.MinSecretLen)
}
