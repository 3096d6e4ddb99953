package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/annel0/modrt/internal/auth"
	"github.com/annel0/modrt/internal/event"
	"github.com/annel0/modrt/internal/eventbus"
	"github.com/annel0/modrt/internal/module"
	"github.com/annel0/modrt/internal/namelist"
	"github.com/annel0/modrt/internal/runtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	rt  *runtime.Runtime
	srv *Server
}

func newTestEnv(t *testing.T, secret string) *testEnv {
	t.Helper()

	friends, err := namelist.Open(filepath.Join(t.TempDir(), "friends.txt"))
	require.NoError(t, err)

	rt, err := runtime.New(context.Background(), runtime.Options{Friends: friends})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx, 500) }()

	srv, err := NewServer(rt, Config{JWTSecret: secret, Registry: prometheus.NewRegistry()})
	require.NoError(t, err)

	t.Cleanup(func() {
		cancel()
		<-done
		sctx, scancel := context.WithTimeout(context.Background(), time.Second)
		defer scancel()
		_ = rt.Shutdown(sctx)
	})
	return &testEnv{rt: rt, srv: srv}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) (*httptest.ResponseRecorder, GenericResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)

	var resp GenericResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

// moduleFrom декодирует поле data ответа в ModuleView.
func moduleFrom(t *testing.T, resp GenericResponse) ModuleView {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var v ModuleView
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t, "")
	rec, _ := e.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Trace-Id"))
}

func TestModules_ListAndGet(t *testing.T) {
	e := newTestEnv(t, "")

	rec, resp := e.do(t, http.MethodGet, "/api/modules", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]interface{})
	assert.EqualValues(t, 5, data["total"])

	rec, resp = e.do(t, http.MethodGet, "/api/modules?category=Movement", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, resp.Data.(map[string]interface{})["total"])

	rec, resp = e.do(t, http.MethodGet, "/api/modules/togglesprint", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := moduleFrom(t, resp)
	assert.Equal(t, "ToggleSprint", view.Name)
	assert.Equal(t, "G", view.KeyName)
	require.Len(t, view.Settings, 3)
	assert.Equal(t, "mode", view.Settings[0].Type)

	rec, _ = e.do(t, http.MethodGet, "/api/modules/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestModules_ToggleAndEnabled(t *testing.T) {
	e := newTestEnv(t, "")

	rec, resp := e.do(t, http.MethodPost, "/api/modules/NoJumpDelay/toggle", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, moduleFrom(t, resp).Enabled)

	rec, resp = e.do(t, http.MethodPut, "/api/modules/NoJumpDelay/enabled", map[string]bool{"enabled": false}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, moduleFrom(t, resp).Enabled)

	rec, _ = e.do(t, http.MethodPut, "/api/modules/NoJumpDelay/enabled", map[string]string{}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestModules_ToggleVetoed(t *testing.T) {
	e := newTestEnv(t, "")
	veto := eventbus.NewGroup("veto", eventbus.On(func(ev *event.ModuleToggle) { ev.Cancel() }))
	require.NoError(t, e.rt.Do(context.Background(), func() { e.rt.Bus.Register(veto) }))

	rec, resp := e.do(t, http.MethodPost, "/api/modules/FastPlace/toggle", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, moduleFrom(t, resp).Enabled)
}

func TestModules_Keybind(t *testing.T) {
	e := newTestEnv(t, "")

	rec, resp := e.do(t, http.MethodPut, "/api/modules/ToggleSprint/keybind", map[string]int{"keybind": -1}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "None", moduleFrom(t, resp).KeyName)

	rec, resp = e.do(t, http.MethodPut, "/api/modules/ToggleSprint/keybind", map[string]string{"key": "f5"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, module.KeyF1+4, moduleFrom(t, resp).Keybind)

	rec, _ = e.do(t, http.MethodPut, "/api/modules/ToggleSprint/keybind", map[string]string{"key": "bogus"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp = e.do(t, http.MethodPost, "/api/modules/ToggleSprint/keybind/reset", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, module.KeyG, moduleFrom(t, resp).Keybind)

	e.do(t, http.MethodPut, "/api/modules/ToggleSprint/keybind", map[string]int{"keybind": module.KeyZ}, "")
	rec, _ = e.do(t, http.MethodPost, "/api/keybinds/reset", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	_, resp = e.do(t, http.MethodGet, "/api/modules/ToggleSprint", nil, "")
	assert.Equal(t, module.KeyG, moduleFrom(t, resp).Keybind)
}

func TestModules_Settings(t *testing.T) {
	e := newTestEnv(t, "")

	rec, resp := e.do(t, http.MethodPut, "/api/modules/FastPlace/settings/cooldown", map[string]string{"value": "2,4"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2,4", moduleFrom(t, resp).Settings[0].Value)

	rec, resp = e.do(t, http.MethodPut, "/api/modules/FastPlace/settings/Cooldown", map[string]string{"value": "oops"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "1,3", moduleFrom(t, resp).Settings[0].Value, "некорректное значение сбрасывается к умолчанию")

	rec, _ = e.do(t, http.MethodPut, "/api/modules/FastPlace/settings/Missing", map[string]string{"value": "1"}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFriends(t *testing.T) {
	e := newTestEnv(t, "")

	rec, _ := e.do(t, http.MethodPost, "/api/friends", map[string]string{"name": "Alice"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = e.do(t, http.MethodPost, "/api/friends", map[string]string{"name": "alice"}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, resp := e.do(t, http.MethodGet, "/api/friends", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"alice"}, resp.Data.(map[string]interface{})["friends"])

	rec, _ = e.do(t, http.MethodDelete, "/api/friends/ALICE", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = e.do(t, http.MethodDelete, "/api/friends/alice", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStats(t *testing.T) {
	e := newTestEnv(t, "")
	rec, resp := e.do(t, http.MethodGet, "/api/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	data := resp.Data.(map[string]interface{})
	assert.Contains(t, data, "runtime")
	assert.Contains(t, data, "process")
	assert.EqualValues(t, 0, data["friends"])
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t, "")
	e.do(t, http.MethodGet, "/health", nil, "")

	rec, _ := e.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "modrt_api_http_request_duration_seconds")
}

func TestJWT(t *testing.T) {
	e := newTestEnv(t, testSecret)
	signer, err := auth.NewSigner(testSecret)
	require.NoError(t, err)

	rec, _ := e.do(t, http.MethodGet, "/api/modules", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = e.do(t, http.MethodGet, "/api/modules", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	viewer, err := signer.Generate("viewer", false, time.Hour)
	require.NoError(t, err)
	rec, _ = e.do(t, http.MethodGet, "/api/modules", nil, viewer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin, err := signer.Generate("admin", true, time.Hour)
	require.NoError(t, err)
	rec, _ = e.do(t, http.MethodGet, "/api/modules", nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = e.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code, "health не требует токена")
}

func TestNewServer_ShortSecret(t *testing.T) {
	_, err := NewServer(nil, Config{JWTSecret: "short", Registry: prometheus.NewRegistry()})
	assert.ErrorIs(t, err, auth.ErrShortSecret)
}

func TestStoppedRuntime(t *testing.T) {
	e := newTestEnv(t, "")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, e.rt.Shutdown(ctx))

	rec, _ := e.do(t, http.MethodGet, "/api/modules", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec, _ = e.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "5с", formatUptime(5*time.Second))
	assert.Equal(t, "2м 3с", formatUptime(2*time.Minute+3*time.Second))
	assert.Equal(t, "1ч 0м 0с", formatUptime(time.Hour))
	assert.Equal(t, "1д 1ч 0м 0с", formatUptime(25*time.Hour))
}
