package api

import (
	"net/http"
	"strings"

	"github.com/annel0/modrt/internal/module"
	"github.com/gin-gonic/gin"
)

// SettingView - настройка в ответе API.
type SettingView struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Value       string `json:"value"`
	Display     string `json:"display"`
}

// ModuleView - модуль в ответе API.
type ModuleView struct {
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	Category       string        `json:"category"`
	Enabled        bool          `json:"enabled"`
	Keybind        int           `json:"keybind"`
	KeyName        string        `json:"key_name"`
	DefaultKeybind int           `json:"default_keybind"`
	Settings       []SettingView `json:"settings"`
}

func viewOf(m module.Module) ModuleView {
	v := ModuleView{
		Name:           m.Name(),
		Description:    m.Description(),
		Category:       string(m.Category()),
		Enabled:        m.Enabled(),
		Keybind:        m.Keybind(),
		KeyName:        module.KeyName(m.Keybind()),
		DefaultKeybind: m.DefaultKeybind(),
		Settings:       []SettingView{},
	}
	for _, st := range m.Settings() {
		v.Settings = append(v.Settings, SettingView{
			Name:        st.Name(),
			Description: st.Description(),
			Type:        string(st.Type()),
			Value:       st.Serialize(),
			Display:     st.Display(),
		})
	}
	return v
}

// EnabledRequest - тело PUT /modules/:name/enabled.
type EnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// KeybindRequest - тело PUT /modules/:name/keybind: код или имя клавиши.
type KeybindRequest struct {
	Keybind *int   `json:"keybind"`
	Key     string `json:"key"`
}

// SettingRequest - тело PUT /modules/:name/settings/:setting.
type SettingRequest struct {
	Value *string `json:"value" binding:"required"`
}

func (s *Server) handleListModules(c *gin.Context) {
	category := c.Query("category")
	var views []ModuleView
	if !s.control(c, func() {
		list := s.rt.Manager.All()
		if category != "" {
			list = s.rt.Manager.ByCategory(module.Category(category))
		}
		views = make([]ModuleView, 0, len(list))
		for _, m := range list {
			views = append(views, viewOf(m))
		}
	}) {
		return
	}
	ok(c, "Список модулей", gin.H{"modules": views, "total": len(views)})
}

// withModule находит модуль в управляющем потоке и выполняет fn.
// Возвращает представление модуля после fn.
func (s *Server) withModule(c *gin.Context, fn func(m module.Module)) (ModuleView, bool) {
	name := c.Param("name")
	var (
		view  ModuleView
		found bool
	)
	if !s.control(c, func() {
		m := s.rt.Manager.Get(name)
		if m == nil {
			return
		}
		found = true
		if fn != nil {
			fn(m)
		}
		view = viewOf(m)
	}) {
		return view, false
	}
	if !found {
		fail(c, http.StatusNotFound, "Модуль "+name+" не найден")
		return view, false
	}
	return view, true
}

func (s *Server) handleGetModule(c *gin.Context) {
	if view, found := s.withModule(c, nil); found {
		ok(c, "Модуль найден", view)
	}
}

func (s *Server) handleToggle(c *gin.Context) {
	var before bool
	view, found := s.withModule(c, func(m module.Module) {
		before = m.Enabled()
		m.Toggle()
	})
	if !found {
		return
	}
	if view.Enabled == before {
		c.JSON(http.StatusConflict, GenericResponse{Success: false, Message: "Переключение отменено", Data: view})
		return
	}
	ok(c, "Модуль переключён", view)
}

func (s *Server) handleSetEnabled(c *gin.Context) {
	var req EnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}

	view, found := s.withModule(c, func(m module.Module) { m.SetEnabled(*req.Enabled) })
	if !found {
		return
	}
	if view.Enabled != *req.Enabled {
		c.JSON(http.StatusConflict, GenericResponse{Success: false, Message: "Переключение отменено", Data: view})
		return
	}
	ok(c, "Состояние модуля обновлено", view)
}

func (s *Server) handleSetKeybind(c *gin.Context) {
	var req KeybindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}

	var code int
	switch {
	case req.Keybind != nil:
		code = *req.Keybind
	case strings.TrimSpace(req.Key) != "":
		parsed, known := module.KeyCode(req.Key)
		if !known {
			fail(c, http.StatusBadRequest, "Неизвестная клавиша "+req.Key)
			return
		}
		code = parsed
	default:
		fail(c, http.StatusBadRequest, "Укажите keybind или key")
		return
	}

	if view, found := s.withModule(c, func(m module.Module) { m.SetKeybind(code) }); found {
		ok(c, "Клавиша назначена", view)
	}
}

func (s *Server) handleResetKeybind(c *gin.Context) {
	if view, found := s.withModule(c, func(m module.Module) { m.ResetKeybind() }); found {
		ok(c, "Клавиша сброшена", view)
	}
}

func (s *Server) handleSetSetting(c *gin.Context) {
	var req SettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}

	settingName := c.Param("setting")
	var (
		known    bool
		parseErr error
	)
	view, found := s.withModule(c, func(m module.Module) {
		st := m.Setting(settingName)
		if st == nil {
			return
		}
		known = true
		parseErr = st.Deserialize(*req.Value)
	})
	if !found {
		return
	}
	if !known {
		fail(c, http.StatusNotFound, "Настройка "+settingName+" не найдена")
		return
	}
	if parseErr != nil {
		// Значение уже сброшено к умолчанию, возвращаем актуальное состояние
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Некорректное значение, восстановлено значение по умолчанию: " + parseErr.Error(),
			Data:    view,
		})
		return
	}
	ok(c, "Настройка обновлена", view)
}

func (s *Server) handleResetAllKeybinds(c *gin.Context) {
	if s.control(c, s.rt.Manager.ResetAllKeybinds) {
		ok(c, "Все клавиши сброшены", nil)
	}
}
