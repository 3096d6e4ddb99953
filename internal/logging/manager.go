package logging

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// LoggerManager раздаёт логгеры компонентов (eventbus, module, api, ...).
// Уровень компонента можно переопределить отдельно от общих настроек.
type LoggerManager struct {
	mu        sync.RWMutex
	loggers   map[string]*Logger
	opts      Options
	overrides map[string]LogLevel
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = newLoggerManager(DefaultOptions())
	})
	return globalManager
}

func newLoggerManager(opts Options) *LoggerManager {
	return &LoggerManager{
		loggers:   make(map[string]*Logger),
		opts:      opts,
		overrides: make(map[string]LogLevel),
	}
}

// SetOptions задаёт настройки для новых логгеров и обновляет уровни
// уже созданных. Вывод существующих логгеров не меняется.
func (lm *LoggerManager) SetOptions(opts Options) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.opts = opts
	for component, l := range lm.loggers {
		l.SetLevels(lm.consoleLevelLocked(component), opts.FileLevel)
	}
}

func (lm *LoggerManager) consoleLevelLocked(component string) LogLevel {
	if lvl, ok := lm.overrides[component]; ok {
		return lvl
	}
	return lm.opts.ConsoleLevel
}

// SetComponentLevels переопределяет консольный уровень отдельных компонентов,
// например {"eventbus": "debug"}. Все уровни проверяются до применения.
func (lm *LoggerManager) SetComponentLevels(levels map[string]string) error {
	parsed := make(map[string]LogLevel, len(levels))
	var errs []error
	for component, s := range levels {
		lvl, err := ParseLevel(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", component, err))
			continue
		}
		parsed[component] = lvl
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	for component, lvl := range parsed {
		lm.overrides[component] = lvl
		if l, ok := lm.loggers[component]; ok {
			l.SetLevels(lvl, lm.opts.FileLevel)
		}
	}
	return nil
}

// GetLogger возвращает логгер компонента, создавая его при первом обращении.
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.RLock()
	l, ok := lm.loggers[component]
	lm.mu.RUnlock()
	if ok {
		return l, nil
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	if l, ok := lm.loggers[component]; ok {
		return l, nil
	}

	opts := lm.opts
	opts.ConsoleLevel = lm.consoleLevelLocked(component)
	l, err := NewLogger(component, opts)
	if err != nil {
		return nil, fmt.Errorf("логгер %s: %w", component, err)
	}
	lm.loggers[component] = l
	return l, nil
}

// MustGetLogger возвращает логгер или логгер по умолчанию при ошибке
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	l, err := lm.GetLogger(component)
	if err != nil {
		Default().Warn("⚠️ %v, используется логгер по умолчанию", err)
		return Default()
	}
	return l
}

// CloseAll закрывает все логгеры компонентов и забывает их.
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var errs []error
	for component, l := range lm.loggers {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("закрытие логгера %s: %w", component, err))
		}
	}
	lm.loggers = make(map[string]*Logger)
	return errors.Join(errs...)
}

// ListComponents возвращает отсортированный список созданных логгеров.
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	out := make([]string, 0, len(lm.loggers))
	for component := range lm.loggers {
		out = append(out, component)
	}
	sort.Strings(out)
	return out
}

// SetLogLevel меняет уровни уже созданного логгера.
func (lm *LoggerManager) SetLogLevel(component string, consoleLevel, fileLevel LogLevel) error {
	lm.mu.RLock()
	l, ok := lm.loggers[component]
	lm.mu.RUnlock()
	if !ok {
		return fmt.Errorf("логгер %s не создан", component)
	}
	l.SetLevels(consoleLevel, fileLevel)
	return nil
}

// GetComponentLogger - логгер компонента из глобального менеджера.
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetBusLogger() *Logger       { return GetComponentLogger("eventbus") }
func GetModuleLogger() *Logger    { return GetComponentLogger("module") }
func GetSchedulerLogger() *Logger { return GetComponentLogger("scheduler") }
func GetStorageLogger() *Logger   { return GetComponentLogger("storage") }
func GetAPILogger() *Logger       { return GetComponentLogger("api") }
