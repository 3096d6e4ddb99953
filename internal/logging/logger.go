package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// zap не знает про TRACE, поэтому кладём его на уровень ниже Debug.
const traceZapLevel = zapcore.DebugLevel - 1

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case TRACE:
		return traceZapLevel
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel разбирает уровень из конфигурации ("debug", "INFO", ...).
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TRACE, nil
	case "DEBUG":
		return DEBUG, nil
	case "", "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	}
	return INFO, fmt.Errorf("неизвестный уровень логирования %q", s)
}

// Options задаёт, куда и с какими уровнями пишет логгер.
type Options struct {
	Dir          string    // Каталог для файлов логов; пусто - без файла
	ConsoleLevel LogLevel  // Минимальный уровень для консоли
	FileLevel    LogLevel  // Минимальный уровень для файла
	Console      io.Writer // По умолчанию os.Stdout
}

// DefaultOptions возвращает настройки по умолчанию: INFO в консоль, всё в файл.
func DefaultOptions() Options {
	return Options{
		ConsoleLevel: INFO,
		FileLevel:    TRACE,
	}
}

// Logger представляет систему логирования компонента
type Logger struct {
	component       string
	sugar           *zap.SugaredLogger
	base            *zap.Logger
	file            *os.File
	minConsoleLevel zap.AtomicLevel
	minFileLevel    zap.AtomicLevel
	closeOnce       sync.Once
}

// NewLogger создаёт логгер компонента с консольным и (опционально) файловым выводом.
func NewLogger(component string, opts Options) (*Logger, error) {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05")
	encCfg.EncodeLevel = encodeLevel
	encCfg.EncodeCaller = nil
	encCfg.CallerKey = ""

	l := &Logger{
		component:       component,
		minConsoleLevel: zap.NewAtomicLevelAt(opts.ConsoleLevel.zapLevel()),
		minFileLevel:    zap.NewAtomicLevelAt(opts.FileLevel.zapLevel()),
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(console), l.minConsoleLevel),
	}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("ошибка создания директории логов: %w", err)
		}
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		filename := filepath.Join(opts.Dir, fmt.Sprintf("%s_%s.log", component, timestamp))
		file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("ошибка создания файла логов: %w", err)
		}
		l.file = file
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(file), l.minFileLevel))
	}

	l.base = zap.New(zapcore.NewTee(cores...)).Named(component)
	l.sugar = l.base.Sugar()
	return l, nil
}

// newNopLogger используется до инициализации, чтобы вызовы не падали.
func newNopLogger() *Logger {
	return &Logger{
		base:            zap.NewNop(),
		sugar:           zap.NewNop().Sugar(),
		minConsoleLevel: zap.NewAtomicLevelAt(zapcore.InfoLevel),
		minFileLevel:    zap.NewAtomicLevelAt(zapcore.InfoLevel),
	}
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l == traceZapLevel {
		enc.AppendString("TRACE")
		return
	}
	zapcore.CapitalLevelEncoder(l, enc)
}

// Zap отдаёт нижележащий zap-логгер (для библиотек, которые его принимают).
func (l *Logger) Zap() *zap.Logger { return l.base }

// Component возвращает имя компонента
func (l *Logger) Component() string { return l.component }

// SetLevels меняет минимальные уровни на лету.
func (l *Logger) SetLevels(console, file LogLevel) {
	l.minConsoleLevel.SetLevel(console.zapLevel())
	l.minFileLevel.SetLevel(file.zapLevel())
}

func (l *Logger) Trace(format string, args ...interface{}) {
	l.sugar.Logf(traceZapLevel, format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// Close сбрасывает буферы и закрывает файл логов
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		_ = l.base.Sync()
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}

// Глобальный логгер по умолчанию
var (
	defaultMu     sync.RWMutex
	defaultLogger = newNopLogger()
)

// InitDefaultLogger инициализирует логгер по умолчанию
func InitDefaultLogger(component string, opts Options) error {
	logger, err := NewLogger(component, opts)
	if err != nil {
		return err
	}
	defaultMu.Lock()
	defaultLogger = logger
	defaultMu.Unlock()
	GetLoggerManager().SetOptions(opts)
	return nil
}

// SetDefault подменяет логгер по умолчанию (используется в тестах).
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// CloseDefaultLogger закрывает логгер по умолчанию
func CloseDefaultLogger() {
	defaultMu.Lock()
	l := defaultLogger
	defaultLogger = newNopLogger()
	defaultMu.Unlock()
	_ = l.Close()
}

// Default возвращает текущий логгер по умолчанию
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// Trace логирует сообщение уровня TRACE
func Trace(format string, args ...interface{}) { Default().Trace(format, args...) }

// Debug логирует сообщение уровня DEBUG
func Debug(format string, args ...interface{}) { Default().Debug(format, args...) }

// Info логирует сообщение уровня INFO
func Info(format string, args ...interface{}) { Default().Info(format, args...) }

// Warn логирует сообщение уровня WARN
func Warn(format string, args ...interface{}) { Default().Warn(format, args...) }

// Error логирует сообщение уровня ERROR
func Error(format string, args ...interface{}) { Default().Error(format, args...) }
