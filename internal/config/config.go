// Package config читает конфигурацию демона: YAML-файл и переменные MODRT_*.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/annel0/modrt/internal/logging"
	"github.com/annel0/modrt/internal/storage"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix - префикс переменных окружения.
const EnvPrefix = "MODRT_"

// Config - корневая структура конфигурации.
type Config struct {
	Runtime   RuntimeConfig   `yaml:"runtime"   envPrefix:"RUNTIME_"`
	Store     StoreConfig     `yaml:"store"     envPrefix:"STORE_"`
	Friends   FriendsConfig   `yaml:"friends"   envPrefix:"FRIENDS_"`
	API       APIConfig       `yaml:"api"       envPrefix:"API_"`
	Metrics   MetricsConfig   `yaml:"metrics"   envPrefix:"METRICS_"`
	Logging   LoggingConfig   `yaml:"logging"   envPrefix:"LOG_"`
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"OTEL_"`
}

type RuntimeConfig struct {
	TickRate  int    `yaml:"tick_rate_hz" env:"TICK_RATE"`
	ConfigDir string `yaml:"config_dir"   env:"CONFIG_DIR"`
}

type StoreConfig struct {
	Backend        string      `yaml:"backend"          env:"BACKEND"`
	FilePath       string      `yaml:"file_path"        env:"FILE_PATH"`
	Gzip           bool        `yaml:"gzip"             env:"GZIP"`
	BadgerDir      string      `yaml:"badger_dir"       env:"BADGER_DIR"`
	BadgerInMemory bool        `yaml:"badger_in_memory" env:"BADGER_IN_MEMORY"`
	Redis          RedisConfig `yaml:"redis"            envPrefix:"REDIS_"`
	Mongo          MongoConfig `yaml:"mongo"            envPrefix:"MONGO_"`
	MariaDSN       string      `yaml:"maria_dsn"        env:"MARIA_DSN"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"     env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db"       env:"DB"`
	Key      string `yaml:"key"      env:"KEY"`
}

type MongoConfig struct {
	URI        string `yaml:"uri"        env:"URI"`
	Database   string `yaml:"database"   env:"DATABASE"`
	Collection string `yaml:"collection" env:"COLLECTION"`
}

type FriendsConfig struct {
	Path  string `yaml:"path"  env:"PATH"`
	Watch bool   `yaml:"watch" env:"WATCH"`
}

type APIConfig struct {
	Enabled   bool          `yaml:"enabled"    env:"ENABLED"`
	Port      int           `yaml:"port"       env:"PORT"`
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl"  env:"TOKEN_TTL"`
}

type MetricsConfig struct {
	Enabled  bool          `yaml:"enabled"  env:"ENABLED"`
	Port     int           `yaml:"port"     env:"PORT"`
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
}

type LoggingConfig struct {
	Level     string `yaml:"level"      env:"LEVEL"`
	Dir       string `yaml:"dir"        env:"DIR"`
	FileLevel string `yaml:"file_level" env:"FILE_LEVEL"`
	// Components - уровни отдельных компонентов, в env: "eventbus:debug,api:warn".
	Components map[string]string `yaml:"components" env:"COMPONENTS"`
}

type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"      env:"ENABLED"`
	ServiceName string  `yaml:"service_name" env:"SERVICE_NAME"`
	Endpoint    string  `yaml:"endpoint"     env:"ENDPOINT"`
	Insecure    bool    `yaml:"insecure"     env:"INSECURE"`
	SampleRatio float64 `yaml:"sample_ratio" env:"SAMPLE_RATIO"`
}

// Default возвращает конфигурацию по умолчанию.
func Default() *Config {
	return &Config{
		Runtime: RuntimeConfig{TickRate: 20, ConfigDir: "config"},
		Store:   StoreConfig{Backend: storage.BackendFile},
		Friends: FriendsConfig{Watch: true},
		API:     APIConfig{Enabled: true, Port: 8088, TokenTTL: 24 * time.Hour},
		Metrics: MetricsConfig{Enabled: true, Port: 2112, Interval: 5 * time.Second},
		Logging: LoggingConfig{Level: "INFO", FileLevel: "DEBUG"},
		Telemetry: TelemetryConfig{
			ServiceName: "modrt",
		},
	}
}

// Load читает YAML-файл поверх значений по умолчанию и применяет MODRT_*.
// Если path пуст, берётся MODRT_CONFIG; отсутствующий файл не ошибка.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logging.Warn("⚠️ Файл конфигурации %s не найден, используются значения по умолчанию", path)
		case err != nil:
			return nil, fmt.Errorf("чтение конфигурации: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
			}
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.resolvePaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolvePaths заполняет пустые пути файлами в ConfigDir.
func (c *Config) resolvePaths() {
	dir := c.Runtime.ConfigDir
	if c.Store.FilePath == "" {
		name := "modules.json"
		if c.Store.Gzip {
			name += ".gz"
		}
		c.Store.FilePath = filepath.Join(dir, name)
	}
	if c.Store.BadgerDir == "" {
		c.Store.BadgerDir = filepath.Join(dir, "badger")
	}
	if c.Friends.Path == "" {
		c.Friends.Path = filepath.Join(dir, "Friends.txt")
	}
}

// Validate проверяет значения.
func (c *Config) Validate() error {
	var errs []error
	if c.Runtime.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("runtime.tick_rate_hz должен быть > 0, получено %d", c.Runtime.TickRate))
	}

	backend := strings.ToLower(strings.TrimSpace(c.Store.Backend))
	known := false
	for _, b := range storage.Backends() {
		if backend == b {
			known = true
			break
		}
	}
	if !known {
		errs = append(errs, fmt.Errorf("store.backend: неизвестный бэкенд %q (допустимы %s)",
			c.Store.Backend, strings.Join(storage.Backends(), ", ")))
	}
	if backend == storage.BackendMaria && c.Store.MariaDSN == "" {
		errs = append(errs, errors.New("store.maria_dsn обязателен для бэкенда maria"))
	}

	for name, port := range map[string]int{"api.port": c.API.Port, "metrics.port": c.Metrics.Port} {
		if port < 0 || port > 65535 {
			errs = append(errs, fmt.Errorf("%s вне диапазона: %d", name, port))
		}
	}
	if c.API.JWTSecret != "" && len(c.API.JWTSecret) < 32 {
		errs = append(errs, errors.New("api.jwt_secret должен быть не короче 32 байт"))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Logging.FileLevel != "" {
		if _, err := logging.ParseLevel(c.Logging.FileLevel); err != nil {
			errs = append(errs, fmt.Errorf("logging.file_level: %w", err))
		}
	}
	if r := c.Telemetry.SampleRatio; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_ratio вне [0, 1]: %v", r))
	}
	for component, lvl := range c.Logging.Components {
		if _, err := logging.ParseLevel(lvl); err != nil {
			errs = append(errs, fmt.Errorf("logging.components.%s: %w", component, err))
		}
	}
	return errors.Join(errs...)
}

// StorageOptions переводит секцию store в параметры storage.Open.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:        c.Store.Backend,
		FilePath:       c.Store.FilePath,
		Gzip:           c.Store.Gzip,
		BadgerDir:      c.Store.BadgerDir,
		BadgerInMemory: c.Store.BadgerInMemory,
		Redis: storage.RedisConfig{
			Addr:     c.Store.Redis.Addr,
			Password: c.Store.Redis.Password,
			DB:       c.Store.Redis.DB,
			Key:      c.Store.Redis.Key,
		},
		Mongo: storage.MongoConfig{
			URI:        c.Store.Mongo.URI,
			Database:   c.Store.Mongo.Database,
			Collection: c.Store.Mongo.Collection,
		},
		MariaDSN: c.Store.MariaDSN,
	}
}

// LoggingOptions переводит секцию logging в параметры логгера.
// Уровни уже проверены Validate.
func (c *Config) LoggingOptions() logging.Options {
	opts := logging.DefaultOptions()
	if lvl, err := logging.ParseLevel(c.Logging.Level); err == nil {
		opts.ConsoleLevel = lvl
	}
	if lvl, err := logging.ParseLevel(c.Logging.FileLevel); err == nil {
		opts.FileLevel = lvl
	}
	opts.Dir = c.Logging.Dir
	return opts
}

// APIAddr возвращает адрес REST API, например ":8088".
func (c *Config) APIAddr() string { return fmt.Sprintf(":%d", c.API.Port) }

// MetricsAddr возвращает адрес экспортера Prometheus.
func (c *Config) MetricsAddr() string { return fmt.Sprintf(":%d", c.Metrics.Port) }
