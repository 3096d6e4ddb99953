package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/annel0/modrt/internal/logging"
)

// Поддерживаемые бэкенды.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendMaria  = "maria"
)

// Backends перечисляет допустимые значения Options.Backend.
func Backends() []string {
	return []string{BackendMemory, BackendFile, BackendBadger, BackendRedis, BackendMongo, BackendMaria}
}

// Options выбирает и настраивает бэкенд.
type Options struct {
	Backend        string
	FilePath       string
	Gzip           bool
	BadgerDir      string
	BadgerInMemory bool
	Redis          RedisConfig
	Mongo          MongoConfig
	MariaDSN       string
}

// Open создаёт репозиторий выбранного бэкенда с трассировкой.
func Open(ctx context.Context, opts Options) (ConfigRepo, error) {
	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	if backend == "" {
		backend = BackendFile
	}

	var (
		repo ConfigRepo
		err  error
	)
	switch backend {
	case BackendMemory:
		repo = NewMemoryConfigRepo()
	case BackendFile:
		repo, err = NewFileConfigRepo(opts.FilePath, opts.Gzip)
	case BackendBadger:
		repo, err = NewBadgerConfigRepo(opts.BadgerDir, opts.BadgerInMemory)
	case BackendRedis:
		repo, err = NewRedisConfigRepo(ctx, opts.Redis)
	case BackendMongo:
		repo, err = NewMongoConfigRepo(ctx, opts.Mongo)
	case BackendMaria:
		repo, err = NewMariaConfigRepo(ctx, opts.MariaDSN)
	default:
		return nil, fmt.Errorf("неизвестный бэкенд хранилища %q", opts.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("бэкенд %s: %w", backend, err)
	}

	logging.GetStorageLogger().Info("💾 Хранилище конфигурации: %s", backend)
	return WithTracing(repo, backend), nil
}
