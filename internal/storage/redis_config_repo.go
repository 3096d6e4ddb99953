package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/annel0/modrt/internal/logging"
	"github.com/go-redis/redis/v8"
)

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr     string // Адрес Redis сервера
	Password string // Пароль (пустой если не требуется)
	DB       int    // Номер базы данных
	Key      string // Ключ хэша с модулями
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr: "localhost:6379",
		Key:  "modrt:modules",
	}
}

// RedisConfigRepo хранит модули полями одного хэша: поле - имя модуля,
// значение - запись в JSON.
type RedisConfigRepo struct {
	client *redis.Client
	key    string
}

// NewRedisConfigRepo подключается к Redis и проверяет соединение.
func NewRedisConfigRepo(ctx context.Context, cfg RedisConfig) (*RedisConfigRepo, error) {
	def := DefaultRedisConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.Key == "" {
		cfg.Key = def.Key
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.GetStorageLogger().Info("🔴 Connected to Redis at %s", cfg.Addr)
	return &RedisConfigRepo{client: client, key: cfg.Key}, nil
}

// Load читает все поля хэша.
func (r *RedisConfigRepo) Load(ctx context.Context) (Snapshot, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load modules: %w", err)
	}

	snap := NewSnapshot()
	for name, data := range fields {
		var rec ModuleRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			logging.GetStorageLogger().Warn("⚠️ Failed to unmarshal module %s: %v", name, err)
			continue
		}
		snap.Modules[name] = rec
	}
	return snap, nil
}

// Save перезаписывает хэш в транзакции MULTI/EXEC.
func (r *RedisConfigRepo) Save(ctx context.Context, snap Snapshot) error {
	values := make(map[string]interface{}, len(snap.Modules))
	for name, rec := range snap.Modules {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal module %s: %w", name, err)
		}
		values[name] = data
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key)
		if len(values) > 0 {
			pipe.HSet(ctx, r.key, values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func (r *RedisConfigRepo) Close() error {
	return r.client.Close()
}
