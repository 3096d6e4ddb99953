package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

// MariaConfigRepo реализует ConfigRepo для базы данных MariaDB/MySQL.
// Использует таблицу module_configs: одна строка на модуль.
type MariaConfigRepo struct {
	db *sql.DB
}

// NewMariaConfigRepo создает новый репозиторий для MariaDB.
// Автоматически создает таблицу, если она не существует.
//
// Параметры:
//
//	dsn - строка подключения к базе данных (user:pass@tcp(host:port)/dbname)
func NewMariaConfigRepo(ctx context.Context, dsn string) (*MariaConfigRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	// Проверяем соединение
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	repo := &MariaConfigRepo{db: db}
	if err := repo.createTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицу: %w", err)
	}
	return repo, nil
}

// createTable создает таблицу module_configs, если она не существует.
func (r *MariaConfigRepo) createTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS module_configs (
			name       VARCHAR(128) PRIMARY KEY,
			enabled    BOOLEAN      NOT NULL DEFAULT FALSE,
			keybind    INT          NULL,
			settings   TEXT         NOT NULL,
			updated_at TIMESTAMP    DEFAULT CURRENT_TIMESTAMP
			           ON UPDATE    CURRENT_TIMESTAMP
		) ENGINE=InnoDB
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка создания таблицы module_configs: %w", err)
	}
	return nil
}

// Load читает все строки таблицы.
func (r *MariaConfigRepo) Load(ctx context.Context) (Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, enabled, keybind, settings FROM module_configs`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}
	defer rows.Close()

	snap := NewSnapshot()
	for rows.Next() {
		var (
			name     string
			rec      ModuleRecord
			keybind  sql.NullInt64
			settings string
		)
		if err := rows.Scan(&name, &rec.Enabled, &keybind, &settings); err != nil {
			return Snapshot{}, fmt.Errorf("ошибка чтения строки: %w", err)
		}
		if keybind.Valid {
			rec.Keybind = Key(int(keybind.Int64))
		}
		if settings != "" {
			if err := json.Unmarshal([]byte(settings), &rec.Settings); err != nil {
				return Snapshot{}, fmt.Errorf("ошибка разбора настроек модуля %s: %w", name, err)
			}
		}
		snap.Modules[name] = rec
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("ошибка чтения конфигурации: %w", err)
	}
	return snap, nil
}

// Save сохраняет все модули в одной транзакции.
// Использует INSERT ... ON DUPLICATE KEY UPDATE и удаляет модули, которых нет в снимке.
func (r *MariaConfigRepo) Save(ctx context.Context, snap Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback() // Откат в случае ошибки

	query := `
		INSERT INTO module_configs (name, enabled, keybind, settings)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			enabled = VALUES(enabled),
			keybind = VALUES(keybind),
			settings = VALUES(settings),
			updated_at = CURRENT_TIMESTAMP
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("ошибка подготовки запроса: %w", err)
	}
	defer stmt.Close()

	names := snap.Names()
	for _, name := range names {
		rec := snap.Modules[name]
		settings, err := json.Marshal(rec.Settings)
		if err != nil {
			return fmt.Errorf("ошибка сериализации настроек модуля %s: %w", name, err)
		}
		var keybind sql.NullInt64
		if rec.Keybind != nil {
			keybind = sql.NullInt64{Int64: int64(*rec.Keybind), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, name, rec.Enabled, keybind, string(settings)); err != nil {
			return fmt.Errorf("ошибка сохранения модуля %s: %w", name, err)
		}
	}

	del, args := staleDeleteQuery(names)
	if _, err := tx.ExecContext(ctx, del, args...); err != nil {
		return fmt.Errorf("ошибка удаления устаревших модулей: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

func staleDeleteQuery(names []string) (string, []interface{}) {
	if len(names) == 0 {
		return `DELETE FROM module_configs`, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")
	args := make([]interface{}, len(names))
	for i, n := range names {
		args[i] = n
	}
	return `DELETE FROM module_configs WHERE name NOT IN (` + placeholders + `)`, args
}

// Close закрывает соединение с базой данных.
func (r *MariaConfigRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
