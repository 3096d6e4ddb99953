package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"
)

const badgerModulePrefix = "module:"

// BadgerConfigRepo хранит каждый модуль отдельным ключем module:<Имя> в BadgerDB.
type BadgerConfigRepo struct {
	db      *badger.DB
	mutex   sync.RWMutex
	isReady bool
}

// NewBadgerConfigRepo открывает BadgerDB в каталоге dir.
// При inMemory=true каталог не используется (для тестов).
func NewBadgerConfigRepo(dir string, inMemory bool) (*BadgerConfigRepo, error) {
	opts := badger.DefaultOptions(dir)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}
	return &BadgerConfigRepo{db: db, isReady: true}, nil
}

// Load собирает снимок из всех ключей с префиксом module:.
func (r *BadgerConfigRepo) Load(ctx context.Context) (Snapshot, error) {
	if err := ctxErr(ctx); err != nil {
		return Snapshot{}, err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if !r.isReady {
		return Snapshot{}, fmt.Errorf("хранилище не готово")
	}

	snap := NewSnapshot()
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(badgerModulePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			name := strings.TrimPrefix(string(item.Key()), badgerModulePrefix)
			err := item.Value(func(val []byte) error {
				var rec ModuleRecord
				if err := json.Unmarshal(val, &rec); err != nil {
					return fmt.Errorf("ошибка десериализации модуля %s: %w", name, err)
				}
				snap.Modules[name] = rec
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Save записывает все модули одной транзакцией и удаляет отсутствующие в снимке.
func (r *BadgerConfigRepo) Save(ctx context.Context, snap Snapshot) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if !r.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	return r.db.Update(func(txn *badger.Txn) error {
		var stale [][]byte
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false})
		prefix := []byte(badgerModulePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			name := strings.TrimPrefix(string(it.Item().Key()), badgerModulePrefix)
			if _, ok := snap.Modules[name]; !ok {
				stale = append(stale, it.Item().KeyCopy(nil))
			}
		}
		it.Close()

		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("ошибка удаления %s: %w", key, err)
			}
		}

		for name, rec := range snap.Modules {
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("ошибка сериализации модуля %s: %w", name, err)
			}
			if err := txn.Set([]byte(badgerModulePrefix+name), data); err != nil {
				return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
			}
		}
		return nil
	})
}

// Close закрывает хранилище данных
func (r *BadgerConfigRepo) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.isReady {
		return nil
	}
	r.isReady = false
	return r.db.Close()
}
