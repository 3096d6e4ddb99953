package storage

import (
	"context"
	"sync"
)

// MemoryConfigRepo реализует ConfigRepo в памяти.
// Используется в тестах и когда сохранение на диск не нужно.
// ВНИМАНИЕ: Данные теряются при перезапуске!
type MemoryConfigRepo struct {
	mu    sync.RWMutex
	data  Snapshot
	saves int
}

// NewMemoryConfigRepo создаёт пустой репозиторий в памяти.
func NewMemoryConfigRepo() *MemoryConfigRepo {
	return &MemoryConfigRepo{data: NewSnapshot()}
}

// Load возвращает копию сохранённого снимка.
func (r *MemoryConfigRepo) Load(ctx context.Context) (Snapshot, error) {
	if err := ctxErr(ctx); err != nil {
		return Snapshot{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data.Clone(), nil
}

// Save заменяет снимок копией переданного.
func (r *MemoryConfigRepo) Save(ctx context.Context, snap Snapshot) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = snap.Clone()
	r.saves++
	return nil
}

// Get возвращает запись одного модуля.
func (r *MemoryConfigRepo) Get(name string) (ModuleRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.data.Modules[name]
	if !ok {
		return ModuleRecord{}, ErrNotFound
	}
	return rec.Clone(), nil
}

// Saves - сколько раз вызывался Save (для тестов).
func (r *MemoryConfigRepo) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}

// Close ничего не делает.
func (r *MemoryConfigRepo) Close() error { return nil }
