package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// FileConfigRepo хранит снимок в одном JSON-файле.
// Запись атомарная: новый файл пишется рядом и переименовывается.
type FileConfigRepo struct {
	mu       sync.Mutex
	path     string
	compress bool
}

// NewFileConfigRepo создаёт репозиторий и каталог для файла.
// При compress=true файл сжимается gzip; при чтении сжатие определяется по сигнатуре.
func NewFileConfigRepo(path string, compress bool) (*FileConfigRepo, error) {
	if path == "" {
		return nil, fmt.Errorf("путь к файлу конфигурации не задан")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать каталог конфигурации: %w", err)
	}
	return &FileConfigRepo{path: path, compress: compress}, nil
}

// Path возвращает путь к файлу.
func (r *FileConfigRepo) Path() string { return r.path }

// Load читает файл. Отсутствующий или пустой файл даёт пустой снимок.
func (r *FileConfigRepo) Load(ctx context.Context) (Snapshot, error) {
	if err := ctxErr(ctx); err != nil {
		return Snapshot{}, err
	}

	r.mu.Lock()
	data, err := os.ReadFile(r.path)
	r.mu.Unlock()

	if errors.Is(err, fs.ErrNotExist) {
		return NewSnapshot(), nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("ошибка чтения %s: %w", r.path, err)
	}

	if isGzip(data) {
		if data, err = gunzip(data); err != nil {
			return Snapshot{}, fmt.Errorf("ошибка распаковки %s: %w", r.path, err)
		}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return NewSnapshot(), nil
	}

	snap := NewSnapshot()
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("ошибка разбора %s: %w", r.path, err)
	}
	if snap.Modules == nil {
		snap.Modules = make(map[string]ModuleRecord)
	}
	return snap, nil
}

// Save записывает снимок с отступами (или сжатым).
func (r *FileConfigRepo) Save(ctx context.Context, snap Snapshot) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if snap.Modules == nil {
		snap = NewSnapshot()
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации конфигурации: %w", err)
	}
	if r.compress {
		if data, err = gzipBytes(data); err != nil {
			return fmt.Errorf("ошибка сжатия конфигурации: %w", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return writeAtomic(r.path, data)
}

// Close ничего не делает: файл не держится открытым.
func (r *FileConfigRepo) Close() error { return nil }

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("ошибка записи %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("ошибка синхронизации %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("ошибка замены %s: %w", path, err)
	}
	return nil
}

func isGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
