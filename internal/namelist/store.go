// Package namelist хранит список имён (друзей) в текстовом файле:
// одно имя на строку, без учёта регистра.
package namelist

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/annel0/modrt/internal/logging"
	"github.com/fsnotify/fsnotify"
)

// Store - потокобезопасный набор имён, сохраняемый при каждом изменении.
type Store struct {
	mu    sync.RWMutex
	path  string
	names map[string]struct{}
	log   *logging.Logger

	debounce time.Duration
	onReload func([]string)
}

// Open загружает список из файла, создавая файл (и каталог), если его нет.
func Open(path string) (*Store, error) {
	s := &Store{
		path:     path,
		names:    make(map[string]struct{}),
		log:      logging.GetComponentLogger("namelist"),
		debounce: 200 * time.Millisecond,
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path возвращает путь к файлу.
func (s *Store) Path() string { return s.path }

// OnReload задаёт обработчик внешней перезагрузки файла.
func (s *Store) OnReload(fn func(names []string)) {
	s.mu.Lock()
	s.onReload = fn
	s.mu.Unlock()
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Load перечитывает файл. Отсутствующий файл создаётся пустым.
func (s *Store) Load() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("создание каталога списка: %w", err)
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		if err := os.WriteFile(s.path, nil, 0o644); err != nil {
			return fmt.Errorf("создание файла списка: %w", err)
		}
		s.mu.Lock()
		s.names = make(map[string]struct{})
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("чтение списка %s: %w", s.path, err)
	}

	names := make(map[string]struct{})
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if n := normalize(sc.Text()); n != "" {
			names[n] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("разбор списка %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.names = names
	s.mu.Unlock()
	return nil
}

// Add добавляет имя. Возвращает true, если его не было.
func (s *Store) Add(name string) bool {
	n := normalize(name)
	if n == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.names[n]; ok {
		return false
	}
	s.names[n] = struct{}{}
	s.saveLocked()
	return true
}

// Remove удаляет имя. Возвращает true, если оно было.
func (s *Store) Remove(name string) bool {
	n := normalize(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.names[n]; !ok {
		return false
	}
	delete(s.names, n)
	s.saveLocked()
	return true
}

// Contains проверяет имя без учёта регистра.
func (s *Store) Contains(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.names[normalize(name)]
	return ok
}

// List возвращает отсортированный список.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked()
}

// Len - число имён.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.names)
}

func (s *Store) sortedLocked() []string {
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// saveLocked пишет файл через временный и rename. Ошибка только логируется.
func (s *Store) saveLocked() {
	var buf bytes.Buffer
	for _, n := range s.sortedLocked() {
		buf.WriteString(n)
		buf.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".namelist-*")
	if err != nil {
		s.log.Error("❌ Failed to save name list: %v", err)
		return
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		s.log.Error("❌ Failed to save name list: %v", err)
		return
	}
	if err := tmp.Close(); err != nil {
		s.log.Error("❌ Failed to save name list: %v", err)
		return
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		s.log.Error("❌ Failed to save name list: %v", err)
	}
}

// Watch следит за файлом и перечитывает его после внешних изменений.
// Блокирует до отмены ctx. Следит за каталогом, чтобы пережить замену файла.
func (s *Store) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("создание наблюдателя: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("наблюдение за %s: %w", filepath.Dir(s.path), err)
	}
	s.log.Info("👀 Watching name list %s", s.path)

	target := filepath.Clean(s.path)
	ticker := time.NewTicker(s.debounce / 2)
	defer ticker.Stop()

	var changedAt time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				changedAt = time.Now()
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("⚠️ Name list watcher error: %v", err)

		case <-ticker.C:
			if changedAt.IsZero() || time.Since(changedAt) < s.debounce {
				continue
			}
			changedAt = time.Time{}
			s.reload()
		}
	}
}

func (s *Store) reload() {
	if err := s.Load(); err != nil {
		s.log.Error("❌ Failed to reload name list: %v", err)
		return
	}

	s.mu.RLock()
	names := s.sortedLocked()
	hook := s.onReload
	s.mu.RUnlock()

	s.log.Info("Name list reloaded (%d name(s))", len(names))
	if hook != nil {
		hook(names)
	}
}
