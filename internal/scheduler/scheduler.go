// Package scheduler откладывает действия на заданное число тиков хоста.
//
// Планировщик кооперативный: ничего не происходит между вызовами Advance,
// а действия выполняются в том же потоке, что вызвал Advance.
package scheduler

import (
	"sync"
	"sync/atomic"

	"github.com/annel0/modrt/internal/logging"
	"github.com/google/uuid"
)

// Token отменяет запланированное действие до его запуска.
type Token struct {
	id        uuid.UUID
	cancelled atomic.Bool
}

func newToken() *Token {
	return &Token{id: uuid.New()}
}

// Cancel отменяет действие. Повторный вызов ничего не меняет.
func (t *Token) Cancel() { t.cancelled.Store(true) }

// Cancelled сообщает, отменён ли токен.
func (t *Token) Cancelled() bool { return t.cancelled.Load() }

// ID - идентификатор для логов.
func (t *Token) ID() uuid.UUID { return t.id }

type task struct {
	action    func()
	remaining int
	token     *Token
}

// Stats - счётчики планировщика.
type Stats struct {
	Scheduled uint64
	Executed  uint64
	Cancelled uint64 // Сняты с очереди без запуска из-за отмены
	Failed    uint64
	Pending   int
}

// Scheduler - очередь отложенных действий.
type Scheduler struct {
	mu    sync.Mutex
	tasks []*task
	log   *logging.Logger

	scheduled atomic.Uint64
	executed  atomic.Uint64
	cancelled atomic.Uint64
	failed    atomic.Uint64
}

// New создаёт пустой планировщик.
func New() *Scheduler {
	return &Scheduler{log: logging.GetSchedulerLogger()}
}

// Schedule запускает action через delay вызовов Advance. Задержка 0 означает
// ближайший Advance. При отрицательной задержке или nil-действии возвращается
// уже отменённый токен.
func (s *Scheduler) Schedule(action func(), delay int) *Token {
	token := newToken()
	if action == nil || delay < 0 {
		s.log.Warn("⚠️ Некорректная задача (delay=%d, action=nil: %t), не запланирована", delay, action == nil)
		token.Cancel()
		return token
	}

	s.mu.Lock()
	s.tasks = append(s.tasks, &task{action: action, remaining: delay, token: token})
	s.mu.Unlock()

	s.scheduled.Add(1)
	s.log.Trace("Задача %s запланирована через %d тиков", token.id, delay)
	return token
}

// Advance продвигает все задачи на один тик и выполняет созревшие.
// Задачи, добавленные во время выполнения, ждут следующего Advance.
func (s *Scheduler) Advance() {
	s.mu.Lock()
	snapshot := make([]*task, len(s.tasks))
	copy(snapshot, s.tasks)
	s.mu.Unlock()

	if len(snapshot) == 0 {
		return
	}

	due := make(map[*task]struct{})
	for _, t := range snapshot {
		t.remaining--
		if t.remaining > 0 {
			continue
		}
		due[t] = struct{}{}
		if t.token.Cancelled() {
			s.cancelled.Add(1)
			continue
		}
		s.run(t)
	}

	if len(due) == 0 {
		return
	}

	// Созревшие задачи удаляются независимо от того, выполнились ли они
	s.mu.Lock()
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if _, ok := due[t]; !ok {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(s.tasks); i++ {
		s.tasks[i] = nil
	}
	s.tasks = kept
	s.mu.Unlock()
}

func (s *Scheduler) run(t *task) {
	defer func() {
		if rec := recover(); rec != nil {
			s.failed.Add(1)
			s.log.Error("❌ Ошибка в задаче %s: %v", t.token.id, rec)
		}
	}()
	t.action()
	s.executed.Add(1)
}

// Clear удаляет все задачи, не выполняя их.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	n := len(s.tasks)
	s.tasks = nil
	s.mu.Unlock()

	if n > 0 {
		s.log.Debug("Очередь планировщика очищена, снято задач: %d", n)
	}
}

// Pending возвращает число задач в очереди.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Stats возвращает счётчики.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Scheduled: s.scheduled.Load(),
		Executed:  s.executed.Load(),
		Cancelled: s.cancelled.Load(),
		Failed:    s.failed.Load(),
		Pending:   s.Pending(),
	}
}
