package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/ndo/internal/domain"
	"github.com/shaiso/ndo/internal/engine"
	"github.com/shaiso/ndo/internal/mq"
	"github.com/shaiso/ndo/internal/telemetry"
)

const (
	defaultHistorySize = 1000

	// notifyTimeout ограничивает публикацию и архивирование итога.
	notifyTimeout = 5 * time.Second
)

// Publisher публикует итог run (mq.Publisher).
type Publisher interface {
	PublishRunFinished(ctx context.Context, payload mq.RunFinishedPayload) error
}

// Archive сохраняет завершённые run (repo.RunRepo).
type Archive interface {
	Save(ctx context.Context, run *domain.Run) error
}

// Config — конфигурация Service.
type Config struct {
	Scheduler *engine.Scheduler
	Logger    *slog.Logger

	// Publisher — опционально.
	Publisher Publisher

	// Archive — опционально.
	Archive Archive

	// HistorySize — сколько завершённых run держать в памяти.
	HistorySize int
}

// Service — реестр run верхнего уровня.
type Service struct {
	sched     *engine.Scheduler
	logger    *slog.Logger
	publisher Publisher
	archive   Archive
	history   int

	base     context.Context
	stopBase context.CancelCauseFunc

	mu       sync.RWMutex
	active   map[uuid.UUID]*entry
	finished []*domain.Run // старые первыми
	closed   bool

	runs    sync.WaitGroup // активные run
	notices sync.WaitGroup // публикации итогов
}

// entry — активный run.
type entry struct {
	run    *domain.Run
	cancel context.CancelCauseFunc
	done   chan struct{} // закрывается после перевода в историю
}

// New создаёт Service.
func New(cfg Config) *Service {
	history := cfg.HistorySize
	if history <= 0 {
		history = defaultHistorySize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	base, stop := context.WithCancelCause(context.Background())

	return &Service{
		sched:     cfg.Scheduler,
		logger:    logger.With("component", "runner"),
		publisher: cfg.Publisher,
		archive:   cfg.Archive,
		history:   history,
		base:      base,
		stopBase:  stop,
		active:    make(map[uuid.UUID]*entry),
	}
}

// Start запускает процедуру name и возвращает снимок созданного run.
//
// Неизвестное имя возвращает *engine.ProcedureNotFoundError без создания
// run. Ошибки самой процедуры отражаются в статусе run, а не здесь.
// Run живёт в контексте Service: отмена ctx не останавливает его.
func (s *Service) Start(_ context.Context, name string, args []any, source string) (*domain.Run, error) {
	// процедура берётся один раз: Unregister после этой точки не влияет на запуск
	proc, err := s.sched.Registry().Get(name)
	if err != nil {
		return nil, err
	}

	run := domain.NewRun(name, args, source)

	logger := telemetry.WithProcedure(telemetry.WithRunID(s.logger, run.ID.String()), name)
	runCtx, cancel := context.WithCancelCause(telemetry.WithLogger(s.base, logger))
	e := &entry{run: run, cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel(ErrShuttingDown)
		return nil, ErrShuttingDown
	}
	run.MarkRunning()
	s.active[run.ID] = e
	s.runs.Add(1)
	snapshot := *run
	s.mu.Unlock()

	logger.Info("run started", "source", source)

	// тело до первой приостановки выполняется здесь, вне s.mu
	op := s.sched.RunAs(runCtx, name, proc, args...)
	op.Then(
		func() { s.finish(runCtx, e, nil) },
		func(err error) { s.finish(runCtx, e, err) },
	)

	return &snapshot, nil
}

// finish фиксирует итог run. Вызывается ровно один раз на run.
func (s *Service) finish(ctx context.Context, e *entry, err error) {
	s.mu.Lock()
	switch {
	case err == nil:
		e.run.MarkSucceeded()
	case errors.Is(err, engine.ErrCancelled):
		reason := err.Error()
		if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
			reason = fmt.Sprintf("%s: %v", engine.ErrCancelled, cause)
		}
		e.run.MarkCancelled(reason)
	default:
		e.run.MarkFailed(err.Error())
	}
	delete(s.active, e.run.ID)
	s.finished = append(s.finished, e.run)
	if over := len(s.finished) - s.history; over > 0 {
		s.finished = slices.Delete(s.finished, 0, over)
	}
	snapshot := *e.run
	s.notices.Add(1)
	s.mu.Unlock()

	e.cancel(nil)
	close(e.done)
	s.runs.Done()

	logger := telemetry.FromContext(ctx)
	logger.Info("run finished",
		"status", snapshot.Status,
		"duration_ms", snapshot.Duration().Milliseconds(),
	)

	go func() {
		defer s.notices.Done()
		s.notify(logger, &snapshot)
	}()
}

// notify публикует и архивирует итог run. Ошибки только логируются.
func (s *Service) notify(logger *slog.Logger, run *domain.Run) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if s.publisher != nil {
		err := s.publisher.PublishRunFinished(ctx, mq.RunFinishedPayload{
			RunID:      run.ID,
			Procedure:  run.Procedure,
			Status:     string(run.Status),
			Source:     run.Source,
			Error:      run.Error,
			DurationMs: run.Duration().Milliseconds(),
		})
		if err != nil {
			logger.Warn("failed to publish run.finished", "error", err)
		}
	}

	if s.archive != nil {
		if err := s.archive.Save(ctx, run); err != nil {
			logger.Warn("failed to archive run", "error", err)
		}
	}
}

// Get возвращает снимок run по ID.
func (s *Service) Get(id uuid.UUID) (*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.active[id]; ok {
		run := *e.run
		return &run, nil
	}
	for _, r := range s.finished {
		if r.ID == id {
			run := *r
			return &run, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
}

// List возвращает снимки активных и сохранённых завершённых run,
// новые первыми.
func (s *Service) List() []domain.Run {
	s.mu.RLock()
	runs := make([]domain.Run, 0, len(s.active)+len(s.finished))
	for _, e := range s.active {
		runs = append(runs, *e.run)
	}
	for _, r := range s.finished {
		runs = append(runs, *r)
	}
	s.mu.RUnlock()

	slices.SortStableFunc(runs, func(a, b domain.Run) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return runs
}

// Cancel отменяет активный run. Статус меняется асинхронно, когда
// планировщик заметит отмену.
func (s *Service) Cancel(id uuid.UUID) error {
	s.mu.RLock()
	e, ok := s.active[id]
	s.mu.RUnlock()

	if ok {
		e.cancel(ErrCancelledByUser)
		return nil
	}
	if _, err := s.Get(id); err == nil {
		return fmt.Errorf("%w: %s", ErrRunFinished, id)
	}
	return fmt.Errorf("%w: %s", ErrRunNotFound, id)
}

// Wait ждёт завершения run и возвращает его итоговый снимок.
func (s *Service) Wait(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	s.mu.RLock()
	e, ok := s.active[id]
	s.mu.RUnlock()

	if ok {
		select {
		case <-e.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.Get(id)
}

// Active возвращает количество выполняющихся run.
func (s *Service) Active() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}

// HandleRunRequested — mq.Handler для сообщений run.requested.
func (s *Service) HandleRunRequested(ctx context.Context, msg *mq.Message) error {
	if msg.Type != mq.MessageTypeRunRequested {
		return mq.Permanent(fmt.Errorf("unexpected message type %q", msg.Type))
	}

	payload, err := mq.ParsePayload[mq.RunRequestedPayload](msg)
	if err != nil {
		return mq.Permanent(err)
	}

	_, err = s.Start(ctx, payload.Procedure, payload.Args, domain.RunSourceQueue)
	if errors.Is(err, engine.ErrProcedureNotFound) {
		return mq.Permanent(err)
	}
	return err
}

// Shutdown перестаёт принимать run, отменяет активные и ждёт их
// завершения вместе с публикацией итогов.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.stopBase(ErrShuttingDown)

	done := make(chan struct{})
	go func() {
		s.runs.Wait()
		s.notices.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("runner shutdown: %w", ctx.Err())
	}
}
