package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shaiso/ndo/internal/future"
)

// Scheduler — кооперативный планировщик процедур.
//
// Run превращает процедуру в последовательность шагов и продвигает её:
// после каждого отданного значения run ждёт завершения операции(й)
// и только затем запрашивает следующий шаг. Каждый run независим и
// обслуживается собственной горутиной; общим является только реестр.
type Scheduler struct {
	registry *Registry
	observer Observer
	lastID   atomic.Uint64
}

// Option настраивает Scheduler.
type Option func(*Scheduler)

// WithObserver задаёт наблюдателя жизненного цикла run.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observer = o
		}
	}
}

// New создаёт планировщик над реестром. nil реестр заменяется пустым.
func New(registry *Registry, opts ...Option) *Scheduler {
	if registry == nil {
		registry = NewRegistry()
	}
	s := &Scheduler{
		registry: registry,
		observer: NopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry возвращает реестр процедур планировщика.
func (s *Scheduler) Registry() *Registry {
	return s.registry
}

// Run запускает процедуру с аргументами args и возвращает операцию,
// представляющую весь run.
//
// Возвращаемая операция никогда не nil:
//   - proc == nil — операция уже отклонена ошибкой ErrInvalidProcedure,
//     никакой работы не выполняется
//   - ошибка или паника при создании последовательности — операция
//     отклонена этой ошибкой, шаги не запрашиваются
//   - иначе тело процедуры до первой точки приостановки выполняется
//     синхронно внутри Run, остальное продвигается в отдельной горутине
//
// Ошибка упавшего шага передаётся в результат без обёртки. Отмена ctx
// проверяется перед каждым шагом и во время ожидания; в этом случае run
// отклоняется ошибкой ErrCancelled.
func (s *Scheduler) Run(ctx context.Context, proc Procedure, args ...any) *future.Operation {
	return s.start(ctx, "", proc, args)
}

// RunByName запускает зарегистрированную процедуру.
// Для неизвестного имени операция уже отклонена *ProcedureNotFoundError.
func (s *Scheduler) RunByName(ctx context.Context, name string, args ...any) *future.Operation {
	proc, exists := s.registry.Lookup(name)
	if !exists {
		return future.Rejected(&ProcedureNotFoundError{Name: name})
	}
	return s.start(ctx, name, proc, args)
}

// RunAs запускает уже найденную процедуру proc под именем name.
// Позволяет вызывающему один раз получить процедуру из реестра
// и не зависеть от Unregister между проверкой и запуском.
func (s *Scheduler) RunAs(ctx context.Context, name string, proc Procedure, args ...any) *future.Operation {
	return s.start(ctx, name, proc, args)
}

// depthKey — ключ глубины вложенности run в контексте.
type depthKey struct{}

func depthFrom(ctx context.Context) int {
	depth, _ := ctx.Value(depthKey{}).(int)
	return depth
}

func (s *Scheduler) start(ctx context.Context, name string, proc Procedure, args []any) *future.Operation {
	if proc == nil {
		if name == "" {
			name = "<anonymous>"
		}
		return future.Rejected(fmt.Errorf("%w: %s is nil", ErrInvalidProcedure, name))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	r := &run{
		info: RunInfo{
			ID:        s.lastID.Add(1),
			Procedure: name,
			Depth:     depthFrom(ctx),
		},
		observer: s.observer,
		result:   future.New(),
		started:  time.Now(),
	}
	// вложенные run, запущенные из тела процедуры, получают глубину +1
	r.ctx = context.WithValue(ctx, depthKey{}, r.info.Depth+1)

	seq, err := s.instantiate(r.ctx, proc, args)
	if err == nil && seq == nil {
		err = fmt.Errorf("%w: %s returned no sequence", ErrInvalidProcedure, name)
	}
	if err != nil {
		r.result.Reject(err)
		return r.result
	}
	r.seq = seq

	s.observer.RunStarted(r.info)
	if op := r.next(0); op != nil {
		go r.drive(op)
	}

	return r.result
}

// instantiate вызывает процедуру, превращая панику в ошибку.
func (s *Scheduler) instantiate(ctx context.Context, proc Procedure, args []any) (seq Sequence, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = future.PanicError(rec)
		}
	}()
	return proc(ctx, s, args...)
}

// run — состояние одного запуска. После первого шага принадлежит горутине drive.
type run struct {
	ctx      context.Context
	info     RunInfo
	seq      Sequence
	observer Observer
	result   *future.Operation
	started  time.Time
}

// next продвигает последовательность на один шаг.
//
//  1. Проверить отмену.
//  2. Advance.
//  3. done — успешно завершить run.
//  4. Иначе вернуть операцию шага (Joined — через future.Join).
//
// nil означает, что run уже завершён.
func (r *run) next(step int) *future.Operation {
	if err := r.ctx.Err(); err != nil {
		r.fail(cancelled(err))
		return nil
	}

	y, done, err := r.advance()
	if err != nil {
		r.fail(err)
		return nil
	}
	if done {
		r.finish(nil)
		return nil
	}

	op, err := y.awaitable()
	if err != nil {
		r.fail(fmt.Errorf("%w at step %d", err, step))
		return nil
	}
	r.observer.StepYielded(r.info, step, y)
	return op
}

// drive ждёт операцию текущего шага и запрашивает следующий.
// Успех — к следующему шагу, ошибка или отмена — завершить run.
func (r *run) drive(op *future.Operation) {
	for step := 1; op != nil; step++ {
		select {
		case <-op.Done():
			if err := op.Err(); err != nil {
				r.fail(err)
				return
			}
		case <-r.ctx.Done():
			r.fail(cancelled(r.ctx.Err()))
			return
		}
		op = r.next(step)
	}
}

// advance вызывает Advance, превращая панику тела процедуры в ошибку.
func (r *run) advance() (y Yield, done bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = future.PanicError(rec)
		}
	}()
	return r.seq.Advance()
}

// fail останавливает последовательность и отклоняет run.
func (r *run) fail(err error) {
	if stopper, ok := r.seq.(Stopper); ok {
		stopper.Stop()
	}
	r.finish(err)
}

func (r *run) finish(err error) {
	r.observer.RunFinished(r.info, err, time.Since(r.started))
	if err != nil {
		r.result.Reject(err)
		return
	}
	r.result.Resolve()
}

func cancelled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
