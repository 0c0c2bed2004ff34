package engine

import (
	"context"

	"github.com/shaiso/ndo/internal/future"
)

// Procedure — процедура, порождающая последовательность шагов.
//
// Планировщик вызывает процедуру синхронно внутри Run, передавая себя
// как неявный контекст (для вложенных Run/RunByName) и аргументы запуска.
// Процедура не выполняет работу сама: она возвращает Sequence, которую
// планировщик продвигает шаг за шагом.
type Procedure func(ctx context.Context, s *Scheduler, args ...any) (Sequence, error)

// Sequence — курсор по точкам приостановки процедуры.
//
// Advance выполняет тело процедуры до следующей точки приостановки и
// возвращает отданное значение. done=true означает, что процедура
// завершилась. Ошибка означает, что тело процедуры упало.
//
// Sequence одноразовая и принадлежит ровно одному run: после done или
// ошибки Advance больше не вызывается, конкурентных вызовов не бывает.
type Sequence interface {
	Advance() (y Yield, done bool, err error)
}

// Stopper реализуется последовательностями, которым нужно освободить
// ресурсы, если run закончился раньше самой последовательности.
type Stopper interface {
	Stop()
}

// Yield — значение, отдаваемое процедурой в точке приостановки.
//
// Два варианта:
//   - Single — одна операция
//   - Joined — набор операций, ожидаемых совместно (барьер)
type Yield struct {
	ops    []*future.Operation
	joined bool
}

// Single отдаёт одну операцию.
func Single(op *future.Operation) Yield {
	return Yield{ops: []*future.Operation{op}}
}

// Joined отдаёт набор операций. Процедура продолжится, когда успешно
// завершатся все; первая наблюдаемая ошибка завершает run.
func Joined(ops ...*future.Operation) Yield {
	return Yield{ops: ops, joined: true}
}

// IsJoined сообщает, является ли значение совместным ожиданием.
func (y Yield) IsJoined() bool {
	return y.joined
}

// Operations возвращает операции, которые отдала процедура.
func (y Yield) Operations() []*future.Operation {
	return y.ops
}

// awaitable возвращает операцию, которую должен ждать планировщик.
func (y Yield) awaitable() (*future.Operation, error) {
	if y.joined {
		return future.Join(y.ops...), nil
	}
	if len(y.ops) != 1 || y.ops[0] == nil {
		return nil, ErrInvalidYield
	}
	return y.ops[0], nil
}

// Steps строит последовательность из вектора thunk'ов.
// Каждый thunk — отрезок тела процедуры до очередной точки приостановки.
//
//	return engine.Steps(
//	    func() (engine.Yield, error) { return engine.Single(timer.AfterMillis(100)), nil },
//	    func() (engine.Yield, error) { return engine.Single(s.RunByName(ctx, "blink")), nil },
//	), nil
func Steps(thunks ...func() (Yield, error)) Sequence {
	return &thunkSequence{thunks: thunks}
}

type thunkSequence struct {
	thunks []func() (Yield, error)
	next   int
}

func (s *thunkSequence) Advance() (Yield, bool, error) {
	if s.next >= len(s.thunks) {
		return Yield{}, true, nil
	}
	thunk := s.thunks[s.next]
	s.next++

	y, err := thunk()
	return y, false, err
}

// SequenceFunc — последовательность в виде явного автомата:
// функция получает номер шага (с нуля) и возвращает очередное значение.
type SequenceFunc func(step int) (y Yield, done bool, err error)

// Func оборачивает SequenceFunc в Sequence со своим счётчиком шагов.
func Func(fn SequenceFunc) Sequence {
	return &funcSequence{fn: fn}
}

type funcSequence struct {
	fn   SequenceFunc
	step int
}

func (s *funcSequence) Advance() (Yield, bool, error) {
	step := s.step
	s.step++
	return s.fn(step)
}
