// Package engine содержит ядро ndo — кооперативный планировщик процедур.
//
// # Модель
//
// Процедура (Procedure) при вызове возвращает последовательность шагов
// (Sequence). Каждый вызов Advance выполняет тело процедуры до следующей
// точки приостановки и возвращает Yield:
//   - Single(op) — дождаться одной операции
//   - Joined(ops...) — дождаться всех операций, упасть на первой ошибке
//
// Scheduler.Run продвигает последовательность: ждёт отданную операцию,
// при успехе запрашивает следующий шаг, при ошибке завершает run этой же
// ошибкой и больше не вызывает Advance. Результат run — future.Operation.
//
//	reg := engine.NewRegistry()
//	reg.Register("wiggle", func(ctx context.Context, s *engine.Scheduler, args ...any) (engine.Sequence, error) {
//	    return engine.Generate(func(yield func(engine.Yield) bool) error {
//	        for i := 0; i < 5; i++ {
//	            if !yield(engine.Single(timer.AfterMillis(100))) {
//	                return nil
//	            }
//	        }
//	        return nil
//	    }), nil
//	})
//
//	s := engine.New(reg)
//	err := s.RunByName(ctx, "wiggle").Wait(ctx)
//
// # Композиция
//
// Процедура получает планировщик как неявный контекст и может запускать
// другие процедуры как подшаги: yield(engine.Single(s.RunByName(ctx, "blink"))).
// Ошибка вложенного run приходит в родителя как обычная ошибка операции.
//
// # Ошибки
//
//   - ErrInvalidProcedure — nil процедура или процедура без последовательности
//   - *ProcedureNotFoundError (ErrProcedureNotFound) — неизвестное имя в RunByName
//   - ErrCancelled — контекст run отменён
//   - ошибки шагов передаются без обёртки
//
// # Файлы пакета
//
//   - sequence.go  — Procedure, Sequence, Yield, Steps, Func
//   - generate.go  — Generate (тело процедуры поверх iter.Pull)
//   - scheduler.go — Scheduler, цикл продвижения run
//   - registry.go  — Registry именованных процедур
//   - observer.go  — Observer для логирования и метрик
//   - errors.go    — ошибки пакета
package engine
