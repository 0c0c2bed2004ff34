// Package future содержит примитив отложенного результата — Operation.
//
// Operation — ячейка с однократной записью:
//   - StatePending   — операция ещё выполняется
//   - StateFulfilled — операция завершилась успешно (без payload)
//   - StateRejected  — операция завершилась ошибкой
//
// Переход из StatePending в StateFulfilled или StateRejected происходит ровно один раз.
// Повторные Resolve/Reject игнорируются и возвращают false.
//
// Наблюдатели подписываются через Then; Go-код может блокироваться через
// Wait(ctx) или select по Done().
//
// Join объединяет несколько операций в одну: успех, когда успешны все,
// ошибка — при первой наблюдаемой ошибке любой из них.
//
//	op := future.Join(timer.After(100*time.Millisecond), fetch)
//	if err := op.Wait(ctx); err != nil {
//	    // первая ошибка среди участников
//	}
package future
