package future

import "sync/atomic"

// Join возвращает операцию-барьер над ops.
//
//   - Пустой список — операция уже в StateFulfilled.
//   - StateFulfilled, когда успешно завершились все участники.
//   - StateRejected с ошибкой первого наблюдаемого отказа, не дожидаясь остальных.
//
// Порядок ops не влияет на исход: побеждает отказ, который наблюдён
// первым, а не первый по списку. Последующие завершения участников
// на результат Join не влияют.
func Join(ops ...*Operation) *Operation {
	joined := New()
	if len(ops) == 0 {
		joined.Resolve()
		return joined
	}

	var remaining atomic.Int64
	remaining.Store(int64(len(ops)))

	onFulfilled := func() {
		if remaining.Add(-1) == 0 {
			joined.Resolve()
		}
	}
	onRejected := func(err error) {
		joined.Reject(err)
	}

	for _, op := range ops {
		if op == nil {
			joined.Reject(ErrNilOperation)
			return joined
		}
		op.Then(onFulfilled, onRejected)
	}

	return joined
}
