// Package timer создаёт операции, завершающиеся по истечении времени.
//
// After — каноническая "пауза": процедура отдаёт её планировщику,
// чтобы приостановиться на заданное время.
package timer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shaiso/ndo/internal/future"
)

// ErrStopped — таймер остановлен отменой контекста до срабатывания.
var ErrStopped = errors.New("timer stopped")

// After возвращает операцию, которая успешно завершится не раньше чем через d.
// Отрицательная длительность трактуется как ноль. Операция никогда не
// завершается ошибкой.
func After(d time.Duration) *future.Operation {
	op := future.New()
	time.AfterFunc(max(d, 0), func() {
		op.Resolve()
	})
	return op
}

// AfterMillis — After с длительностью в миллисекундах.
func AfterMillis(ms int64) *future.Operation {
	return After(time.Duration(ms) * time.Millisecond)
}

// AfterContext работает как After, но завершается ошибкой ErrStopped,
// если ctx отменён раньше. Таймер при этом освобождается.
func AfterContext(ctx context.Context, d time.Duration) *future.Operation {
	op := future.New()
	if err := ctx.Err(); err != nil {
		op.Reject(fmt.Errorf("%w: %v", ErrStopped, err))
		return op
	}

	t := time.NewTimer(max(d, 0))
	go func() {
		defer t.Stop()

		select {
		case <-ctx.Done():
			op.Reject(fmt.Errorf("%w: %v", ErrStopped, ctx.Err()))
		case <-t.C:
			op.Resolve()
		}
	}()
	return op
}
