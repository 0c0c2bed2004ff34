package future

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Ошибки операций.
var (
	// ErrNilReason — Reject вызван с nil ошибкой.
	ErrNilReason = errors.New("operation rejected without reason")

	// ErrNilOperation — в Join передана nil операция.
	ErrNilOperation = errors.New("nil operation")
)

// State — состояние операции.
type State int

// Состояния операции.
const (
	StatePending State = iota
	StateFulfilled
	StateRejected
)

// String возвращает имя состояния.
func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateFulfilled:
		return "FULFILLED"
	case StateRejected:
		return "REJECTED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// callback — пара обработчиков, зарегистрированных через Then.
type callback struct {
	onFulfilled func()
	onRejected  func(error)
}

// Operation — отложенный результат асинхронной работы.
//
// Потокобезопасна: Resolve/Reject/Then можно вызывать из разных горутин.
// Обработчики вызываются вне мьютекса, каждый не более одного раза,
// строго в порядке регистрации. Then, вызванный во время рассылки,
// ставит обработчик в конец очереди, а не вызывает его в обход.
type Operation struct {
	mu          sync.Mutex
	state       State
	err         error
	done        chan struct{}
	callbacks   []callback
	dispatching bool
}

// New создаёт операцию в состоянии Pending.
func New() *Operation {
	return &Operation{
		done: make(chan struct{}),
	}
}

// Fulfilled возвращает уже успешно завершённую операцию.
func Fulfilled() *Operation {
	op := New()
	op.Resolve()
	return op
}

// Rejected возвращает уже завершённую с ошибкой операцию.
func Rejected(err error) *Operation {
	op := New()
	op.Reject(err)
	return op
}

// Go выполняет fn в отдельной горутине и завершает операцию её результатом.
// Паника внутри fn превращается в ошибку.
func Go(fn func() error) *Operation {
	op := New()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				op.Reject(PanicError(r))
			}
		}()

		if err := fn(); err != nil {
			op.Reject(err)
			return
		}
		op.Resolve()
	}()
	return op
}

// Resolve переводит операцию в Fulfilled.
// Возвращает false, если операция уже завершена.
func (o *Operation) Resolve() bool {
	return o.settle(StateFulfilled, nil)
}

// Reject переводит операцию в Rejected с ошибкой err.
// Возвращает false, если операция уже завершена.
func (o *Operation) Reject(err error) bool {
	if err == nil {
		err = ErrNilReason
	}
	return o.settle(StateRejected, err)
}

// settle выполняет единственный переход состояния и вызывает обработчики
// в порядке регистрации.
func (o *Operation) settle(state State, err error) bool {
	o.mu.Lock()
	if o.state != StatePending {
		o.mu.Unlock()
		return false
	}
	o.state = state
	o.err = err
	o.dispatching = true
	close(o.done)

	for len(o.callbacks) > 0 {
		callbacks := o.callbacks
		o.callbacks = nil
		o.mu.Unlock()

		for _, cb := range callbacks {
			cb.invoke(state, err)
		}

		o.mu.Lock()
	}
	o.dispatching = false
	o.mu.Unlock()
	return true
}

// Then регистрирует обработчики завершения.
//
// Любой из обработчиков может быть nil. Если операция уже завершена
// и рассылка окончена, обработчик вызывается сразу в вызывающей горутине.
func (o *Operation) Then(onFulfilled func(), onRejected func(error)) {
	cb := callback{onFulfilled: onFulfilled, onRejected: onRejected}

	o.mu.Lock()
	if o.state == StatePending || o.dispatching {
		o.callbacks = append(o.callbacks, cb)
		o.mu.Unlock()
		return
	}
	state, err := o.state, o.err
	o.mu.Unlock()

	cb.invoke(state, err)
}

// invoke вызывает обработчик, соответствующий состоянию.
func (cb callback) invoke(state State, err error) {
	switch state {
	case StateFulfilled:
		if cb.onFulfilled != nil {
			cb.onFulfilled()
		}
	case StateRejected:
		if cb.onRejected != nil {
			cb.onRejected(err)
		}
	}
}

// State возвращает текущее состояние операции.
func (o *Operation) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Err возвращает ошибку завершения (nil для StatePending и StateFulfilled).
func (o *Operation) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Done возвращает канал, закрываемый при завершении операции.
func (o *Operation) Done() <-chan struct{} {
	return o.done
}

// Wait блокируется до завершения операции или отмены ctx.
// Возвращает ошибку операции либо ctx.Err().
func (o *Operation) Wait(ctx context.Context) error {
	select {
	case <-o.done:
		return o.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PanicError превращает значение паники в ошибку.
// Если значение уже является ошибкой, оно возвращается без изменений.
func PanicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}
