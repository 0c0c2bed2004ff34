package future

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOperation_ResolveOnce(t *testing.T) {
	op := New()
	require.Equal(t, StatePending, op.State())

	require.True(t, op.Resolve())
	require.False(t, op.Resolve())
	require.False(t, op.Reject(errors.New("late")))

	require.Equal(t, StateFulfilled, op.State())
	require.NoError(t, op.Err())
}

func TestOperation_RejectOnce(t *testing.T) {
	errBoom := errors.New("boom")
	op := New()

	require.True(t, op.Reject(errBoom))
	require.False(t, op.Resolve())
	require.False(t, op.Reject(errors.New("second")))

	require.Equal(t, StateRejected, op.State())
	require.ErrorIs(t, op.Err(), errBoom)
}

func TestOperation_RejectNil(t *testing.T) {
	op := Rejected(nil)
	require.ErrorIs(t, op.Err(), ErrNilReason)
}

func TestOperation_CallbacksInRegistrationOrder(t *testing.T) {
	op := New()

	var order []int
	for i := 0; i < 5; i++ {
		op.Then(func() { order = append(order, i) }, func(error) { t.Error("unexpected rejection") })
	}

	op.Resolve()
	op.Resolve()

	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestOperation_ThenDuringDispatchKeepsOrder(t *testing.T) {
	op := New()

	var (
		mu    sync.Mutex
		order []int
	)
	record := func(n int) {
		mu.Lock()
		order = append(order, n)
		mu.Unlock()
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	op.Then(func() {
		close(entered)
		<-release
		record(1)
	}, nil)
	op.Then(func() { record(2) }, nil)

	settled := make(chan struct{})
	go func() {
		defer close(settled)
		op.Resolve()
	}()

	<-entered
	require.Equal(t, StateFulfilled, op.State())
	op.Then(func() { record(3) }, nil)
	close(release)
	<-settled

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{1, 2, 3}, order)
}

func TestOperation_ThenFromCallback(t *testing.T) {
	op := New()

	var order []string
	op.Then(func() {
		order = append(order, "outer")
		op.Then(func() { order = append(order, "nested") }, nil)
		order = append(order, "outer-done")
	}, nil)
	op.Then(func() { order = append(order, "second") }, nil)

	op.Resolve()

	require.Equal(t, []string{"outer", "outer-done", "second", "nested"}, order)
}

func TestOperation_ThenAfterSettlement(t *testing.T) {
	errBoom := errors.New("boom")
	op := Rejected(errBoom)

	var got error
	op.Then(func() { t.Error("unexpected fulfillment") }, func(err error) { got = err })

	require.Same(t, errBoom, got)
}

func TestOperation_NilCallbacks(t *testing.T) {
	op := New()
	op.Then(nil, nil)
	require.True(t, op.Reject(errors.New("ignored")))
}

func TestOperation_Wait(t *testing.T) {
	op := New()
	go func() {
		time.Sleep(10 * time.Millisecond)
		op.Resolve()
	}()

	require.NoError(t, op.Wait(context.Background()))
}

func TestOperation_WaitCancelled(t *testing.T) {
	op := New()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := op.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, StatePending, op.State())
}

func TestOperation_ConcurrentSettle(t *testing.T) {
	op := New()

	var (
		wg   sync.WaitGroup
		wins int
		mu   sync.Mutex
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var ok bool
			if i%2 == 0 {
				ok = op.Resolve()
			} else {
				ok = op.Reject(errors.New("racer"))
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, wins)
	<-op.Done()
}

func TestGo(t *testing.T) {
	errBoom := errors.New("boom")

	require.NoError(t, Go(func() error { return nil }).Wait(context.Background()))
	require.ErrorIs(t, Go(func() error { return errBoom }).Wait(context.Background()), errBoom)

	err := Go(func() error { panic("oops") }).Wait(context.Background())
	require.EqualError(t, err, "panic: oops")
}

func TestState_String(t *testing.T) {
	require.Equal(t, "PENDING", StatePending.String())
	require.Equal(t, "FULFILLED", StateFulfilled.String())
	require.Equal(t, "REJECTED", StateRejected.String())
	require.Equal(t, "State(7)", State(7).String())
}
