package timer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shaiso/ndo/internal/future"
)

func TestAfter(t *testing.T) {
	start := time.Now()
	op := After(50 * time.Millisecond)
	require.Equal(t, future.StatePending, op.State())

	require.NoError(t, op.Wait(context.Background()))
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestAfter_Negative(t *testing.T) {
	op := After(-time.Second)
	require.NoError(t, op.Wait(context.Background()))
}

func TestAfterMillis(t *testing.T) {
	start := time.Now()
	require.NoError(t, AfterMillis(30).Wait(context.Background()))
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestAfterContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	op := AfterContext(ctx, time.Hour)

	start := time.Now()
	cancel()

	err := op.Wait(context.Background())
	require.ErrorIs(t, err, ErrStopped)
	require.Less(t, time.Since(start), time.Second)
}

func TestAfterContext_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	op := AfterContext(ctx, time.Millisecond)
	require.Equal(t, future.StateRejected, op.State())
	require.ErrorIs(t, op.Err(), ErrStopped)
}

func TestAfterContext_Fires(t *testing.T) {
	require.NoError(t, AfterContext(context.Background(), 10*time.Millisecond).Wait(context.Background()))
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in     any
		length time.Duration
		text   string
	}{
		{1000, time.Second, "1000ms"},
		{int64(20), 20 * time.Millisecond, "20ms"},
		{float64(150), 150 * time.Millisecond, "150ms"},
		{1.5, 1500 * time.Microsecond, "1.5ms"},
		{0.25, 250 * time.Microsecond, "0.25ms"},
		{"1s", time.Second, "1s"},
		{"1000ms", time.Second, "1000ms"},
		{"2.5s", DefaultDuration, "300ms"},
		{"fast", DefaultDuration, "300ms"},
		{nil, DefaultDuration, "300ms"},
	}

	for _, tt := range tests {
		got := ParseDuration(tt.in)
		require.Equal(t, tt.length, got.Length, "input %v", tt.in)
		require.Equal(t, tt.text, got.Text, "input %v", tt.in)
	}
}
