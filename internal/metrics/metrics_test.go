package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/ndo/internal/engine"
	"github.com/shaiso/ndo/internal/future"
)

func TestStatusOf(t *testing.T) {
	require.Equal(t, StatusSucceeded, StatusOf(nil))
	require.Equal(t, StatusFailed, StatusOf(errors.New("boom")))
	require.Equal(t, StatusCancelled, StatusOf(fmt.Errorf("%w: %w", engine.ErrCancelled, context.Canceled)))
}

func TestObserver_CountsLifecycle(t *testing.T) {
	obs := NewObserver()

	started := testutil.ToFloat64(runsTotal.WithLabelValues(StatusStarted))
	failed := testutil.ToFloat64(runsTotal.WithLabelValues(StatusFailed))
	joined := testutil.ToFloat64(stepsTotal.WithLabelValues(KindJoined))
	active := testutil.ToFloat64(runsActive)

	info := engine.RunInfo{ID: 1, Procedure: "p"}
	obs.RunStarted(info)
	require.Equal(t, active+1, testutil.ToFloat64(runsActive))

	obs.StepYielded(info, 0, engine.Joined())
	obs.RunFinished(info, errors.New("boom"), time.Millisecond)

	require.Equal(t, started+1, testutil.ToFloat64(runsTotal.WithLabelValues(StatusStarted)))
	require.Equal(t, failed+1, testutil.ToFloat64(runsTotal.WithLabelValues(StatusFailed)))
	require.Equal(t, joined+1, testutil.ToFloat64(stepsTotal.WithLabelValues(KindJoined)))
	require.Equal(t, active, testutil.ToFloat64(runsActive))
}

func TestObserver_WithScheduler(t *testing.T) {
	obs := NewObserver()
	succeeded := testutil.ToFloat64(runsTotal.WithLabelValues(StatusSucceeded))
	single := testutil.ToFloat64(stepsTotal.WithLabelValues(KindSingle))

	s := engine.New(nil, engine.WithObserver(obs))
	op := s.Run(context.Background(), func(context.Context, *engine.Scheduler, ...any) (engine.Sequence, error) {
		return engine.Steps(func() (engine.Yield, error) {
			return engine.Single(future.Fulfilled()), nil
		}), nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, op.Wait(ctx))

	// RunFinished вызывается до завершения операции run
	require.Equal(t, succeeded+1, testutil.ToFloat64(runsTotal.WithLabelValues(StatusSucceeded)))
	require.Equal(t, single+1, testutil.ToFloat64(stepsTotal.WithLabelValues(KindSingle)))
}

func TestIncHTTPRequest(t *testing.T) {
	Init()
	before := testutil.ToFloat64(httpRequests.WithLabelValues("2xx"))
	IncHTTPRequest("2xx")
	require.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("2xx")))
}
