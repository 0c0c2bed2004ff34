package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shaiso/ndo/internal/engine"
)

// LogObserver пишет события планировщика в лог.
//
// Run верхнего уровня логируются на уровне INFO, вложенные — на DEBUG.
// Ошибки логируются всегда, отмена — на уровне WARN.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver создаёт наблюдателя. nil logger заменяется slog.Default().
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) with(info engine.RunInfo) *slog.Logger {
	name := info.Procedure
	if name == "" {
		name = "<anonymous>"
	}
	return WithProcedure(o.logger, name).With("run_seq", info.ID, "depth", info.Depth)
}

// RunStarted реализует engine.Observer.
func (o *LogObserver) RunStarted(info engine.RunInfo) {
	level := slog.LevelInfo
	if info.Depth > 0 {
		level = slog.LevelDebug
	}
	o.with(info).Log(context.Background(), level, "run started")
}

// StepYielded реализует engine.Observer.
func (o *LogObserver) StepYielded(info engine.RunInfo, step int, y engine.Yield) {
	o.with(info).Debug("step yielded",
		"step", step,
		"joined", y.IsJoined(),
		"operations", len(y.Operations()),
	)
}

// RunFinished реализует engine.Observer.
func (o *LogObserver) RunFinished(info engine.RunInfo, err error, elapsed time.Duration) {
	logger := o.with(info).With("elapsed", elapsed)

	switch {
	case err == nil:
		level := slog.LevelInfo
		if info.Depth > 0 {
			level = slog.LevelDebug
		}
		logger.Log(context.Background(), level, "run finished")
	case errors.Is(err, engine.ErrCancelled):
		logger.Warn("run cancelled", "error", err)
	default:
		logger.Error("run failed", "error", err)
	}
}
