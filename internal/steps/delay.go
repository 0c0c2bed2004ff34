package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/ndo/internal/domain"
	"github.com/shaiso/ndo/internal/future"
	"github.com/shaiso/ndo/internal/timer"
)

// Ключи конфигурации delay.
const (
	configDurationSec = "duration_sec"
	configDurationMs  = "duration_ms"
	configDuration    = "duration"
)

// DelayStep — шаг задержки.
//
// Операция шага завершается, когда прошло указанное время.
// Отмена контекста run отклоняет операцию и освобождает таймер.
//
// Конфигурация:
//
//	{
//	    "duration_sec": 10,    // задержка в секундах
//	    // или
//	    "duration_ms": 5000,   // задержка в миллисекундах
//	    // или
//	    "duration": "300ms"    // строка "<n>ms" / "<n>s"
//	}
type DelayStep struct{}

// NewDelayStep создаёт новый DelayStep.
func NewDelayStep() *DelayStep {
	return &DelayStep{}
}

// Type возвращает тип шага.
func (s *DelayStep) Type() string {
	return domain.StepTypeDelay
}

// Start запускает задержку.
func (s *DelayStep) Start(ctx context.Context, req *Request) *future.Operation {
	duration, err := s.parseDuration(req.Config)
	if err != nil {
		return future.Rejected(err)
	}

	result := future.New()
	timer.AfterContext(ctx, duration).Then(
		func() {
			req.record(map[string]any{
				"duration_ms": duration.Milliseconds(),
			})
			result.Resolve()
		},
		func(err error) {
			result.Reject(fmt.Errorf("%w: %v", ErrStepCancelled, err))
		},
	)
	return result
}

// parseDuration извлекает длительность из конфигурации.
func (s *DelayStep) parseDuration(config map[string]any) (time.Duration, error) {
	// Сначала проверяем duration_sec
	if sec := GetConfigInt(config, configDurationSec); sec > 0 {
		return time.Duration(sec) * time.Second, nil
	}

	// Затем duration_ms
	if _, ok := config[configDurationMs]; ok {
		return time.Duration(GetConfigInt(config, configDurationMs)) * time.Millisecond, nil
	}

	// Строка или число в свободной форме
	if v, ok := config[configDuration]; ok {
		return timer.ParseDuration(v).Length, nil
	}

	return 0, fmt.Errorf("%w: %s: duration_sec, duration_ms or duration required",
		ErrInvalidConfig, domain.StepTypeDelay)
}
