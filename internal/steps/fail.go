package steps

import (
	"context"
	"fmt"

	"github.com/shaiso/ndo/internal/domain"
	"github.com/shaiso/ndo/internal/future"
)

const configMessage = "message"

// FailStep — шаг, который всегда завершается ошибкой.
//
// Используется для явного прерывания процедуры (например, под condition)
// и в тестах определений.
//
// Конфигурация:
//
//	{
//	    "message": "box {{ .Args.box }} is not ready"
//	}
type FailStep struct{}

// NewFailStep создаёт новый FailStep.
func NewFailStep() *FailStep {
	return &FailStep{}
}

// Type возвращает тип шага.
func (s *FailStep) Type() string {
	return domain.StepTypeFail
}

// Start возвращает уже отклонённую операцию.
func (s *FailStep) Start(_ context.Context, req *Request) *future.Operation {
	message := GetConfigString(req.Config, configMessage)
	if message == "" {
		message = req.StepID
	}
	return future.Rejected(fmt.Errorf("%w: %s", ErrStepFailed, message))
}
