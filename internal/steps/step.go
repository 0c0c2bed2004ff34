package steps

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shaiso/ndo/internal/future"
)

// Ошибки шагов.
var (
	// ErrStepNotFound — тип шага не найден в реестре.
	ErrStepNotFound = errors.New("step type not found")

	// ErrInvalidConfig — невалидная конфигурация шага.
	ErrInvalidConfig = errors.New("invalid step config")

	// ErrStepCancelled — выполнение шага отменено.
	ErrStepCancelled = errors.New("step execution cancelled")

	// ErrStepFailed — шаг fail завершился ошибкой.
	ErrStepFailed = errors.New("step failed")
)

// Step — интерфейс для типов шагов.
//
// Шаг не блокирует вызывающего: Start сразу возвращает операцию, которая
// завершится, когда закончится работа шага. Процедура отдаёт эту операцию
// планировщику как точку приостановки.
type Step interface {
	// Type возвращает тип шага.
	Type() string

	// Start запускает шаг. Возвращаемая операция никогда не nil.
	// Ошибка конфигурации возвращается уже отклонённой операцией.
	Start(ctx context.Context, req *Request) *future.Operation
}

// Request — входные данные для выполнения шага.
type Request struct {
	// StepID — идентификатор шага.
	StepID string

	// Config — конфигурация шага (уже отрендеренная через procedure.RenderConfig).
	Config map[string]any

	// Timeout — таймаут выполнения шага.
	// Если 0, используется таймаут по умолчанию.
	Timeout time.Duration

	// Record получает outputs шага до завершения операции. Может быть nil.
	Record func(outputs map[string]any)
}

// NewRequest создаёт новый Request.
func NewRequest(stepID string, config map[string]any, timeout time.Duration) *Request {
	if config == nil {
		config = make(map[string]any)
	}
	return &Request{
		StepID:  stepID,
		Config:  config,
		Timeout: timeout,
	}
}

// record передаёт outputs получателю, если он задан.
func (r *Request) record(outputs map[string]any) {
	if r.Record != nil && outputs != nil {
		r.Record(outputs)
	}
}

// GetConfigString извлекает строковое значение из конфига.
func GetConfigString(config map[string]any, key string) string {
	if v, ok := config[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetConfigInt извлекает числовое значение из конфига.
// Строки разбираются как числа: отрендеренный шаблон всегда строка.
func GetConfigInt(config map[string]any, key string) int {
	if v, ok := config[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		case string:
			if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
				return i
			}
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return int(f)
			}
		}
	}
	return 0
}

// GetConfigBool извлекает булево значение из конфига, включая "true"/"false".
func GetConfigBool(config map[string]any, key string, defaultVal bool) bool {
	switch b := config[key].(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// GetConfigMapString извлекает map[string]string из конфига.
func GetConfigMapString(config map[string]any, key string) map[string]string {
	if v, ok := config[key]; ok {
		switch m := v.(type) {
		case map[string]string:
			return m
		case map[string]any:
			result := make(map[string]string)
			for k, val := range m {
				if s, ok := val.(string); ok {
					result[k] = s
				}
			}
			return result
		}
	}
	return nil
}
