package steps

import (
	"context"
	"encoding/json"

	"github.com/shaiso/ndo/internal/domain"
	"github.com/shaiso/ndo/internal/future"
)

// Ключ конфигурации.
const configMappings = "mappings"

// TransformStep — шаг трансформации данных.
//
// Mappings рендерятся процедурой до запуска шага (как и весь Config),
// шаг только приводит строки к типам JSON и записывает результат.
// Процедура сливает outputs transform шага в переменные run ({{ .Vars.key }}).
//
// Конфигурация:
//
//	{
//	    "mappings": {
//	        "total": "{{ len .Steps.fetch.body.items }}",
//	        "box": "{{ .Args.box }}"
//	    }
//	}
//
// Outputs: результаты рендеринга mappings
//
//	{
//	    "total": 10,
//	    "box": "left"
//	}
type TransformStep struct{}

// NewTransformStep создаёт новый TransformStep.
func NewTransformStep() *TransformStep {
	return &TransformStep{}
}

// Type возвращает тип шага.
func (s *TransformStep) Type() string {
	return domain.StepTypeTransform
}

// Start выполняет трансформацию синхронно и возвращает завершённую операцию.
func (s *TransformStep) Start(_ context.Context, req *Request) *future.Operation {
	mappings := s.parseMappings(req.Config)

	outputs := make(map[string]any, len(mappings))
	for key, value := range mappings {
		if str, ok := value.(string); ok {
			outputs[key] = s.parseValue(str)
			continue
		}
		outputs[key] = value
	}

	req.record(outputs)
	return future.Fulfilled()
}

// parseMappings извлекает mappings из конфигурации.
// Нестроковые значения (числа из HCL, вложенные объекты) сохраняются как есть.
func (s *TransformStep) parseMappings(config map[string]any) map[string]any {
	switch m := config[configMappings].(type) {
	case map[string]any:
		return m

	case map[string]string:
		result := make(map[string]any, len(m))
		for key, val := range m {
			result[key] = val
		}
		return result

	default:
		return nil
	}
}

// parseValue пытается распарсить строку как JSON.
// Если не получается — возвращает строку как есть.
func (s *TransformStep) parseValue(value string) any {
	// Пробуем как JSON object
	var obj map[string]any
	if err := json.Unmarshal([]byte(value), &obj); err == nil {
		return obj
	}

	// Пробуем как JSON array
	var arr []any
	if err := json.Unmarshal([]byte(value), &arr); err == nil {
		return arr
	}

	// Пробуем как JSON number
	var num json.Number
	if err := json.Unmarshal([]byte(value), &num); err == nil {
		// Пробуем как int
		if i, err := num.Int64(); err == nil {
			return i
		}
		// Иначе как float
		if f, err := num.Float64(); err == nil {
			return f
		}
	}

	// Пробуем как JSON bool
	if value == "true" {
		return true
	}
	if value == "false" {
		return false
	}

	// Возвращаем как строку
	return value
}
