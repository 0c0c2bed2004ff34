// Package steps содержит реализации листовых шагов декларативных процедур.
//
// # Обзор
//
// Каждый шаг:
//   - Получает конфигурацию (уже отрендеренную через procedure.RenderConfig)
//   - Запускает действие (HTTP запрос, задержка, трансформация)
//   - Возвращает future.Operation, которую процедура отдаёт планировщику
//   - Записывает outputs через Request.Record до завершения операции
//
// # Интерфейс Step
//
//	type Step interface {
//	    Type() string
//	    Start(ctx context.Context, req *Request) *future.Operation
//	}
//
// Start никогда не блокирует. Ошибка конфигурации возвращается уже
// отклонённой операцией, поэтому run завершается той же ошибкой на
// этом шаге.
//
// # Registry
//
//	registry := steps.DefaultRegistry()  // delay, http, transform, fail
//	step, err := registry.Get("http")
//
// # Типы шагов
//
// ## delay (delay.go)
//
//	{"duration_ms": 5000} | {"duration_sec": 5} | {"duration": "300ms"}
//
// Outputs: {"duration_ms": 5000}
//
// ## http (http.go)
//
//	{
//	    "method": "POST",
//	    "url": "https://api.example.com/data",
//	    "headers": {"Authorization": "Bearer xxx"},
//	    "body": {"key": "value"},
//	    "follow_redirects": true,
//	    "validate_ssl": true,
//	    "timeout_sec": 30
//	}
//
// Outputs: {"status_code": 200, "headers": {...}, "body": {...}}.
// Статус >= 400 отклоняет операцию *HTTPError.
//
// ## transform (transform.go)
//
//	{"mappings": {"total": "{{ len .Steps.fetch.body.items }}"}}
//
// Выполняется синхронно, результат — уже завершённая операция.
//
// ## fail (fail.go)
//
//	{"message": "box {{ .Args.box }} is jammed"}
//
// Всегда отклоняет операцию ошибкой ErrStepFailed.
package steps
