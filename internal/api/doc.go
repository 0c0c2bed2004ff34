// Package api содержит HTTP API ndo-runner.
//
// Структура:
//   - handler.go           — Handler с зависимостями (реестр, компилятор, runner, каталог)
//   - routes.go            — регистрация маршрутов
//   - middleware.go        — middleware (logging, recovery, metrics)
//   - response.go          — унифицированные JSON-ответы и обработка ошибок
//   - dto.go               — Data Transfer Objects (request/response)
//   - procedure_handler.go — обработчики для /procedures
//   - run_handler.go       — обработчики для /runs
package api
