// Package cli реализует инструмент командной строки ndo.
//
// # Обзор
//
// Команды делятся на две группы:
//   - локальные (exec, validate) — загружают определения с диска и
//     выполняют их в процессе CLI, без сервера
//   - удалённые (procedure, run) — работают с ndo-runner через HTTP API
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для API ndo-runner. Инкапсулирует HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок (*APIError).
//
//	client := cli.NewClient("http://localhost:8080")
//	runs, err := client.ListRuns(cli.ListRunsOpts{Status: "FAILED"})
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON с отступами — с флагом --json
//
// Данные выводятся в stdout, сообщения Success — в stderr.
// Это позволяет использовать pipe: ndo run list --json | jq .
//
// ## Commands
//
//   - exec NAME [ARGS...]: локальный запуск процедуры
//   - validate FILE...: проверка определений
//   - procedure: list, show, apply, delete
//   - run: list, start, show, cancel
//
// Каждая группа создаётся через фабричную функцию (NewRunCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
