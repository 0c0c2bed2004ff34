// Package telemetry обеспечивает логирование ndo.
//
// Включает:
//   - logging.go  — structured logging через slog (LOG_LEVEL, LOG_FORMAT)
//   - observer.go — LogObserver: журнал жизненного цикла run для engine
//
// Метрики Prometheus живут в пакете metrics.
package telemetry
