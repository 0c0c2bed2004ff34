// Package mq связывает ndo-runner с RabbitMQ.
//
// Структура:
//   - connection.go — соединение с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация run.requested и run.finished
//   - consumer.go   — потребление сообщений с ack/nack
//
// Типы сообщений:
//   - run.requested — запрос на запуск процедуры по имени
//   - run.finished  — итог run верхнего уровня
//
// Exchanges:
//   - ndo.runs — события runs
//   - ndo.dlq  — dead letter queue для необрабатываемых запросов
package mq
