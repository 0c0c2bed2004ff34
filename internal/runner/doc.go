// Package runner управляет run верхнего уровня поверх engine.Scheduler.
//
// Service присваивает каждому run UUID, хранит активные run в памяти,
// позволяет отменить run и держит ограниченную историю завершённых.
// При завершении run итог публикуется в run.finished (если задан
// Publisher) и сохраняется в архив (если задан Archive).
//
// Run переживает запрос, который его создал: контекст run наследуется
// от контекста сервиса, а не от ctx вызова Start. Shutdown отменяет
// все активные run и ждёт их завершения.
package runner
