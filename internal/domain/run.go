package domain

import (
	"time"

	"github.com/google/uuid"
)

// Источники запуска run.
const (
	RunSourceAPI   = "api"
	RunSourceCLI   = "cli"
	RunSourceCron  = "cron"
	RunSourceQueue = "queue"
)

// Run — экземпляр выполнения процедуры верхнего уровня.
//
// Run создаётся когда:
// - Пользователь запускает процедуру через API/CLI
// - Срабатывает cron trigger
// - Приходит сообщение run.requested из очереди
//
// Run не переживает перезапуск процесса: в базу попадает только
// архивная копия завершённого run.
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// Procedure — имя запущенной процедуры.
	Procedure string `json:"procedure"`

	// Args — позиционные аргументы запуска.
	Args []any `json:"args,omitempty"`

	// Status — текущий статус выполнения.
	Status RunStatus `json:"status"`

	// Source — источник запуска: api, cli, cron, queue.
	Source string `json:"source,omitempty"`

	// StartedAt — время начала выполнения (когда статус стал RUNNING).
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — текст ошибки, если run завершился с FAILED или CANCELLED.
	Error string `json:"error,omitempty"`

	// CreatedAt — время создания run.
	CreatedAt time.Time `json:"created_at"`
}

// NewRun создаёт run в статусе PENDING.
func NewRun(procedure string, args []any, source string) *Run {
	return &Run{
		ID:        uuid.New(),
		Procedure: procedure,
		Args:      args,
		Status:    RunStatusPending,
		Source:    source,
		CreatedAt: time.Now(),
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// IsFinished возвращает true, если run завершён (в любом статусе).
func (r *Run) IsFinished() bool {
	return r.Status.IsTerminal()
}

// MarkRunning переводит run в статус RUNNING.
func (r *Run) MarkRunning() {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// MarkSucceeded переводит run в статус SUCCEEDED.
func (r *Run) MarkSucceeded() {
	now := time.Now()
	r.Status = RunStatusSucceeded
	r.FinishedAt = &now
}

// MarkFailed переводит run в статус FAILED с ошибкой.
func (r *Run) MarkFailed(err string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.FinishedAt = &now
	r.Error = err
}

// MarkCancelled переводит run в статус CANCELLED.
func (r *Run) MarkCancelled(reason string) {
	now := time.Now()
	r.Status = RunStatusCancelled
	r.FinishedAt = &now
	r.Error = reason
}
