package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/ndo/internal/domain"
)

// ProcedureSummary — элемент списка процедур.
type ProcedureSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Params      []string `json:"params,omitempty"`
	Steps       int      `json:"steps,omitempty"`

	// Declarative — процедура задана определением, а не кодом.
	Declarative bool `json:"declarative"`
}

// SummaryFromDef конвертирует определение в ProcedureSummary.
func SummaryFromDef(def *domain.ProcedureDef) ProcedureSummary {
	return ProcedureSummary{
		Name:        def.Name,
		Description: def.Description,
		Params:      def.Params,
		Steps:       def.StepCount(),
		Declarative: true,
	}
}

// StartRunRequest — запрос на запуск процедуры.
type StartRunRequest struct {
	Args []any `json:"args,omitempty"`
}

// RunResponse — ответ с run.
type RunResponse struct {
	ID         uuid.UUID  `json:"id"`
	Procedure  string     `json:"procedure"`
	Args       []any      `json:"args,omitempty"`
	Status     string     `json:"status"`
	Source     string     `json:"source,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	DurationMs int64      `json:"duration_ms,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// RunFromDomain конвертирует domain.Run в RunResponse.
func RunFromDomain(r domain.Run) RunResponse {
	return RunResponse{
		ID:         r.ID,
		Procedure:  r.Procedure,
		Args:       r.Args,
		Status:     string(r.Status),
		Source:     r.Source,
		Error:      r.Error,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DurationMs: r.Duration().Milliseconds(),
		CreatedAt:  r.CreatedAt,
	}
}
