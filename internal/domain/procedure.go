package domain

import "time"

// Типы шагов декларативной процедуры.
const (
	StepTypeDelay     = "delay"
	StepTypeHTTP      = "http"
	StepTypeTransform = "transform"
	StepTypeRun       = "run"
	StepTypeParallel  = "parallel"
	StepTypeFail      = "fail"
)

// ProcedureDef — декларативное определение процедуры.
//
// Определение компилируется в engine.Procedure: каждый шаг становится
// одной точкой приостановки, шаги выполняются строго по порядку.
type ProcedureDef struct {
	// Name — имя, под которым процедура регистрируется в реестре.
	Name string `json:"name"`

	// Description — описание назначения процедуры.
	Description string `json:"description,omitempty"`

	// Params — имена позиционных аргументов.
	// Аргумент i доступен в шаблонах как {{ .Args.<Params[i]> }}.
	Params []string `json:"params,omitempty"`

	// Steps — шаги процедуры.
	Steps []StepDef `json:"steps"`

	// UpdatedAt — время последнего сохранения в каталоге.
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// StepDef — определение шага процедуры.
type StepDef struct {
	// ID — уникальный идентификатор шага в рамках процедуры.
	// Результаты шага доступны как {{ .Steps.<ID>.<field> }}.
	ID string `json:"id"`

	// Type — тип шага: delay, http, transform, run, parallel, fail.
	Type string `json:"type"`

	// Condition — условие выполнения (Go template выражение).
	// Например: ".Args.enabled". Пустое условие — шаг выполняется всегда.
	Condition string `json:"condition,omitempty"`

	// Config — конфигурация шага (зависит от типа).
	// Для delay: duration_ms, duration_sec или duration
	// Для http: method, url, headers, body
	// Для transform: mappings
	// Для run: procedure, args
	// Для fail: message
	Config map[string]any `json:"config,omitempty"`

	// TimeoutSec — таймаут шага в секундах (для http).
	TimeoutSec int `json:"timeout_sec,omitempty"`

	// Branches — ветки для совместного ожидания (только для type="parallel").
	Branches []Branch `json:"branches,omitempty"`
}

// Branch — ветка parallel шага.
//
// Каждая ветка выполняется как отдельный вложенный run,
// parallel шаг ждёт завершения всех веток.
type Branch struct {
	// ID — идентификатор ветки.
	ID string `json:"id"`

	// Steps — шаги внутри ветки.
	Steps []StepDef `json:"steps"`
}

// StepCount возвращает количество шагов с учётом вложенных веток.
func (d *ProcedureDef) StepCount() int {
	return countSteps(d.Steps)
}

func countSteps(steps []StepDef) int {
	n := 0
	for i := range steps {
		n++
		for _, b := range steps[i].Branches {
			n += countSteps(b.Steps)
		}
	}
	return n
}
