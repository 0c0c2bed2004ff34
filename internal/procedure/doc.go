// Package procedure — декларативные процедуры поверх engine.
//
// Определение (domain.ProcedureDef) описывает процедуру как список шагов.
// Compiler превращает определение в engine.Procedure, где каждый шаг —
// отдельная точка приостановки; Install регистрирует результат в реестре,
// после чего процедура доступна через Scheduler.RunByName и может
// вызываться другими процедурами (шаг run).
//
// # Форматы
//
// JSON:
//
//	{
//	  "name": "wobble",
//	  "params": ["box"],
//	  "steps": [
//	    {"id": "wiggle", "type": "run", "config": {"procedure": "wiggle", "args": ["{{ .Args.box }}"]}},
//	    {"id": "pause", "type": "delay", "config": {"duration_ms": 300}}
//	  ]
//	}
//
// HCL: см. hcl.go.
//
// # Шаблоны
//
// Строки Config рендерятся text/template непосредственно перед шагом
// (см. Data): {{ .Args.x }}, {{ .Vars.x }}, {{ .Steps.id.field }}, {{ .Env.X }}.
//
// # Файлы пакета
//
//   - validate.go — Validate
//   - template.go — Context, Data, Render*
//   - parser.go   — Parse, ParseFile, ParseJSON
//   - hcl.go      — HCL формат
//   - loader.go   — LoadDir, LoadFiles, Install
//   - compile.go  — Compiler
package procedure
