package procedure

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/ndo/internal/domain"
	"github.com/shaiso/ndo/internal/engine"
	"github.com/shaiso/ndo/internal/future"
	"github.com/shaiso/ndo/internal/steps"
)

// Ключи конфигурации run шага.
const (
	configProcedure = "procedure"
	configArgs      = "args"
)

// Compiler превращает ProcedureDef в engine.Procedure.
//
// Каждый шаг определения становится одним thunk'ом последовательности:
//   - delay, http, transform, fail — Single(операция листового шага)
//   - run — Single(s.RunByName(...))
//   - parallel — Joined(вложенный run на каждую ветку)
//
// Шаг с ложным condition отдаёт уже завершённую операцию.
type Compiler struct {
	steps *steps.Registry
	env   func() map[string]string
}

// CompilerOption настраивает Compiler.
type CompilerOption func(*Compiler)

// WithEnv задаёт переменные, доступные в шаблонах как {{ .Env.X }}.
// По умолчанию используется окружение процесса на момент запуска run.
func WithEnv(env map[string]string) CompilerOption {
	return func(c *Compiler) {
		c.env = func() map[string]string { return env }
	}
}

// NewCompiler создаёт компилятор над реестром листовых шагов.
// nil реестр заменяется steps.DefaultRegistry().
func NewCompiler(registry *steps.Registry, opts ...CompilerOption) *Compiler {
	if registry == nil {
		registry = steps.DefaultRegistry()
	}
	c := &Compiler{
		steps: registry,
		env:   Environ,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile валидирует определение и возвращает процедуру.
//
// Процедура держит собственную копию шагов: изменение def после
// компиляции не влияет ни на новые, ни на уже запущенные run.
func (c *Compiler) Compile(def *domain.ProcedureDef) (engine.Procedure, error) {
	if err := Validate(def); err != nil {
		return nil, err
	}
	for _, st := range leafTypes(def.Steps) {
		if !c.steps.Has(st) {
			return nil, NewValidationError("", "type",
				fmt.Sprintf("step type %s is not registered", st), steps.ErrStepNotFound)
		}
	}

	params := append([]string(nil), def.Params...)
	stepDefs := cloneSteps(def.Steps)

	return func(ctx context.Context, s *engine.Scheduler, args ...any) (engine.Sequence, error) {
		tctx := NewContext(params, args, c.env())
		return c.sequence(ctx, s, stepDefs, tctx), nil
	}, nil
}

// sequence строит последовательность из списка шагов.
func (c *Compiler) sequence(ctx context.Context, s *engine.Scheduler, defs []domain.StepDef, tctx *Context) engine.Sequence {
	thunks := make([]func() (engine.Yield, error), len(defs))
	for i := range defs {
		step := &defs[i]
		thunks[i] = func() (engine.Yield, error) {
			return c.step(ctx, s, step, tctx)
		}
	}
	return engine.Steps(thunks...)
}

// step выполняет один шаг до точки приостановки.
func (c *Compiler) step(ctx context.Context, s *engine.Scheduler, step *domain.StepDef, tctx *Context) (engine.Yield, error) {
	data := tctx.Snapshot()

	ok, err := RenderCondition(step.Condition, data)
	if err != nil {
		return engine.Yield{}, stepError(step.ID, err)
	}
	if !ok {
		return engine.Single(future.Fulfilled()), nil
	}

	switch step.Type {
	case domain.StepTypeParallel:
		return c.parallel(ctx, s, step, tctx), nil

	case domain.StepTypeRun:
		name, args, err := c.runTarget(step, data)
		if err != nil {
			return engine.Yield{}, stepError(step.ID, err)
		}
		return engine.Single(s.RunByName(ctx, name, args...)), nil

	default:
		return c.leaf(ctx, step, tctx, data)
	}
}

// parallel запускает каждую ветку отдельным вложенным run.
func (c *Compiler) parallel(ctx context.Context, s *engine.Scheduler, step *domain.StepDef, tctx *Context) engine.Yield {
	ops := make([]*future.Operation, len(step.Branches))
	for i := range step.Branches {
		branch := &step.Branches[i]
		ops[i] = s.Run(ctx, func(ctx context.Context, s *engine.Scheduler, _ ...any) (engine.Sequence, error) {
			return c.sequence(ctx, s, branch.Steps, tctx), nil
		})
	}
	return engine.Joined(ops...)
}

// runTarget рендерит имя и аргументы вложенной процедуры.
func (c *Compiler) runTarget(step *domain.StepDef, data *Data) (string, []any, error) {
	name, err := Render(steps.GetConfigString(step.Config, configProcedure), data)
	if err != nil {
		return "", nil, err
	}

	raw, _ := step.Config[configArgs].([]any)
	args := make([]any, len(raw))
	for i, arg := range raw {
		args[i], err = RenderArg(arg, data)
		if err != nil {
			return "", nil, fmt.Errorf("arg %d: %w", i, err)
		}
	}
	return name, args, nil
}

// leaf запускает листовой шаг из реестра.
func (c *Compiler) leaf(ctx context.Context, step *domain.StepDef, tctx *Context, data *Data) (engine.Yield, error) {
	impl, err := c.steps.Get(step.Type)
	if err != nil {
		return engine.Yield{}, stepError(step.ID, err)
	}

	config, err := RenderConfig(step.Config, data)
	if err != nil {
		return engine.Yield{}, stepError(step.ID, err)
	}

	req := steps.NewRequest(step.ID, config, time.Duration(step.TimeoutSec)*time.Second)
	req.Record = func(outputs map[string]any) {
		tctx.SetStep(step.ID, outputs)
		if step.Type == domain.StepTypeTransform {
			tctx.MergeVars(outputs)
		}
	}

	return engine.Single(impl.Start(ctx, req)), nil
}

func stepError(stepID string, err error) error {
	return fmt.Errorf("step %s: %w", stepID, err)
}

// leafTypes собирает типы листовых шагов, включая шаги веток.
func leafTypes(defs []domain.StepDef) []string {
	var types []string
	for i := range defs {
		switch defs[i].Type {
		case domain.StepTypeParallel:
			for _, b := range defs[i].Branches {
				types = append(types, leafTypes(b.Steps)...)
			}
		case domain.StepTypeRun:
		default:
			types = append(types, defs[i].Type)
		}
	}
	return types
}

// cloneSteps копирует шаги вместе с ветками и верхним уровнем Config.
func cloneSteps(defs []domain.StepDef) []domain.StepDef {
	out := make([]domain.StepDef, len(defs))
	for i, d := range defs {
		out[i] = d
		if d.Config != nil {
			out[i].Config = make(map[string]any, len(d.Config))
			for k, v := range d.Config {
				out[i].Config[k] = v
			}
		}
		if d.Branches != nil {
			out[i].Branches = make([]domain.Branch, len(d.Branches))
			for j, b := range d.Branches {
				out[i].Branches[j] = domain.Branch{ID: b.ID, Steps: cloneSteps(b.Steps)}
			}
		}
	}
	return out
}
