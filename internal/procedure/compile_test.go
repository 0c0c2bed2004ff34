package procedure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shaiso/ndo/internal/domain"
	"github.com/shaiso/ndo/internal/engine"
	"github.com/shaiso/ndo/internal/future"
	"github.com/shaiso/ndo/internal/steps"
)

// setup компилирует определения в новый реестр и возвращает планировщик.
func setup(t *testing.T, defs ...*domain.ProcedureDef) *engine.Scheduler {
	t.Helper()
	reg := engine.NewRegistry()
	require.NoError(t, Install(reg, NewCompiler(nil, WithEnv(map[string]string{"REGION": "eu"})), defs...))
	return engine.New(reg)
}

func await(t *testing.T, op *future.Operation) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	select {
	case <-op.Done():
		return op.Err()
	case <-ctx.Done():
		t.Fatal("run did not settle in time")
		return nil
	}
}

func delay(id string, ms int) domain.StepDef {
	return domain.StepDef{ID: id, Type: domain.StepTypeDelay, Config: map[string]any{"duration_ms": ms}}
}

func fail(id, message string) domain.StepDef {
	return domain.StepDef{ID: id, Type: domain.StepTypeFail, Config: map[string]any{"message": message}}
}

func TestCompile_SequentialDelays(t *testing.T) {
	s := setup(t, &domain.ProcedureDef{
		Name:  "twice",
		Steps: []domain.StepDef{delay("a", 100), delay("b", 100)},
	})

	start := time.Now()
	require.NoError(t, await(t, s.RunByName(context.Background(), "twice")))
	elapsed := time.Since(start)

	require.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
	require.Less(t, elapsed, 400*time.Millisecond)
}

func TestCompile_ComposesByName(t *testing.T) {
	var (
		mu  sync.Mutex
		got [][]any
	)
	reg := engine.NewRegistry()
	reg.Register("capture", func(_ context.Context, _ *engine.Scheduler, args ...any) (engine.Sequence, error) {
		mu.Lock()
		got = append(got, args)
		mu.Unlock()
		return engine.Steps(), nil
	})

	wobble := &domain.ProcedureDef{
		Name:   "wobble",
		Params: []string{"box", "count"},
		Steps: []domain.StepDef{
			{ID: "first", Type: domain.StepTypeRun, Config: map[string]any{
				"procedure": "capture",
				"args":      []any{"{{ .Args.count }}", "box-{{ .Args.box }}", true},
			}},
			delay("pause", 5),
			{ID: "second", Type: domain.StepTypeRun, Config: map[string]any{
				"procedure": "{{ .Args.box }}",
			}},
		},
	}
	require.NoError(t, Install(reg, NewCompiler(nil), wobble))

	// вторая ссылка указывает на процедуру с именем аргумента
	reg.Register("left", func(_ context.Context, _ *engine.Scheduler, args ...any) (engine.Sequence, error) {
		mu.Lock()
		got = append(got, append([]any{"left"}, args...))
		mu.Unlock()
		return engine.Steps(), nil
	})

	require.NoError(t, await(t, engine.New(reg).RunByName(context.Background(), "wobble", "left", 3)))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, [][]any{{3, "box-left", true}, {"left"}}, got)
}

func TestCompile_MissingCalleeRejects(t *testing.T) {
	s := setup(t, &domain.ProcedureDef{
		Name: "caller",
		Steps: []domain.StepDef{
			{ID: "call", Type: domain.StepTypeRun, Config: map[string]any{"procedure": "missing"}},
		},
	})

	err := await(t, s.RunByName(context.Background(), "caller"))
	require.ErrorIs(t, err, engine.ErrProcedureNotFound)

	var notFound *engine.ProcedureNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "missing", notFound.Name)
}

func TestCompile_ParallelWaitsForSlowestBranch(t *testing.T) {
	s := setup(t, &domain.ProcedureDef{
		Name: "both",
		Steps: []domain.StepDef{{
			ID:   "both",
			Type: domain.StepTypeParallel,
			Branches: []domain.Branch{
				{ID: "slow", Steps: []domain.StepDef{delay("d", 100)}},
				{ID: "fast", Steps: []domain.StepDef{delay("d", 50)}},
			},
		}},
	})

	start := time.Now()
	require.NoError(t, await(t, s.RunByName(context.Background(), "both")))
	elapsed := time.Since(start)

	require.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	require.Less(t, elapsed, 150*time.Millisecond)
}

func TestCompile_ParallelFailsFast(t *testing.T) {
	s := setup(t, &domain.ProcedureDef{
		Name: "both",
		Steps: []domain.StepDef{
			{
				ID:   "both",
				Type: domain.StepTypeParallel,
				Branches: []domain.Branch{
					{ID: "slow", Steps: []domain.StepDef{delay("d", 1000)}},
					{ID: "broken", Steps: []domain.StepDef{delay("d", 10), fail("stop", "jammed")}},
				},
			},
			delay("after", 1000),
		},
	})

	start := time.Now()
	err := await(t, s.RunByName(context.Background(), "both"))

	require.ErrorIs(t, err, steps.ErrStepFailed)
	require.Contains(t, err.Error(), "jammed")
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestCompile_FailStopsProcedure(t *testing.T) {
	s := setup(t, &domain.ProcedureDef{
		Name: "p",
		Steps: []domain.StepDef{
			fail("stop", "box {{ .Args.box }} jammed"),
			{ID: "never", Type: domain.StepTypeRun, Config: map[string]any{"procedure": "never"}},
		},
		Params: []string{"box"},
	})

	err := await(t, s.RunByName(context.Background(), "p", "left"))
	require.EqualError(t, err, "step failed: box left jammed")
}

func TestCompile_ConditionSkipsStep(t *testing.T) {
	s := setup(t, &domain.ProcedureDef{
		Name:   "guarded",
		Params: []string{"strict"},
		Steps: []domain.StepDef{
			{ID: "stop", Type: domain.StepTypeFail, Condition: ".Args.strict"},
		},
	})

	require.NoError(t, await(t, s.RunByName(context.Background(), "guarded", false)))
	require.ErrorIs(t, await(t, s.RunByName(context.Background(), "guarded", true)), steps.ErrStepFailed)
}

func TestCompile_InvalidConditionRejects(t *testing.T) {
	s := setup(t, &domain.ProcedureDef{
		Name:  "p",
		Steps: []domain.StepDef{{ID: "bad", Type: domain.StepTypeDelay, Condition: "(("}},
	})

	err := await(t, s.RunByName(context.Background(), "p"))
	require.ErrorIs(t, err, ErrTemplateParse)
	require.Contains(t, err.Error(), "step bad")
}

func TestCompile_TransformFeedsVars(t *testing.T) {
	s := setup(t, &domain.ProcedureDef{
		Name:   "p",
		Params: []string{"box"},
		Steps: []domain.StepDef{
			{ID: "shape", Type: domain.StepTypeTransform, Config: map[string]any{
				"mappings": map[string]any{"who": "{{ upper .Args.box }}", "n": "2"},
			}},
			fail("report", "{{ .Vars.who }} x{{ .Vars.n }} in {{ .Env.REGION }}"),
		},
	})

	err := await(t, s.RunByName(context.Background(), "p", "left"))
	require.EqualError(t, err, "step failed: LEFT x2 in eu")
}

func TestCompile_HTTPOutputs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"box": r.URL.Query().Get("box")})
	}))
	defer server.Close()

	s := setup(t, &domain.ProcedureDef{
		Name:   "p",
		Params: []string{"box"},
		Steps: []domain.StepDef{
			{ID: "fetch", Type: domain.StepTypeHTTP, Config: map[string]any{
				"url": server.URL + "?box={{ .Args.box }}",
			}},
			fail("report", "{{ .Steps.fetch.status_code }} {{ .Steps.fetch.body.box }}"),
		},
	})

	err := await(t, s.RunByName(context.Background(), "p", "left"))
	require.EqualError(t, err, "step failed: 200 left")
}

func TestCompile_Cancellation(t *testing.T) {
	s := setup(t, &domain.ProcedureDef{
		Name:  "slow",
		Steps: []domain.StepDef{delay("long", 5000)},
	})

	ctx, cancel := context.WithCancel(context.Background())
	op := s.RunByName(ctx, "slow")

	time.Sleep(20 * time.Millisecond)
	cancel()

	require.ErrorIs(t, await(t, op), engine.ErrCancelled)
}

func TestCompile_UnregisteredStepType(t *testing.T) {
	_, err := NewCompiler(steps.NewRegistry(steps.NewDelayStep())).Compile(&domain.ProcedureDef{
		Name:  "p",
		Steps: []domain.StepDef{delay("a", 1), fail("b", "x")},
	})
	require.ErrorIs(t, err, steps.ErrStepNotFound)
}

func TestCompile_DefinitionCopied(t *testing.T) {
	def := &domain.ProcedureDef{
		Name:  "p",
		Steps: []domain.StepDef{fail("stop", "original")},
	}

	reg := engine.NewRegistry()
	require.NoError(t, Install(reg, NewCompiler(nil), def))

	def.Steps[0].Config["message"] = "changed"

	err := await(t, engine.New(reg).RunByName(context.Background(), "p"))
	require.EqualError(t, err, "step failed: original")
}

func TestLoadDir_BundledDefinitions(t *testing.T) {
	defs, err := LoadDir("../../procedures")
	require.NoError(t, err)

	reg := engine.NewRegistry()
	require.NoError(t, Install(reg, NewCompiler(nil), defs...))
	require.Equal(t, []string{"blink", "wiggle", "wobble"}, reg.Names())

	start := time.Now()
	require.NoError(t, await(t, engine.New(reg).RunByName(context.Background(), "wobble", "left")))
	require.GreaterOrEqual(t, time.Since(start), 500*time.Millisecond)
}
