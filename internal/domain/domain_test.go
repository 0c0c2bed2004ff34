package domain

import "testing"

func TestRunStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   RunStatus
		terminal bool
	}{
		{RunStatusPending, false},
		{RunStatusRunning, false},
		{RunStatusSucceeded, true},
		{RunStatusFailed, true},
		{RunStatusCancelled, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.terminal {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}

func TestRun_Lifecycle(t *testing.T) {
	run := NewRun("wobble", []any{"box"}, RunSourceAPI)

	if run.Status != RunStatusPending {
		t.Fatalf("expected PENDING, got %s", run.Status)
	}
	if run.Duration() != 0 {
		t.Error("pending run should have zero duration")
	}

	run.MarkRunning()
	if run.StartedAt == nil {
		t.Fatal("StartedAt should be set")
	}
	if run.IsFinished() {
		t.Error("running run should not be finished")
	}

	run.MarkFailed("boom")
	if !run.IsFinished() {
		t.Error("failed run should be finished")
	}
	if run.Error != "boom" {
		t.Errorf("expected error 'boom', got %q", run.Error)
	}
	if run.Duration() < 0 {
		t.Error("duration should not be negative")
	}
}

func TestProcedureDef_StepCount(t *testing.T) {
	def := &ProcedureDef{
		Name: "p",
		Steps: []StepDef{
			{ID: "a", Type: StepTypeDelay},
			{ID: "b", Type: StepTypeParallel, Branches: []Branch{
				{ID: "x", Steps: []StepDef{{ID: "x1", Type: StepTypeDelay}}},
				{ID: "y", Steps: []StepDef{{ID: "y1", Type: StepTypeDelay}, {ID: "y2", Type: StepTypeFail}}},
			}},
		},
	}

	if got := def.StepCount(); got != 5 {
		t.Errorf("expected 5 steps, got %d", got)
	}
}
