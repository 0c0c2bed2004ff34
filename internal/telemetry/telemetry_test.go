package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shaiso/ndo/internal/engine"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		env      string
		expected slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.env)
			if got := LogLevel(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestNewLogger_Formats(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "json", slog.LevelInfo).Info("hello", "k", "v")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q", buf.String())
	}
	if entry["msg"] != "hello" || entry["k"] != "v" {
		t.Errorf("unexpected entry: %v", entry)
	}

	buf.Reset()
	NewLogger(&buf, "text", slog.LevelInfo).Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("expected text output, got %q", buf.String())
	}
}

func TestContextLogger(t *testing.T) {
	if FromContext(context.Background()) != slog.Default() {
		t.Error("expected default logger without context value")
	}

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := WithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Error("expected logger from context")
	}
}

// entries разбирает JSON-строки лога.
func entries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e map[string]any
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		out = append(out, e)
	}
	return out
}

func TestLogObserver_Levels(t *testing.T) {
	var buf bytes.Buffer
	obs := NewLogObserver(NewLogger(&buf, "json", slog.LevelInfo))

	top := engine.RunInfo{ID: 1, Procedure: "wobble"}
	nested := engine.RunInfo{ID: 2, Procedure: "wiggle", Depth: 1}

	obs.RunStarted(top)

	// события вложенного run и шаги — на уровне DEBUG
	obs.RunStarted(nested)
	obs.StepYielded(top, 0, engine.Joined())
	obs.RunFinished(nested, nil, time.Millisecond)

	obs.RunFinished(top, errors.New("boom"), time.Second)

	got := entries(t, &buf)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d: %v", len(got), got)
	}

	if got[0]["msg"] != "run started" || got[0]["procedure"] != "wobble" {
		t.Errorf("unexpected start entry: %v", got[0])
	}
	if got[1]["msg"] != "run failed" || got[1]["level"] != "ERROR" || got[1]["error"] != "boom" {
		t.Errorf("unexpected failure entry: %v", got[1])
	}
}

func TestLogObserver_Cancelled(t *testing.T) {
	var buf bytes.Buffer
	obs := NewLogObserver(NewLogger(&buf, "json", slog.LevelDebug))

	err := fmt.Errorf("%w: %w", engine.ErrCancelled, context.Canceled)
	obs.RunFinished(engine.RunInfo{ID: 3}, err, time.Millisecond)

	got := entries(t, &buf)
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got[0]["level"] != "WARN" || got[0]["msg"] != "run cancelled" {
		t.Errorf("unexpected entry: %v", got[0])
	}
	if got[0]["procedure"] != "<anonymous>" {
		t.Errorf("expected anonymous procedure, got %v", got[0]["procedure"])
	}
}
