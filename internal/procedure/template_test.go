package procedure

import (
	"errors"
	"sync"
	"testing"
)

func TestNewContext_BindsParams(t *testing.T) {
	ctx := NewContext([]string{"box", "times", "missing"}, []any{"left", 3}, nil)
	data := ctx.Snapshot()

	if data.Args["box"] != "left" {
		t.Errorf("box: expected left, got %v", data.Args["box"])
	}
	if data.Args["times"] != 3 {
		t.Errorf("times: expected 3, got %v", data.Args["times"])
	}
	if v, ok := data.Args["missing"]; !ok || v != nil {
		t.Errorf("missing: expected nil entry, got %v (%v)", v, ok)
	}
	if len(data.Argv) != 2 {
		t.Errorf("expected 2 positional args, got %d", len(data.Argv))
	}
	if data.Env == nil || data.Vars == nil || data.Steps == nil {
		t.Error("maps should not be nil")
	}
}

func TestContext_SnapshotIsolation(t *testing.T) {
	ctx := NewContext(nil, nil, nil)
	ctx.MergeVars(map[string]any{"a": 1})

	snap := ctx.Snapshot()
	ctx.MergeVars(map[string]any{"b": 2})
	ctx.SetStep("fetch", map[string]any{"status_code": 200})

	if _, ok := snap.Vars["b"]; ok {
		t.Error("snapshot should not see later vars")
	}
	if _, ok := snap.Steps["fetch"]; ok {
		t.Error("snapshot should not see later steps")
	}
	if v, _ := ctx.Var("b"); v != 2 {
		t.Errorf("expected var b=2, got %v", v)
	}
}

func TestContext_ConcurrentWrites(t *testing.T) {
	ctx := NewContext(nil, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx.MergeVars(map[string]any{"k": i})
			ctx.SetStep("s", map[string]any{"i": i})
			_ = ctx.Snapshot()
		}()
	}
	wg.Wait()

	if _, ok := ctx.Var("k"); !ok {
		t.Error("expected var k")
	}
}

func TestRender_Data(t *testing.T) {
	data := &Data{
		Args:  map[string]any{"box": "left", "count": 42},
		Argv:  []any{"left", 42},
		Vars:  map[string]any{"total": 10},
		Steps: map[string]map[string]any{"fetch": {"status_code": 200}},
		Env:   map[string]string{"REGION": "eu"},
	}

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"plain text", "no template", "no template"},
		{"arg", "box={{ .Args.box }}", "box=left"},
		{"number arg", "{{ .Args.count }}", "42"},
		{"argv", "{{ index .Argv 1 }}", "42"},
		{"var", "{{ .Vars.total }}", "10"},
		{"step output", "{{ .Steps.fetch.status_code }}", "200"},
		{"env", "{{ .Env.REGION }}", "eu"},
		{"missing arg", "{{ .Args.nope }}", "<no value>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Render(tt.template, data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestRender_TemplateFunctions(t *testing.T) {
	data := &Data{Args: map[string]any{
		"text": "Hello World",
		"list": []string{"a", "b", "c"},
	}}

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"lower", "{{ lower .Args.text }}", "hello world"},
		{"upper", "{{ upper .Args.text }}", "HELLO WORLD"},
		{"contains", `{{ contains .Args.text "World" }}`, "true"},
		{"hasPrefix", `{{ hasPrefix .Args.text "Hello" }}`, "true"},
		{"default with value", `{{ default "fallback" .Args.text }}`, "Hello World"},
		{"default with nil", `{{ default "fallback" .Args.missing }}`, "fallback"},
		{"json", `{{ json .Args.list }}`, `["a","b","c"]`},
		{"join", `{{ join "," .Args.list }}`, "a,b,c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Render(tt.template, data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestRender_Errors(t *testing.T) {
	_, err := Render("{{ .Invalid syntax", nil)
	if !errors.Is(err, ErrTemplateParse) {
		t.Errorf("expected ErrTemplateParse, got %v", err)
	}

	_, err = Render("{{ .Nope.field }}", &Data{})
	if !errors.Is(err, ErrTemplateRender) {
		t.Errorf("expected ErrTemplateRender, got %v", err)
	}
}

func TestRenderConfig(t *testing.T) {
	data := &Data{Args: map[string]any{"box": "left"}}

	config := map[string]any{
		"url":     "http://api/{{ .Args.box }}",
		"timeout": 30,
		"headers": map[string]any{"X-Box": "{{ .Args.box }}"},
		"tags":    []any{"{{ upper .Args.box }}", 1},
	}

	rendered, err := RenderConfig(config, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rendered["url"] != "http://api/left" {
		t.Errorf("url: got %v", rendered["url"])
	}
	if rendered["timeout"] != 30 {
		t.Errorf("timeout: got %v", rendered["timeout"])
	}
	if h := rendered["headers"].(map[string]any); h["X-Box"] != "left" {
		t.Errorf("headers: got %v", h)
	}
	if tags := rendered["tags"].([]any); tags[0] != "LEFT" || tags[1] != 1 {
		t.Errorf("tags: got %v", tags)
	}

	// исходный config не изменён
	if config["url"] != "http://api/{{ .Args.box }}" {
		t.Error("RenderConfig should not modify input")
	}
}

func TestRenderConfig_Nil(t *testing.T) {
	rendered, err := RenderConfig(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rendered == nil || len(rendered) != 0 {
		t.Errorf("expected empty map, got %v", rendered)
	}
}

func TestRenderCondition(t *testing.T) {
	data := &Data{
		Args: map[string]any{"enabled": true, "count": 3},
		Vars: map[string]any{"mode": "fast"},
	}

	tests := []struct {
		condition string
		expected  bool
	}{
		{"", true},
		{".Args.enabled", true},
		{".Args.missing", false},
		{"gt .Args.count 2", true},
		{`eq .Vars.mode "slow"`, false},
	}

	for _, tt := range tests {
		t.Run(tt.condition, func(t *testing.T) {
			got, err := RenderCondition(tt.condition, data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestRenderArg_KeepsType(t *testing.T) {
	data := &Data{
		Args:  map[string]any{"count": 3, "box": map[string]any{"side": "left"}},
		Steps: map[string]map[string]any{"fetch": {"status_code": 200}},
		Env:   map[string]string{"REGION": "eu"},
	}

	tests := []struct {
		name     string
		value    any
		expected any
	}{
		{"number ref", "{{ .Args.count }}", 3},
		{"nested ref", "{{ .Args.box.side }}", "left"},
		{"step ref", "{{.Steps.fetch.status_code}}", 200},
		{"env ref", "{{ .Env.REGION }}", "eu"},
		{"mixed template", "n={{ .Args.count }}", "n=3"},
		{"literal", 7, 7},
		{"missing ref renders", "{{ .Args.nope }}", "<no value>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderArg(tt.value, data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %v (%T), got %v (%T)", tt.expected, tt.expected, got, got)
			}
		})
	}
}

func TestMustRender(t *testing.T) {
	if got := MustRender("{{ .Args.x }}", &Data{Args: map[string]any{"x": "y"}}); got != "y" {
		t.Errorf("expected y, got %q", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustRender("{{ .Broken", nil)
}
