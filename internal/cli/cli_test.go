package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// fakeAPI — минимальный сервер с конвертами ответов как у ndo-runner.
func fakeAPI(t *testing.T) (*httptest.Server, *recorder) {
	t.Helper()
	calls := &recorder{}

	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}
	run := map[string]any{"id": "r-1", "procedure": "wobble", "status": "RUNNING", "source": "api", "created_at": "now"}

	mux.HandleFunc("GET /api/v1/procedures", func(w http.ResponseWriter, r *http.Request) {
		calls.add("list-procedures")
		writeJSON(w, http.StatusOK, map[string]any{
			"data":  []any{map[string]any{"name": "wobble", "params": []string{"box"}, "steps": 2, "declarative": true}},
			"total": 1,
		})
	})
	mux.HandleFunc("PUT /api/v1/procedures/{name}", func(w http.ResponseWriter, r *http.Request) {
		var def map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&def))
		calls.add("apply:"+r.PathValue("name")+":"+def["name"].(string))
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"name": r.PathValue("name"), "steps": 1}})
	})
	mux.HandleFunc("POST /api/v1/procedures/{name}/runs", func(w http.ResponseWriter, r *http.Request) {
		var req StartRunRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		data, _ := json.Marshal(req.Args)
		calls.add("start:"+r.PathValue("name")+":"+string(data))
		if r.PathValue("name") == "missing" {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{
				"code": "NOT_FOUND", "message": "procedure 'missing' does not exist",
			}})
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"data": run})
	})
	mux.HandleFunc("GET /api/v1/runs", func(w http.ResponseWriter, r *http.Request) {
		calls.add("list-runs:"+r.URL.RawQuery)
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{run}, "total": 1})
	})
	mux.HandleFunc("DELETE /api/v1/procedures/{name}", func(w http.ResponseWriter, r *http.Request) {
		calls.add("delete:"+r.PathValue("name"))
		w.WriteHeader(http.StatusNoContent)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, calls
}

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.Execute()
}

func TestClient(t *testing.T) {
	server, calls := fakeAPI(t)
	client := NewClient(server.URL)

	procs, err := client.ListProcedures()
	require.NoError(t, err)
	require.Equal(t, []ProcedureSummary{{Name: "wobble", Params: []string{"box"}, Steps: 2, Declarative: true}}, procs)

	run, err := client.StartRun("wobble", []any{"left", 3})
	require.NoError(t, err)
	require.Equal(t, "r-1", run.ID)
	require.False(t, run.IsFinished())

	_, err = client.StartRun("missing", nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	require.EqualError(t, err, "NOT_FOUND: procedure 'missing' does not exist")

	runs, err := client.ListRuns(ListRunsOpts{Status: "FAILED", Limit: 5})
	require.NoError(t, err)
	require.Len(t, runs, 1)

	require.NoError(t, client.DeleteProcedure("wobble"))

	require.Equal(t, []string{
		"list-procedures",
		`start:wobble:["left",3]`,
		"start:missing:null",
		"list-runs:limit=5&status=FAILED",
		"delete:wobble",
	}, calls.all())
}

func TestRunStartCmd(t *testing.T) {
	server, calls := fakeAPI(t)
	var stdout, stderr bytes.Buffer

	cmd := NewRunCmd(
		func() *Client { return NewClient(server.URL) },
		func() *Output { return NewOutputTo(&stdout, &stderr, true) },
	)
	require.NoError(t, execute(t, cmd, "start", "wobble", "left", "3", "true", `{"k":1}`))

	require.Equal(t, []string{`start:wobble:["left",3,true,{"k":1}]`}, calls.all())
	require.Contains(t, stderr.String(), "Run started: r-1")

	var got RunResponse
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	require.Equal(t, "wobble", got.Procedure)
}

func TestProcedureApplyCmd(t *testing.T) {
	server, calls := fakeAPI(t)
	var stderr bytes.Buffer

	path := filepath.Join(t.TempDir(), "wobble.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
procedure "wobble" {
  params = ["box"]

  step "pause" {
    type = "delay"
    config = {
      duration_ms = 10
    }
  }
}
`), 0o644))

	cmd := NewProcedureCmd(
		func() *Client { return NewClient(server.URL) },
		func() *Output { return NewOutputTo(io.Discard, &stderr, false) },
	)
	require.NoError(t, execute(t, cmd, "apply", path))

	require.Equal(t, []string{"apply:wobble:wobble"}, calls.all())
	require.Contains(t, stderr.String(), "Procedure applied: wobble")
}

func writeDefs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "procs.json"), []byte(`[
  {
    "name": "wobble",
    "params": ["box"],
    "steps": [
      {"id": "pause", "type": "delay", "config": {"duration_ms": 5}},
      {"id": "check", "type": "fail", "condition": "eq .Args.box \"jammed\"", "config": {"message": "box jammed"}}
    ]
  }
]`), 0o644))
	return dir
}

func TestExecCmd(t *testing.T) {
	dir := writeDefs(t)
	logger := func() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

	var stderr bytes.Buffer
	out := func() *Output { return NewOutputTo(io.Discard, &stderr, false) }

	require.NoError(t, execute(t, NewExecCmd(out, logger), "--dir", dir, "wobble", "left"))
	require.Contains(t, stderr.String(), "Procedure wobble succeeded")

	err := execute(t, NewExecCmd(out, logger), "--dir", dir, "wobble", "jammed")
	require.ErrorContains(t, err, "box jammed")

	err = execute(t, NewExecCmd(out, logger), "--dir", dir, "missing")
	require.ErrorContains(t, err, "procedure 'missing' does not exist")
}

func TestValidateCmd(t *testing.T) {
	dir := writeDefs(t)
	var stdout, stderr bytes.Buffer
	out := func() *Output { return NewOutputTo(&stdout, &stderr, false) }

	require.NoError(t, execute(t, NewValidateCmd(out), filepath.Join(dir, "procs.json")))
	require.Contains(t, stdout.String(), "wobble")
	require.Contains(t, stderr.String(), "1 procedure(s) valid")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"name": "bad", "steps": [{"id": "x", "type": "teleport"}]}`), 0o644))
	require.Error(t, execute(t, NewValidateCmd(out), bad))
}

func TestParseArgs(t *testing.T) {
	got := ParseArgs([]string{"left", "3", "2.5", "true", "True", "inf", `["a"]`, `{bad`, ""})
	require.Equal(t, []any{"left", 3, 2.5, true, "True", "inf", []any{"a"}, "{bad", ""}, got)
}
