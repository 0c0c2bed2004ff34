package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, клиент не зависит от сервера) ---

// ProcedureSummary — процедура из списка API.
type ProcedureSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Params      []string `json:"params,omitempty"`
	Steps       int      `json:"steps,omitempty"`
	Declarative bool     `json:"declarative"`
}

// RunResponse — run из API.
type RunResponse struct {
	ID         string `json:"id"`
	Procedure  string `json:"procedure"`
	Args       []any  `json:"args,omitempty"`
	Status     string `json:"status"`
	Source     string `json:"source,omitempty"`
	Error      string `json:"error,omitempty"`
	StartedAt  string `json:"started_at,omitempty"`
	FinishedAt string `json:"finished_at,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// IsFinished сообщает, что run в терминальном статусе.
func (r *RunResponse) IsFinished() bool {
	switch r.Status {
	case "SUCCEEDED", "FAILED", "CANCELLED":
		return true
	}
	return false
}

// --- Request types ---

// StartRunRequest — запуск процедуры.
type StartRunRequest struct {
	Args []any `json:"args,omitempty"`
}

// ListRunsOpts — фильтры списка runs.
type ListRunsOpts struct {
	Procedure string
	Status    string
	Limit     int
}

// --- Envelope types ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError — ответ API со статусом >= 400.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error реализует интерфейс error.
func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Client — HTTP-клиент для API ndo-runner.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для baseURL (например, http://localhost:8080).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Procedures ---

// ListProcedures возвращает зарегистрированные процедуры.
func (c *Client) ListProcedures() ([]ProcedureSummary, error) {
	var procs []ProcedureSummary
	err := c.list("/api/v1/procedures", nil, &procs)
	return procs, err
}

// GetProcedure возвращает определение процедуры в исходном JSON.
func (c *Client) GetProcedure(name string) (json.RawMessage, error) {
	var def json.RawMessage
	err := c.get("/api/v1/procedures/"+url.PathEscape(name), &def)
	return def, err
}

// ApplyProcedure создаёт или заменяет процедуру.
func (c *Client) ApplyProcedure(name string, def any) (*ProcedureSummary, error) {
	var summary ProcedureSummary
	err := c.put("/api/v1/procedures/"+url.PathEscape(name), def, &summary)
	return &summary, err
}

// DeleteProcedure снимает процедуру с регистрации.
func (c *Client) DeleteProcedure(name string) error {
	return c.delete("/api/v1/procedures/" + url.PathEscape(name))
}

// --- Runs ---

// StartRun запускает процедуру с аргументами.
func (c *Client) StartRun(name string, args []any) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/procedures/"+url.PathEscape(name)+"/runs", StartRunRequest{Args: args}, &run)
	return &run, err
}

// ListRuns возвращает список runs с фильтрацией.
func (c *Client) ListRuns(opts ListRunsOpts) ([]RunResponse, error) {
	params := url.Values{}
	if opts.Procedure != "" {
		params.Set("procedure", opts.Procedure)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	var runs []RunResponse
	err := c.list("/api/v1/runs", params, &runs)
	return runs, err
}

// GetRun возвращает run по ID.
func (c *Client) GetRun(id string) (*RunResponse, error) {
	var run RunResponse
	err := c.get("/api/v1/runs/"+url.PathEscape(id), &run)
	return &run, err
}

// CancelRun отменяет run.
func (c *Client) CancelRun(id string) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/runs/"+url.PathEscape(id)+"/cancel", nil, &run)
	return &run, err
}

// WaitRun опрашивает run, пока он не завершится или не истечёт timeout.
func (c *Client) WaitRun(id string, interval, timeout time.Duration) (*RunResponse, error) {
	deadline := time.Now().Add(timeout)
	for {
		run, err := c.GetRun(id)
		if err != nil {
			return nil, err
		}
		if run.IsFinished() {
			return run, nil
		}
		if time.Now().After(deadline) {
			return run, fmt.Errorf("run %s still %s after %s", id, run.Status, timeout)
		}
		time.Sleep(interval)
	}
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkError(resp); err != nil {
		return err
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func checkError(resp *http.Response) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err == nil {
		apiErr.Code = er.Error.Code
		apiErr.Message = er.Error.Message
	}
	return apiErr
}
