package steps

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shaiso/ndo/internal/domain"
	"github.com/shaiso/ndo/internal/future"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	maxResponseBody    = 10 << 20
)

// HTTPStep выполняет HTTP запрос как ожидающую операцию.
//
// Конфигурация:
//
//	{
//	    "method": "POST",                    // по умолчанию GET
//	    "url": "https://hooks.example.com/{{ .Args.box }}",
//	    "headers": {"Authorization": "Bearer {{ .Env.API_TOKEN }}"},
//	    "body": {"box": "{{ .Args.box }}"},  // строка уходит как есть, остальное в JSON
//	    "follow_redirects": true,
//	    "validate_ssl": true,
//	    "timeout_sec": 30
//	}
//
// Outputs: status_code, headers (первое значение каждого заголовка) и body
// (разобранный JSON при application/json, иначе строка). Outputs
// записываются и для статуса >= 400, операция при этом отклоняется *HTTPError.
type HTTPStep struct {
	secure   http.RoundTripper
	insecure http.RoundTripper
}

// NewHTTPStep создаёт HTTPStep.
func NewHTTPStep() *HTTPStep {
	return &HTTPStep{
		secure: http.DefaultTransport,
		insecure: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
}

func (s *HTTPStep) Type() string {
	return domain.StepTypeHTTP
}

// Start проверяет конфигурацию синхронно и отправляет запрос в горутине.
func (s *HTTPStep) Start(ctx context.Context, req *Request) *future.Operation {
	call, err := newHTTPCall(req.Config, req.Timeout)
	if err != nil {
		return future.Rejected(err)
	}

	return future.Go(func() error {
		outputs, err := s.do(ctx, call)
		if outputs != nil {
			req.record(outputs)
		}
		return err
	})
}

// httpCall — запрос, собранный из отрендеренной конфигурации.
type httpCall struct {
	method          string
	url             string
	headers         map[string]string
	body            any
	followRedirects bool
	validateTLS     bool
	timeout         time.Duration
}

// newHTTPCall читает конфигурацию. Таймаут шага (timeout_sec в StepDef)
// важнее timeout_sec из config.
func newHTTPCall(config map[string]any, stepTimeout time.Duration) (*httpCall, error) {
	call := &httpCall{
		method:          strings.ToUpper(GetConfigString(config, "method")),
		url:             GetConfigString(config, "url"),
		headers:         GetConfigMapString(config, "headers"),
		body:            config["body"],
		followRedirects: GetConfigBool(config, "follow_redirects", true),
		validateTLS:     GetConfigBool(config, "validate_ssl", true),
		timeout:         defaultHTTPTimeout,
	}

	if call.url == "" {
		return nil, fmt.Errorf("%w: %s: url is required", ErrInvalidConfig, domain.StepTypeHTTP)
	}
	if call.method == "" {
		call.method = http.MethodGet
	}
	if call.headers == nil {
		call.headers = map[string]string{}
	}

	switch sec := GetConfigInt(config, "timeout_sec"); {
	case stepTimeout > 0:
		call.timeout = stepTimeout
	case sec > 0:
		call.timeout = time.Duration(sec) * time.Second
	}
	return call, nil
}

// request строит *http.Request. Тело без Content-Type считается JSON.
func (c *httpCall) request(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if c.body != nil {
		var payload []byte
		switch v := c.body.(type) {
		case string:
			payload = []byte(v)
		case []byte:
			payload = v
		default:
			data, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("serialize body: %w", err)
			}
			payload = data
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, c.method, c.url, body)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (s *HTTPStep) client(c *httpCall) *http.Client {
	client := &http.Client{Timeout: c.timeout, Transport: s.secure}
	if !c.validateTLS {
		client.Transport = s.insecure
	}
	if !c.followRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client
}

func (s *HTTPStep) do(ctx context.Context, c *httpCall) (map[string]any, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client(c).Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrStepCancelled, ctx.Err())
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	outputs, raw, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return outputs, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       raw,
		}
	}
	return outputs, nil
}

// readResponse возвращает outputs и тело ответа строкой.
func readResponse(resp *http.Response) (map[string]any, string, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, "", fmt.Errorf("read response body: %w", err)
	}

	var body any = string(data)
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var parsed any
		if json.Unmarshal(data, &parsed) == nil {
			body = parsed
		}
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"headers":     headers,
		"body":        body,
	}, string(data), nil
}

// HTTPError — ответ со статусом >= 400.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// IsHTTPError сообщает, что в цепочке err есть *HTTPError.
func IsHTTPError(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr)
}
