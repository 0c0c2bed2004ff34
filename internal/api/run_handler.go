package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shaiso/ndo/internal/domain"
	"github.com/shaiso/ndo/internal/repo"
)

// ListRuns возвращает run, новые первыми.
// GET /api/v1/runs?procedure=...&status=...&limit=...
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	procedureName := query.Get("procedure")
	status := domain.RunStatus(query.Get("status"))

	limit := 50
	if s := query.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			BadRequest(w, "invalid limit")
			return
		}
		limit = n
	}

	result := make([]RunResponse, 0)
	for _, run := range h.runs.List() {
		if procedureName != "" && run.Procedure != procedureName {
			continue
		}
		if status != "" && run.Status != status {
			continue
		}
		result = append(result, RunFromDomain(run))
		if len(result) == limit {
			break
		}
	}

	List(w, result, len(result))
}

// GetRun возвращает run по ID.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}

	run, err := h.runs.Get(id)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, RunFromDomain(*run))
}

// CancelRun отменяет выполняющийся run.
// POST /api/v1/runs/{id}/cancel
//
// Отмена асинхронна: ответ содержит снимок run на момент запроса.
func (h *Handler) CancelRun(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}

	if HandleError(w, h.logger, h.runs.Cancel(id)) {
		return
	}

	run, err := h.runs.Get(id)
	if HandleError(w, h.logger, err) {
		return
	}
	Accepted(w, RunFromDomain(*run))
}

func runID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return uuid.Nil, false
	}
	return id, true
}

// decodeOptional декодирует JSON тело; пустое тело не ошибка.
func decodeOptional(body io.Reader, v any) error {
	err := json.NewDecoder(body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, repo.ErrNotFound)
}
