package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shaiso/ndo/internal/engine"
	"github.com/shaiso/ndo/internal/procedure"
	"github.com/shaiso/ndo/internal/repo"
	"github.com/shaiso/ndo/internal/runner"
	"github.com/shaiso/ndo/internal/steps"
)

// ErrorCode — машиночитаемый код ошибки в теле ответа.
type ErrorCode string

const (
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeInvalidState  ErrorCode = "INVALID_STATE"
	ErrCodeUnavailable   ErrorCode = "UNAVAILABLE"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// Конверты ответов:
//
//	{"data": ...}
//	{"data": [...], "total": N}
//	{"error": {"code": "NOT_FOUND", "message": "..."}}
type (
	DataResponse struct {
		Data any `json:"data"`
	}

	ListResponse struct {
		Data  any `json:"data"`
		Total int `json:"total"`
	}

	ErrorResponse struct {
		Error ErrorDetail `json:"error"`
	}

	ErrorDetail struct {
		Code    ErrorCode `json:"code"`
		Message string    `json:"message"`
	}
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// Success — 200 с данными.
func Success(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, DataResponse{Data: data})
}

// Accepted — 202, run запущен и выполняется асинхронно.
func Accepted(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusAccepted, DataResponse{Data: data})
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// List — 200 со списком и его длиной.
func List(w http.ResponseWriter, data any, total int) {
	writeJSON(w, http.StatusOK, ListResponse{Data: data, Total: total})
}

func BadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func NotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// InternalError логирует err и отвечает 500 без подробностей.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("internal error", "error", err)
	writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
}

// errorMapping сопоставляет ошибки сервисов со статусами. Первое совпадение выигрывает.
var errorMapping = []struct {
	match  func(error) bool
	status int
	code   ErrorCode
}{
	{isAny(engine.ErrProcedureNotFound, runner.ErrRunNotFound, repo.ErrNotFound), http.StatusNotFound, ErrCodeNotFound},
	{isAny(runner.ErrRunFinished), http.StatusUnprocessableEntity, ErrCodeInvalidState},
	{isAny(runner.ErrShuttingDown), http.StatusServiceUnavailable, ErrCodeUnavailable},
	{isInvalidDefinition, http.StatusBadRequest, ErrCodeBadRequest},
}

func isAny(targets ...error) func(error) bool {
	return func(err error) bool {
		for _, target := range targets {
			if errors.Is(err, target) {
				return true
			}
		}
		return false
	}
}

func isInvalidDefinition(err error) bool {
	var validation *procedure.ValidationError
	return errors.As(err, &validation) ||
		isAny(procedure.ErrParse, procedure.ErrEmptySteps, steps.ErrStepNotFound)(err)
}

// HandleError пишет ответ для err. Возвращает false, если err == nil.
func HandleError(w http.ResponseWriter, logger *slog.Logger, err error) bool {
	if err == nil {
		return false
	}
	for _, m := range errorMapping {
		if m.match(err) {
			writeError(w, m.status, m.code, err.Error())
			return true
		}
	}
	InternalError(w, logger, err)
	return true
}
