package api

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shaiso/ndo/internal/domain"
	"github.com/shaiso/ndo/internal/procedure"
)

// maxDefinitionSize ограничивает тело PUT /procedures/{name}.
const maxDefinitionSize = 1 << 20

// ListProcedures возвращает зарегистрированные процедуры.
// GET /api/v1/procedures
func (h *Handler) ListProcedures(w http.ResponseWriter, r *http.Request) {
	names := h.registry.Names()

	result := make([]ProcedureSummary, len(names))
	for i, name := range names {
		if def, ok := h.definition(name); ok {
			result[i] = SummaryFromDef(def)
			continue
		}
		result[i] = ProcedureSummary{Name: name}
	}

	List(w, result, len(result))
}

// GetProcedure возвращает определение процедуры.
// GET /api/v1/procedures/{name}
func (h *Handler) GetProcedure(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if def, ok := h.definition(name); ok && h.registry.Has(name) {
		Success(w, def)
		return
	}
	if h.registry.Has(name) {
		Success(w, ProcedureSummary{Name: name})
		return
	}
	NotFound(w, fmt.Sprintf("procedure '%s' does not exist", name))
}

// PutProcedure создаёт или заменяет декларативную процедуру.
// PUT /api/v1/procedures/{name}
//
// Определение валидируется и компилируется до записи: при ошибке
// ни реестр, ни каталог не меняются. Уже запущенные run продолжают
// работать со старым определением.
func (h *Handler) PutProcedure(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxDefinitionSize))
	if err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	def, err := procedure.ParseJSON(body)
	if HandleError(w, h.logger, err) {
		return
	}
	if def.Name == "" {
		def.Name = name
	}
	if def.Name != name {
		BadRequest(w, fmt.Sprintf("name %q does not match path %q", def.Name, name))
		return
	}

	proc, err := h.compiler.Compile(def)
	if HandleError(w, h.logger, err) {
		return
	}

	def.UpdatedAt = time.Now().UTC()
	if h.catalog != nil {
		if err := h.catalog.Upsert(r.Context(), def); err != nil {
			InternalError(w, h.logger, err)
			return
		}
	}

	h.mu.Lock()
	h.defs[name] = def
	h.registry.Register(name, proc)
	h.mu.Unlock()

	h.logger.Info("procedure installed", "procedure", name, "steps", def.StepCount())
	Success(w, SummaryFromDef(def))
}

// DeleteProcedure снимает процедуру с регистрации.
// DELETE /api/v1/procedures/{name}
func (h *Handler) DeleteProcedure(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if !h.registry.Has(name) {
		NotFound(w, fmt.Sprintf("procedure '%s' does not exist", name))
		return
	}

	_, declarative := h.definition(name)
	if h.catalog != nil && declarative {
		if err := h.catalog.Delete(r.Context(), name); err != nil && !isNotFound(err) {
			InternalError(w, h.logger, err)
			return
		}
	}

	h.mu.Lock()
	delete(h.defs, name)
	h.registry.Unregister(name)
	h.mu.Unlock()

	h.logger.Info("procedure removed", "procedure", name)
	NoContent(w)
}

// StartRun запускает процедуру.
// POST /api/v1/procedures/{name}/runs
func (h *Handler) StartRun(w http.ResponseWriter, r *http.Request) {
	var req StartRunRequest
	if err := decodeOptional(r.Body, &req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	run, err := h.runs.Start(r.Context(), r.PathValue("name"), req.Args, domain.RunSourceAPI)
	if HandleError(w, h.logger, err) {
		return
	}

	Accepted(w, RunFromDomain(*run))
}
