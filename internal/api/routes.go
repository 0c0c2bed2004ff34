package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Metrics(),
		Logging(h.logger),
	)

	// Procedures
	mux.Handle("GET /api/v1/procedures", chain(http.HandlerFunc(h.ListProcedures)))
	mux.Handle("GET /api/v1/procedures/{name}", chain(http.HandlerFunc(h.GetProcedure)))
	mux.Handle("PUT /api/v1/procedures/{name}", chain(http.HandlerFunc(h.PutProcedure)))
	mux.Handle("DELETE /api/v1/procedures/{name}", chain(http.HandlerFunc(h.DeleteProcedure)))
	mux.Handle("POST /api/v1/procedures/{name}/runs", chain(http.HandlerFunc(h.StartRun)))

	// Runs
	mux.Handle("GET /api/v1/runs", chain(http.HandlerFunc(h.ListRuns)))
	mux.Handle("GET /api/v1/runs/{id}", chain(http.HandlerFunc(h.GetRun)))
	mux.Handle("POST /api/v1/runs/{id}/cancel", chain(http.HandlerFunc(h.CancelRun)))
}
