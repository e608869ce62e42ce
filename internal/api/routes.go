package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Events
	mux.Handle("POST /api/v1/events", chain(http.HandlerFunc(h.IngestEvent)))
	mux.Handle("GET /api/v1/events", chain(http.HandlerFunc(h.ListEvents)))
	mux.Handle("GET /api/v1/events/{id}", chain(http.HandlerFunc(h.GetEvent)))
	mux.Handle("GET /api/v1/events/{id}/executions", chain(http.HandlerFunc(h.ListEventExecutions)))
	mux.Handle("POST /api/v1/events/{id}/reprocess", chain(http.HandlerFunc(h.ReprocessEvent)))

	// Rules
	mux.Handle("GET /api/v1/rules", chain(http.HandlerFunc(h.ListRules)))
	mux.Handle("POST /api/v1/rules", chain(http.HandlerFunc(h.CreateRule)))
	mux.Handle("GET /api/v1/rules/{id}", chain(http.HandlerFunc(h.GetRule)))
	mux.Handle("PUT /api/v1/rules/{id}", chain(http.HandlerFunc(h.UpdateRule)))
	mux.Handle("DELETE /api/v1/rules/{id}", chain(http.HandlerFunc(h.DeleteRule)))
	mux.Handle("GET /api/v1/rules/{id}/executions", chain(http.HandlerFunc(h.ListRuleExecutions)))
	mux.Handle("PUT /api/v1/rules/{id}/enabled", chain(http.HandlerFunc(h.SetRuleEnabled)))
	mux.Handle("POST /api/v1/rules/{id}/test", chain(http.HandlerFunc(h.TestRule)))

	// Executions
	mux.Handle("GET /api/v1/executions", chain(http.HandlerFunc(h.ListExecutions)))
	mux.Handle("GET /api/v1/executions/{id}", chain(http.HandlerFunc(h.GetExecution)))

	// Notifications
	mux.Handle("GET /api/v1/notifications", chain(http.HandlerFunc(h.ListNotifications)))
	mux.Handle("GET /api/v1/notifications/{id}", chain(http.HandlerFunc(h.GetNotification)))

	// Stats
	mux.Handle("GET /api/v1/stats", chain(http.HandlerFunc(h.GetStats)))
}
