package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Notiflow/internal/domain"
	"github.com/shaiso/Notiflow/internal/repo"
)

// ListExecutions возвращает записи исполнения с фильтрацией.
// GET /api/v1/executions?rule_id=...&status=...&from=...&to=...&limit=...&offset=...
func (h *Handler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	filter := repo.ExecutionFilter{
		Status: domain.ExecutionStatus(r.URL.Query().Get("status")),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	if ruleIDStr := r.URL.Query().Get("rule_id"); ruleIDStr != "" {
		ruleID, err := uuid.Parse(ruleIDStr)
		if err != nil {
			BadRequest(w, "invalid rule_id")
			return
		}
		filter.RuleID = &ruleID
	}

	var ok bool
	if filter.From, ok = queryTime(r, "from"); !ok {
		BadRequest(w, "invalid from timestamp")
		return
	}
	if filter.To, ok = queryTime(r, "to"); !ok {
		BadRequest(w, "invalid to timestamp")
		return
	}

	execs, err := h.executionRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ExecutionResponse, len(execs))
	for i, e := range execs {
		result[i] = ExecutionFromDomain(e)
	}

	List(w, result, len(result))
}

// GetExecution возвращает запись исполнения по ID.
// GET /api/v1/executions/{id}
func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	exec, err := h.executionRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	Success(w, ExecutionFromDomain(*exec))
}

// GetStats возвращает сводную статистику системы.
// GET /api/v1/stats?from=...&to=...
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	from, ok := queryTime(r, "from")
	if !ok {
		BadRequest(w, "invalid from timestamp")
		return
	}
	to, ok := queryTime(r, "to")
	if !ok {
		BadRequest(w, "invalid to timestamp")
		return
	}

	eventCounts, err := h.eventRepo.CountByStatus(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	execStats, err := h.executionRepo.Stats(r.Context(), from, to)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	resp := StatsResponse{
		Events:     make(map[string]int64, len(eventCounts)),
		Executions: ExecutionStatsFromRepo(execStats),
	}
	for status, count := range eventCounts {
		resp.Events[string(status)] = count
	}

	Success(w, resp)
}

// queryTime парсит RFC3339 query параметр.
// Возвращает (nil, true) для отсутствующего параметра.
func queryTime(r *http.Request, name string) (*time.Time, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, false
	}
	return &t, true
}
