package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Notiflow/internal/domain"
	"github.com/shaiso/Notiflow/internal/repo"
)

// IngestEvent принимает событие в обработку.
// POST /api/v1/events
//
// Событие сохраняется в статусе PENDING и публикуется в очередь.
// Ответ 202: обработка правил асинхронная.
func (h *Handler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	var req IngestEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Type == "" || req.Event == "" {
		BadRequest(w, "type and event are required")
		return
	}
	if req.Source == "" {
		BadRequest(w, "source is required")
		return
	}

	occurredAt := time.Now()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	event := &domain.Event{
		ID:         uuid.New(),
		Type:       req.Type,
		Event:      req.Event,
		Source:     req.Source,
		Payload:    req.Payload,
		Status:     domain.EventStatusPending,
		UserID:     req.UserID,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		OccurredAt: occurredAt,
	}

	if err := h.eventRepo.Create(r.Context(), event); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	// Публикуем событие в очередь; при недоступном MQ его подхватит
	// polling-цикл движка
	if h.publisher != nil {
		if err := h.publisher.PublishEventPending(r.Context(), event.ID); err != nil {
			h.logger.Warn("failed to publish event.pending", "event_id", event.ID, "error", err)
		}
	}

	Accepted(w, EventFromDomain(*event))
}

// ListEvents возвращает список событий с фильтрацией.
// GET /api/v1/events?status=...&type=...&source=...&limit=...&offset=...
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	filter := repo.EventFilter{
		Status: domain.EventStatus(r.URL.Query().Get("status")),
		Type:   r.URL.Query().Get("type"),
		Source: r.URL.Query().Get("source"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	events, err := h.eventRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]EventResponse, len(events))
	for i, e := range events {
		result[i] = EventFromDomain(e)
	}

	List(w, result, len(result))
}

// GetEvent возвращает событие по ID.
// GET /api/v1/events/{id}
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid event id")
		return
	}

	event, err := h.eventRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "event not found") {
		return
	}

	Success(w, EventFromDomain(*event))
}

// ListEventExecutions возвращает записи исполнения по событию.
// GET /api/v1/events/{id}/executions
func (h *Handler) ListEventExecutions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid event id")
		return
	}

	// Проверяем, что событие существует
	_, err = h.eventRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "event not found") {
		return
	}

	execs, err := h.executionRepo.ListByEventID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ExecutionResponse, len(execs))
	for i, e := range execs {
		result[i] = ExecutionFromDomain(e)
	}

	List(w, result, len(result))
}

// ReprocessEvent возвращает FAILED событие в обработку.
// POST /api/v1/events/{id}/reprocess
//
// Уже записанные правила повторно не выполняются.
func (h *Handler) ReprocessEvent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid event id")
		return
	}

	if err := h.eventRepo.RequeueFailed(r.Context(), id); err != nil {
		HandleRepoError(w, h.logger, err, "event not found")
		return
	}

	if h.publisher != nil {
		if err := h.publisher.PublishEventPending(r.Context(), id); err != nil {
			h.logger.Warn("failed to publish event.pending", "event_id", id, "error", err)
		}
	}

	event, err := h.eventRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "event not found") {
		return
	}

	Accepted(w, EventFromDomain(*event))
}

// queryInt парсит целочисленный query параметр с дефолтным значением.
func queryInt(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	n, err := json.Number(s).Int64()
	if err != nil {
		return defaultVal
	}
	return int(n)
}
