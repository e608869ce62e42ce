package api

import (
	"net/http"

	"github.com/google/uuid"
)

// ListNotifications возвращает уведомления получателя.
// GET /api/v1/notifications?recipient_id=...&limit=...&offset=...
//
// В выборку входят широковещательные уведомления и адресные, где
// получатель указан в recipient_ids; истёкшие не возвращаются.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	recipientID := r.URL.Query().Get("recipient_id")
	if recipientID == "" {
		BadRequest(w, "recipient_id is required")
		return
	}

	items, err := h.notifRepo.ListByRecipient(r.Context(), recipientID,
		queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]NotificationResponse, len(items))
	for i, n := range items {
		result[i] = NotificationFromDomain(n)
	}

	List(w, result, len(result))
}

// GetNotification возвращает уведомление по ID.
// GET /api/v1/notifications/{id}
func (h *Handler) GetNotification(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid notification id")
		return
	}

	n, err := h.notifRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "notification not found") {
		return
	}

	Success(w, NotificationFromDomain(*n))
}
