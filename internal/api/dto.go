package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Notiflow/internal/domain"
	"github.com/shaiso/Notiflow/internal/repo"
)

// Event DTOs

// IngestEventRequest — запрос на приём события.
type IngestEventRequest struct {
	Type       string         `json:"type"`
	Event      string         `json:"event"`
	Source     string         `json:"source"`
	Payload    map[string]any `json:"payload,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	EntityType string         `json:"entity_type,omitempty"`
	EntityID   string         `json:"entity_id,omitempty"`
	OccurredAt *time.Time     `json:"occurred_at,omitempty"`
}

// EventResponse — ответ с событием.
type EventResponse struct {
	ID                   uuid.UUID      `json:"id"`
	Type                 string         `json:"type"`
	Event                string         `json:"event"`
	Source               string         `json:"source"`
	Payload              map[string]any `json:"payload,omitempty"`
	Status               string         `json:"status"`
	UserID               string         `json:"user_id,omitempty"`
	EntityType           string         `json:"entity_type,omitempty"`
	EntityID             string         `json:"entity_id,omitempty"`
	RulesTriggered       int            `json:"rules_triggered"`
	NotificationsCreated int            `json:"notifications_created"`
	ProcessingError      string         `json:"processing_error,omitempty"`
	OccurredAt           time.Time      `json:"occurred_at"`
	ProcessedAt          *time.Time     `json:"processed_at,omitempty"`
}

// EventFromDomain конвертирует domain.Event в EventResponse.
func EventFromDomain(e domain.Event) EventResponse {
	return EventResponse{
		ID:                   e.ID,
		Type:                 e.Type,
		Event:                e.Event,
		Source:               e.Source,
		Payload:              e.Payload,
		Status:               string(e.Status),
		UserID:               e.UserID,
		EntityType:           e.EntityType,
		EntityID:             e.EntityID,
		RulesTriggered:       e.RulesTriggered,
		NotificationsCreated: e.NotificationsCreated,
		ProcessingError:      e.ProcessingError,
		OccurredAt:           e.OccurredAt,
		ProcessedAt:          e.ProcessedAt,
	}
}

// Rule DTOs

// CreateRuleRequest — запрос на создание правила.
type CreateRuleRequest struct {
	Name         string                  `json:"name"`
	Description  string                  `json:"description,omitempty"`
	IsActive     *bool                   `json:"is_active,omitempty"`
	Trigger      domain.Trigger          `json:"trigger"`
	Conditions   []domain.Condition      `json:"conditions,omitempty"`
	Notification domain.NotificationSpec `json:"notification"`
}

// UpdateRuleRequest — запрос на обновление правила.
// Незаполненные поля не меняются.
type UpdateRuleRequest struct {
	Name         *string                  `json:"name,omitempty"`
	Description  *string                  `json:"description,omitempty"`
	IsActive     *bool                    `json:"is_active,omitempty"`
	Trigger      *domain.Trigger          `json:"trigger,omitempty"`
	Conditions   *[]domain.Condition      `json:"conditions,omitempty"`
	Notification *domain.NotificationSpec `json:"notification,omitempty"`
}

// SetRuleEnabledRequest — запрос на включение/выключение правила.
type SetRuleEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// RuleResponse — ответ с правилом.
type RuleResponse struct {
	ID            uuid.UUID               `json:"id"`
	Name          string                  `json:"name"`
	Description   string                  `json:"description,omitempty"`
	IsActive      bool                    `json:"is_active"`
	Trigger       domain.Trigger          `json:"trigger"`
	Conditions    []domain.Condition      `json:"conditions,omitempty"`
	Notification  domain.NotificationSpec `json:"notification"`
	TriggerCount  int64                   `json:"trigger_count"`
	LastTriggered *time.Time              `json:"last_triggered,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

// RuleFromDomain конвертирует domain.Rule в RuleResponse.
func RuleFromDomain(r domain.Rule) RuleResponse {
	return RuleResponse{
		ID:            r.ID,
		Name:          r.Name,
		Description:   r.Description,
		IsActive:      r.IsActive,
		Trigger:       r.Trigger,
		Conditions:    r.Conditions,
		Notification:  r.Notification,
		TriggerCount:  r.TriggerCount,
		LastTriggered: r.LastTriggered,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// TestRuleRequest — запрос на dry-run проверку правила.
// Событие собирается из запроса и нигде не сохраняется.
type TestRuleRequest struct {
	Type       string         `json:"type,omitempty"`
	Event      string         `json:"event,omitempty"`
	Source     string         `json:"source,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	EntityType string         `json:"entity_type,omitempty"`
	EntityID   string         `json:"entity_id,omitempty"`
}

// TestRuleResponse — результат dry-run проверки.
type TestRuleResponse struct {
	// TriggerMatched — совпал ли триггер правила с тестовым событием.
	TriggerMatched bool `json:"trigger_matched"`

	// ConditionsPassed — выполнились ли условия.
	ConditionsPassed bool `json:"conditions_passed"`

	// ConditionResults — трассировка по каждому условию.
	ConditionResults []domain.ConditionResult `json:"condition_results,omitempty"`

	// Notification — собранное уведомление (не сохранено).
	Notification *NotificationResponse `json:"notification,omitempty"`

	// RenderWarnings — предупреждения рендеринга шаблонов.
	RenderWarnings []string `json:"render_warnings,omitempty"`

	// RenderError — ошибка рендеринга в strict mode.
	RenderError string `json:"render_error,omitempty"`
}

// Execution DTOs

// ExecutionResponse — ответ с записью исполнения.
type ExecutionResponse struct {
	ID                uuid.UUID                `json:"id"`
	EventID           uuid.UUID                `json:"event_id"`
	RuleID            uuid.UUID                `json:"rule_id"`
	NotificationID    *uuid.UUID               `json:"notification_id,omitempty"`
	Status            string                   `json:"status"`
	Result            string                   `json:"result"`
	ConditionResults  []domain.ConditionResult `json:"condition_results,omitempty"`
	TemplateVariables map[string]any           `json:"template_variables,omitempty"`
	RenderWarnings    []string                 `json:"render_warnings,omitempty"`
	ErrorMessage      string                   `json:"error_message,omitempty"`
	ExecutionTimeMs   int64                    `json:"execution_time_ms"`
	ExecutedAt        time.Time                `json:"executed_at"`
}

// ExecutionFromDomain конвертирует domain.Execution в ExecutionResponse.
func ExecutionFromDomain(e domain.Execution) ExecutionResponse {
	return ExecutionResponse{
		ID:                e.ID,
		EventID:           e.EventID,
		RuleID:            e.RuleID,
		NotificationID:    e.NotificationID,
		Status:            string(e.Status),
		Result:            string(e.Result),
		ConditionResults:  e.ConditionResults,
		TemplateVariables: e.TemplateVariables,
		RenderWarnings:    e.RenderWarnings,
		ErrorMessage:      e.ErrorMessage,
		ExecutionTimeMs:   e.ExecutionTimeMs,
		ExecutedAt:        e.ExecutedAt,
	}
}

// StatsResponse — сводная статистика системы.
type StatsResponse struct {
	Events     map[string]int64  `json:"events"`
	Executions ExecutionStatsDTO `json:"executions"`
}

// ExecutionStatsDTO — агрегаты по записям исполнения.
type ExecutionStatsDTO struct {
	Total     int64            `json:"total"`
	ByStatus  map[string]int64 `json:"by_status"`
	ByResult  map[string]int64 `json:"by_result"`
	AvgTimeMs float64          `json:"avg_time_ms"`
}

// ExecutionStatsFromRepo конвертирует repo.ExecutionStats в DTO.
func ExecutionStatsFromRepo(s *repo.ExecutionStats) ExecutionStatsDTO {
	dto := ExecutionStatsDTO{
		Total:     s.Total,
		ByStatus:  make(map[string]int64, len(s.ByStatus)),
		ByResult:  make(map[string]int64, len(s.ByResult)),
		AvgTimeMs: s.AvgTimeMs,
	}
	for k, v := range s.ByStatus {
		dto.ByStatus[string(k)] = v
	}
	for k, v := range s.ByResult {
		dto.ByResult[string(k)] = v
	}
	return dto
}

// Notification DTOs

// NotificationResponse — ответ с уведомлением.
type NotificationResponse struct {
	ID            uuid.UUID      `json:"id"`
	Title         string         `json:"title"`
	Message       string         `json:"message"`
	Type          string         `json:"type"`
	Category      string         `json:"category,omitempty"`
	Priority      string         `json:"priority"`
	RecipientType string         `json:"recipient_type"`
	RecipientIDs  []string       `json:"recipient_ids,omitempty"`
	ActionURL     string         `json:"action_url,omitempty"`
	ActionLabel   string         `json:"action_label,omitempty"`
	Source        string         `json:"source"`
	RuleID        uuid.UUID      `json:"rule_id"`
	EventID       uuid.UUID      `json:"event_id"`
	Data          map[string]any `json:"data,omitempty"`
	Persistent    bool           `json:"persistent"`
	ExpiresAt     *time.Time     `json:"expires_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// NotificationFromDomain конвертирует domain.Notification в NotificationResponse.
func NotificationFromDomain(n domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:            n.ID,
		Title:         n.Title,
		Message:       n.Message,
		Type:          n.Type,
		Category:      n.Category,
		Priority:      string(n.Priority),
		RecipientType: string(n.RecipientType),
		RecipientIDs:  n.RecipientIDs,
		ActionURL:     n.ActionURL,
		ActionLabel:   n.ActionLabel,
		Source:        n.Source,
		RuleID:        n.RuleID,
		EventID:       n.EventID,
		Data:          n.Data,
		Persistent:    n.Persistent,
		ExpiresAt:     n.ExpiresAt,
		CreatedAt:     n.CreatedAt,
	}
}
