package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Notiflow/internal/dispatch"
	"github.com/shaiso/Notiflow/internal/domain"
	"github.com/shaiso/Notiflow/internal/engine"
	"github.com/shaiso/Notiflow/internal/repo"
)

// ListRules возвращает список правил с фильтрацией.
// GET /api/v1/rules?is_active=...&trigger_type=...&limit=...&offset=...
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	filter := repo.RuleFilter{
		TriggerType: r.URL.Query().Get("trigger_type"),
		Limit:       queryInt(r, "limit", 50),
		Offset:      queryInt(r, "offset", 0),
	}

	if s := r.URL.Query().Get("is_active"); s != "" {
		active := s == "true"
		filter.IsActive = &active
	}

	rules, err := h.ruleRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]RuleResponse, len(rules))
	for i, rule := range rules {
		result[i] = RuleFromDomain(rule)
	}

	List(w, result, len(result))
}

// CreateRule создаёт новое правило.
// POST /api/v1/rules
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	now := time.Now()
	rule := &domain.Rule{
		ID:           uuid.New(),
		Name:         req.Name,
		Description:  req.Description,
		IsActive:     isActive,
		Trigger:      req.Trigger,
		Conditions:   req.Conditions,
		Notification: req.Notification,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	applyNotificationDefaults(&rule.Notification)

	if err := validateRule(rule); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if err := h.ruleRepo.Create(r.Context(), rule); err != nil {
		HandleRepoError(w, h.logger, err, "")
		return
	}

	Created(w, RuleFromDomain(*rule))
}

// GetRule возвращает правило по ID.
// GET /api/v1/rules/{id}
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid rule id")
		return
	}

	rule, err := h.ruleRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "rule not found") {
		return
	}

	Success(w, RuleFromDomain(*rule))
}

// UpdateRule обновляет правило.
// PUT /api/v1/rules/{id}
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid rule id")
		return
	}

	var req UpdateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	rule, err := h.ruleRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "rule not found") {
		return
	}
	if rule.DeletedAt != nil {
		NotFound(w, "rule not found")
		return
	}

	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Description != nil {
		rule.Description = *req.Description
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	if req.Trigger != nil {
		rule.Trigger = *req.Trigger
	}
	if req.Conditions != nil {
		rule.Conditions = *req.Conditions
	}
	if req.Notification != nil {
		rule.Notification = *req.Notification
		applyNotificationDefaults(&rule.Notification)
	}

	if err := validateRule(rule); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if err := h.ruleRepo.Update(r.Context(), rule); err != nil {
		HandleRepoError(w, h.logger, err, "rule not found")
		return
	}

	Success(w, RuleFromDomain(*rule))
}

// DeleteRule выполняет мягкое удаление правила.
// DELETE /api/v1/rules/{id}
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid rule id")
		return
	}

	if err := h.ruleRepo.SoftDelete(r.Context(), id); err != nil {
		HandleRepoError(w, h.logger, err, "rule not found")
		return
	}

	NoContent(w)
}

// SetRuleEnabled включает или выключает правило.
// PUT /api/v1/rules/{id}/enabled
func (h *Handler) SetRuleEnabled(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid rule id")
		return
	}

	var req SetRuleEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if err := h.ruleRepo.SetActive(r.Context(), id, req.Enabled); err != nil {
		HandleRepoError(w, h.logger, err, "rule not found")
		return
	}

	rule, err := h.ruleRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "rule not found") {
		return
	}

	Success(w, RuleFromDomain(*rule))
}

// TestRule выполняет dry-run проверку правила на тестовом событии.
// POST /api/v1/rules/{id}/test
//
// Ничего не сохраняется: ни событие, ни уведомление, ни аудит.
func (h *Handler) TestRule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid rule id")
		return
	}

	var req TestRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	rule, err := h.ruleRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "rule not found") {
		return
	}

	// Собираем эфемерное событие; незаполненные поля триггера
	// берём из самого правила
	event := &domain.Event{
		ID:         uuid.New(),
		Type:       req.Type,
		Event:      req.Event,
		Source:     req.Source,
		Payload:    req.Payload,
		UserID:     req.UserID,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		OccurredAt: time.Now(),
	}
	if event.Type == "" {
		event.Type = rule.Trigger.Type
	}
	if event.Event == "" {
		event.Event = rule.Trigger.Event
	}
	if event.Source == "" {
		event.Source = rule.Trigger.Source
	}

	resp := TestRuleResponse{
		TriggerMatched: rule.Trigger.Matches(event),
	}

	passed, trace := engine.EvaluateConditions(rule.Conditions, event.Payload)
	resp.ConditionsPassed = passed
	resp.ConditionResults = trace

	if resp.TriggerMatched && passed {
		vars := dispatch.BuildVariables(event)
		dispatch.AddRuleContext(vars, rule)
		n, render, err := h.dispatcher.Build(rule, event, vars)
		if err != nil {
			resp.RenderError = err.Error()
			resp.RenderWarnings = render.Warnings
		} else {
			dto := NotificationFromDomain(*n)
			resp.Notification = &dto
			resp.RenderWarnings = render.Warnings
		}
	}

	Success(w, resp)
}

// ListRuleExecutions возвращает записи исполнения по правилу.
// GET /api/v1/rules/{id}/executions
func (h *Handler) ListRuleExecutions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid rule id")
		return
	}

	// Проверяем, что правило существует
	_, err = h.ruleRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "rule not found") {
		return
	}

	execs, err := h.executionRepo.List(r.Context(), repo.ExecutionFilter{
		RuleID: &id,
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	})
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ExecutionResponse, len(execs))
	for i, e := range execs {
		result[i] = ExecutionFromDomain(e)
	}

	List(w, result, len(result))
}

// applyNotificationDefaults подставляет значения по умолчанию.
func applyNotificationDefaults(spec *domain.NotificationSpec) {
	if spec.Type == "" {
		spec.Type = "info"
	}
	if spec.Priority == "" {
		spec.Priority = domain.PriorityNormal
	}
	if spec.RecipientType == "" {
		spec.RecipientType = domain.RecipientAll
	}
}

// validateRule проверяет правило перед сохранением.
func validateRule(rule *domain.Rule) error {
	if rule.Name == "" {
		return fmt.Errorf("name is required")
	}
	if rule.Trigger.Type == "" || rule.Trigger.Event == "" {
		return fmt.Errorf("trigger.type and trigger.event are required")
	}
	if rule.Notification.TitleTemplate == "" {
		return fmt.Errorf("notification.title_template is required")
	}
	if rule.Notification.MessageTemplate == "" {
		return fmt.Errorf("notification.message_template is required")
	}
	if rule.Notification.ExpiresIn < 0 {
		return fmt.Errorf("notification.expires_in must be non-negative")
	}

	switch rule.Notification.Priority {
	case domain.PriorityLow, domain.PriorityNormal, domain.PriorityHigh, domain.PriorityUrgent:
	default:
		return fmt.Errorf("unknown priority %q", rule.Notification.Priority)
	}

	switch rule.Notification.RecipientType {
	case domain.RecipientAll, domain.RecipientUser, domain.RecipientRole, domain.RecipientGroup:
	default:
		return fmt.Errorf("unknown recipient_type %q", rule.Notification.RecipientType)
	}

	for i, cond := range rule.Conditions {
		if cond.Field == "" {
			return fmt.Errorf("conditions[%d]: field is required", i)
		}
		if !domain.KnownOperator(cond.Operator) {
			return fmt.Errorf("conditions[%d]: unknown operator %q", i, cond.Operator)
		}
		if cond.Logic != "" && cond.Logic != domain.LogicAnd && cond.Logic != domain.LogicOr {
			return fmt.Errorf("conditions[%d]: unknown logic %q", i, cond.Logic)
		}
	}

	return nil
}
