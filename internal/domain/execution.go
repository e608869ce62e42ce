package domain

import (
	"time"

	"github.com/google/uuid"
)

// Execution — неизменяемая аудит-запись одной оценки правила для события.
//
// Инвариант полноты аудита: ровно одна Execution пишется на каждое
// правило, рассмотренное для события — независимо от того, выполнились
// условия, произошла ошибка или истёк таймаут. Записи никогда не
// изменяются и не удаляются движком.
type Execution struct {
	// ID — уникальный идентификатор записи.
	ID uuid.UUID `json:"id"`

	// EventID — событие, для которого оценивалось правило.
	EventID uuid.UUID `json:"event_id"`

	// RuleID — оценённое правило.
	RuleID uuid.UUID `json:"rule_id"`

	// NotificationID — созданная нотификация. Nil, если нотификации не было.
	NotificationID *uuid.UUID `json:"notification_id,omitempty"`

	// Status — исход оценки.
	Status ExecutionStatus `json:"status"`

	// Result — короткий код результата.
	Result ExecutionResult `json:"result"`

	// EventData — снимок payload, использованного при оценке.
	EventData map[string]any `json:"event_data,omitempty"`

	// ConditionResults — трассировка по каждому условию.
	ConditionResults []ConditionResult `json:"condition_results,omitempty"`

	// TemplateVariables — итоговый набор переменных шаблона.
	TemplateVariables map[string]any `json:"template_variables,omitempty"`

	// RenderWarnings — предупреждения рендеринга (неразрешённые токены и т.п.).
	RenderWarnings []string `json:"render_warnings,omitempty"`

	// ErrorMessage, ErrorDetails — описание ошибки для FAILURE.
	ErrorMessage string         `json:"error_message,omitempty"`
	ErrorDetails map[string]any `json:"error_details,omitempty"`

	// ExecutionTimeMs — длительность полной оценки правила в миллисекундах.
	ExecutionTimeMs int64 `json:"execution_time_ms"`

	// ExecutedAt — время оценки.
	ExecutedAt time.Time `json:"executed_at"`
}

// ConditionResult — результат оценки одного условия (элемент трассировки).
type ConditionResult struct {
	// Field, Operator — что оценивалось.
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`

	// FieldValue — разрешённое значение поля. Nil при отсутствии ключа.
	FieldValue any `json:"field_value,omitempty"`

	// FieldFound — найден ли ключ в payload.
	FieldFound bool `json:"field_found"`

	// Passed — результат условия.
	Passed bool `json:"passed"`

	// Reason — причина отказа, если условие деградировало в false
	// (ошибка коэрции, отсутствующее поле, некорректный regex).
	Reason string `json:"reason,omitempty"`
}

// NewSkippedExecution создаёт запись для правила, чьи условия не выполнились.
func NewSkippedExecution(eventID, ruleID uuid.UUID, result ExecutionResult, eventData map[string]any, trace []ConditionResult, elapsed time.Duration) *Execution {
	return &Execution{
		ID:               uuid.New(),
		EventID:          eventID,
		RuleID:           ruleID,
		Status:           ExecutionStatusSkipped,
		Result:           result,
		EventData:        eventData,
		ConditionResults: trace,
		ExecutionTimeMs:  elapsed.Milliseconds(),
		ExecutedAt:       time.Now(),
	}
}

// NewSuccessExecution создаёт запись для успешно сработавшего правила.
func NewSuccessExecution(eventID, ruleID, notificationID uuid.UUID, eventData map[string]any, trace []ConditionResult, vars map[string]any, warnings []string, elapsed time.Duration) *Execution {
	return &Execution{
		ID:                uuid.New(),
		EventID:           eventID,
		RuleID:            ruleID,
		NotificationID:    &notificationID,
		Status:            ExecutionStatusSuccess,
		Result:            ResultDispatched,
		EventData:         eventData,
		ConditionResults:  trace,
		TemplateVariables: vars,
		RenderWarnings:    warnings,
		ExecutionTimeMs:   elapsed.Milliseconds(),
		ExecutedAt:        time.Now(),
	}
}

// NewFailedExecution создаёт запись для правила, завершившегося ошибкой.
func NewFailedExecution(eventID, ruleID uuid.UUID, result ExecutionResult, eventData map[string]any, trace []ConditionResult, errMsg string, details map[string]any, elapsed time.Duration) *Execution {
	return &Execution{
		ID:               uuid.New(),
		EventID:          eventID,
		RuleID:           ruleID,
		Status:           ExecutionStatusFailure,
		Result:           result,
		EventData:        eventData,
		ConditionResults: trace,
		ErrorMessage:     errMsg,
		ErrorDetails:     details,
		ExecutionTimeMs:  elapsed.Milliseconds(),
		ExecutedAt:       time.Now(),
	}
}
