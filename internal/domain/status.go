package domain

// EventStatus — статус обработки события.
//
// Жизненный цикл:
//
//	PENDING → PROCESSING → PROCESSED
//	                     ↘ FAILED
type EventStatus string

const (
	// EventStatusPending — событие принято, но ещё не обработано движком.
	EventStatusPending EventStatus = "PENDING"

	// EventStatusProcessing — событие в процессе сопоставления с правилами.
	EventStatusProcessing EventStatus = "PROCESSING"

	// EventStatusProcessed — событие обработано (даже если ни одно правило не сработало).
	EventStatusProcessed EventStatus = "PROCESSED"

	// EventStatusFailed — подбор правил не удался (например, хранилище недоступно).
	EventStatusFailed EventStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный (событие завершено).
func (s EventStatus) IsTerminal() bool {
	switch s {
	case EventStatusProcessed, EventStatusFailed:
		return true
	default:
		return false
	}
}

// ExecutionStatus — исход одной оценки правила для одного события.
type ExecutionStatus string

const (
	// ExecutionStatusSuccess — условия выполнены, нотификация создана.
	ExecutionStatusSuccess ExecutionStatus = "SUCCESS"

	// ExecutionStatusFailure — рендеринг или диспетчеризация завершились ошибкой.
	ExecutionStatusFailure ExecutionStatus = "FAILURE"

	// ExecutionStatusSkipped — условия не выполнены, действие не выполнялось.
	ExecutionStatusSkipped ExecutionStatus = "SKIPPED"
)

// ExecutionResult — короткий код результата оценки правила.
type ExecutionResult string

const (
	// ResultDispatched — нотификация создана и сохранена.
	ResultDispatched ExecutionResult = "dispatched"

	// ResultConditionNotMet — условия правила не выполнены.
	ResultConditionNotMet ExecutionResult = "condition_not_met"

	// ResultRuleInactive — правило было деактивировано между подбором и оценкой.
	ResultRuleInactive ExecutionResult = "rule_inactive"

	// ResultRenderError — ошибка рендеринга шаблона (strict mode).
	ResultRenderError ExecutionResult = "render_error"

	// ResultDispatchError — ошибка сохранения нотификации.
	ResultDispatchError ExecutionResult = "dispatch_error"

	// ResultTimeout — оценка правила превысила таймаут.
	ResultTimeout ExecutionResult = "timeout"

	// ResultSystemError — внутренняя ошибка (паника, некорректные данные).
	ResultSystemError ExecutionResult = "system_error"
)

// Priority — приоритет нотификации.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// RecipientType — способ адресации нотификации.
type RecipientType string

const (
	// RecipientAll — широковещательная нотификация без конкретного получателя.
	RecipientAll RecipientType = "all"

	// RecipientUser — список конкретных идентификаторов пользователей.
	RecipientUser RecipientType = "user"

	// RecipientRole — логическая нотификация на роль; fan-out по членам роли
	// выполняет подсистема доставки.
	RecipientRole RecipientType = "role"

	// RecipientGroup — логическая нотификация на группу; fan-out по членам
	// группы выполняет подсистема доставки.
	RecipientGroup RecipientType = "group"
)
