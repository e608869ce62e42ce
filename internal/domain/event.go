package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event — факт из бизнес-домена, поданный на оценку правилами.
//
// Event создаётся продюсером (модуль склада, производства, проектов и т.д.)
// через ingestion API и обрабатывается движком ровно до терминального
// статуса. Движок никогда не удаляет события — ретенцией занимается janitor.
type Event struct {
	// ID — уникальный идентификатор события.
	ID uuid.UUID `json:"id"`

	// Type — грубый домен события: "stock", "production", "project", "account".
	Type string `json:"type"`

	// Event — конкретное имя события внутри домена (например, "stock_low").
	Event string `json:"event"`

	// Source — идентификатор модуля-продюсера (например, "inventory-service").
	Source string `json:"source"`

	// Payload — произвольный структурированный документ с данными события.
	// Поля адресуются условиями правил через dot-path.
	Payload map[string]any `json:"payload,omitempty"`

	// Status — текущий статус обработки.
	Status EventStatus `json:"status"`

	// UserID — пользователь, связанный с событием (опционально).
	UserID string `json:"user_id,omitempty"`

	// EntityType, EntityID — корреляция с доменной сущностью (опционально).
	// Используются для обогащения переменных шаблона через enrich.Resolver.
	EntityType string `json:"entity_type,omitempty"`
	EntityID   string `json:"entity_id,omitempty"`

	// RulesTriggered — количество правил, чьи условия выполнились.
	RulesTriggered int `json:"rules_triggered"`

	// NotificationsCreated — количество созданных нотификаций.
	NotificationsCreated int `json:"notifications_created"`

	// ProcessingError — текст ошибки, если событие завершилось FAILED.
	ProcessingError string `json:"processing_error,omitempty"`

	// OccurredAt — время возникновения события у продюсера.
	OccurredAt time.Time `json:"occurred_at"`

	// ClaimedAt — время захвата события обработчиком. Nil, пока событие
	// в PENDING. Зависшие PROCESSING janitor ищет именно по этому полю:
	// ожидание в очереди не делает событие просроченным.
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`

	// ProcessedAt — время завершения обработки. Nil, пока событие не терминально.
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// Key возвращает составной ключ события для логов: "type/event/source".
func (e *Event) Key() string {
	return e.Type + "/" + e.Event + "/" + e.Source
}

// IsFinished возвращает true, если событие в терминальном статусе.
func (e *Event) IsFinished() bool {
	return e.Status.IsTerminal()
}

// MarkProcessing переводит событие в статус PROCESSING и фиксирует
// момент захвата.
func (e *Event) MarkProcessing() {
	now := time.Now()
	e.Status = EventStatusProcessing
	e.ClaimedAt = &now
}

// MarkProcessed переводит событие в статус PROCESSED с итоговыми счётчиками.
func (e *Event) MarkProcessed(rulesTriggered, notificationsCreated int) {
	now := time.Now()
	e.Status = EventStatusProcessed
	e.RulesTriggered = rulesTriggered
	e.NotificationsCreated = notificationsCreated
	e.ProcessedAt = &now
}

// MarkFailed переводит событие в статус FAILED с текстом ошибки.
func (e *Event) MarkFailed(errMsg string) {
	now := time.Now()
	e.Status = EventStatusFailed
	e.ProcessingError = errMsg
	e.ProcessedAt = &now
}
