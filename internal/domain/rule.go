package domain

import (
	"time"

	"github.com/google/uuid"
)

// Rule — сохранённая спецификация "триггер + условия + нотификация".
//
// Rule — это "рецепт" реакции на событие. Движок читает правила только
// для оценки; изменяет их административный API. Единственные поля,
// которые движок обновляет сам — TriggerCount и LastTriggered (атомарный
// инкремент на уровне хранилища после успешной диспетчеризации).
type Rule struct {
	// ID — уникальный идентификатор правила.
	ID uuid.UUID `json:"id"`

	// Name — глобально уникальное имя правила.
	// Создание и обновление с дублирующимся именем отклоняются.
	Name string `json:"name"`

	// Description — описание назначения правила.
	Description string `json:"description,omitempty"`

	// IsActive — флаг активности. Неактивные правила никогда не подбираются.
	IsActive bool `json:"is_active"`

	// Trigger — грубый фильтр подбора правил по событию.
	Trigger Trigger `json:"trigger"`

	// Conditions — упорядоченный список условий над payload события.
	// Пустой список означает, что правило срабатывает на любой подобранный
	// по триггеру payload.
	Conditions []Condition `json:"conditions,omitempty"`

	// Notification — спецификация создаваемой нотификации.
	Notification NotificationSpec `json:"notification"`

	// TriggerCount — сколько раз правило успешно сработало.
	TriggerCount int64 `json:"trigger_count"`

	// LastTriggered — время последнего успешного срабатывания.
	LastTriggered *time.Time `json:"last_triggered,omitempty"`

	// CreatedAt, UpdatedAt — времена создания и последнего изменения.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// DeletedAt — время мягкого удаления. Удалённые правила не подбираются,
	// но остаются разрешимыми для исторических записей исполнения.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Trigger — точное совпадение (type, event, source) для подбора правил.
//
// Source опционален: пустая строка означает "любой источник".
// Wildcards не поддерживаются.
type Trigger struct {
	// Type — домен события: "stock", "production", "project", "account".
	Type string `json:"type"`

	// Event — конкретное имя события.
	Event string `json:"event"`

	// Source — модуль-продюсер. Пустая строка — любой.
	Source string `json:"source,omitempty"`
}

// Matches проверяет, подходит ли событие под триггер.
// Дублирует SQL-фильтр подбора; используется в dry-run и тестах.
func (t Trigger) Matches(e *Event) bool {
	if t.Type != e.Type || t.Event != e.Event {
		return false
	}
	return t.Source == "" || t.Source == e.Source
}

// NotificationSpec — как строить нотификацию при срабатывании правила.
type NotificationSpec struct {
	// Type — тип нотификации для подсистемы доставки: "info", "warning", "error", "success".
	Type string `json:"type"`

	// Category — категория: "stock", "production", "system" и т.д.
	Category string `json:"category"`

	// TitleTemplate, MessageTemplate — шаблоны с токенами {{variable}}.
	TitleTemplate   string `json:"title_template"`
	MessageTemplate string `json:"message_template"`

	// Priority — приоритет создаваемой нотификации.
	Priority Priority `json:"priority"`

	// RecipientType — способ адресации.
	RecipientType RecipientType `json:"recipient_type"`

	// RecipientIDs — идентификаторы получателей (пользователи, роли или
	// группы — в зависимости от RecipientType). Для "all" игнорируется.
	RecipientIDs []string `json:"recipient_ids,omitempty"`

	// ActionURLTemplate — шаблон URL действия (опционально).
	ActionURLTemplate string `json:"action_url_template,omitempty"`

	// ActionLabel — подпись кнопки действия.
	ActionLabel string `json:"action_label,omitempty"`

	// Persistent — сохранять ли нотификацию после прочтения.
	Persistent bool `json:"persistent"`

	// ExpiresIn — срок жизни нотификации в часах. 0 — без срока.
	ExpiresIn int `json:"expires_in,omitempty"`
}

// CanExecute возвращает true, если правило может быть оценено.
func (r *Rule) CanExecute() bool {
	return r.IsActive && r.DeletedAt == nil
}

// MarkDeleted выполняет мягкое удаление правила.
func (r *Rule) MarkDeleted() {
	now := time.Now()
	r.IsActive = false
	r.DeletedAt = &now
}
