package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notification — выходной артефакт движка.
//
// Создаётся диспетчером при срабатывании правила; дальше владение
// переходит подсистеме доставки (UI push, email, SMS), которая читает
// артефакты по recipient_type/recipient_id. Движок нотификации не
// изменяет и не доставляет.
type Notification struct {
	// ID — уникальный идентификатор нотификации.
	ID uuid.UUID `json:"id"`

	// Title, Message — отрендеренные заголовок и текст.
	Title   string `json:"title"`
	Message string `json:"message"`

	// Type — тип для подсистемы доставки: "info", "warning", "error", "success".
	Type string `json:"type"`

	// Category — категория: "stock", "production", "system" и т.д.
	Category string `json:"category"`

	// Priority — приоритет.
	Priority Priority `json:"priority"`

	// RecipientType — способ адресации.
	RecipientType RecipientType `json:"recipient_type"`

	// RecipientIDs — получатели. Пустой список при RecipientAll.
	RecipientIDs []string `json:"recipient_ids,omitempty"`

	// ActionURL, ActionLabel — действие нотификации (опционально).
	ActionURL   string `json:"action_url,omitempty"`
	ActionLabel string `json:"action_label,omitempty"`

	// Source — происхождение артефакта, всегда "rule:<rule_id>".
	Source string `json:"source"`

	// RuleID, EventID — корреляция с правилом и событием.
	RuleID  uuid.UUID `json:"rule_id"`
	EventID uuid.UUID `json:"event_id"`

	// Data — переменные, использованные при рендеринге (для отладки доставки).
	Data map[string]any `json:"data,omitempty"`

	// Persistent — сохранять ли после прочтения.
	Persistent bool `json:"persistent"`

	// ExpiresAt — срок жизни. Nil — бессрочная.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired возвращает true, если нотификация просрочена на момент now.
func (n *Notification) IsExpired(now time.Time) bool {
	return n.ExpiresAt != nil && now.After(*n.ExpiresAt)
}
