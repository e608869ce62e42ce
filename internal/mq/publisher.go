package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeEventPending        MessageType = "event.pending"
	MessageTypeNotificationCreated MessageType = "notification.created"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// EventPendingPayload — payload для сообщения о новом событии.
type EventPendingPayload struct {
	EventID uuid.UUID `json:"event_id"`
}

// NotificationCreatedPayload — payload для сообщения о созданном уведомлении.
// Потребляют внешние сервисы доставки (websocket, email и т.д.).
type NotificationCreatedPayload struct {
	NotificationID uuid.UUID `json:"notification_id"`
	RuleID         uuid.UUID `json:"rule_id"`
	EventID        uuid.UUID `json:"event_id"`
	RecipientType  string    `json:"recipient_type"`
	RecipientIDs   []string  `json:"recipient_ids,omitempty"`
	Priority       string    `json:"priority"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishEventPending публикует событие, ожидающее обработки.
// Потребитель: Orchestrator.
func (p *Publisher) PublishEventPending(ctx context.Context, eventID uuid.UUID) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeEventPending,
		Payload:   EventPendingPayload{EventID: eventID},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeEvents, RoutingKeyPending, msg)
}

// PublishNotificationCreated публикует факт создания уведомления.
// Потребители: внешние сервисы доставки.
func (p *Publisher) PublishNotificationCreated(ctx context.Context, payload NotificationCreatedPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeNotificationCreated,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeNotifications, RoutingKeyCreated, msg)
}
