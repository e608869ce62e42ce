package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Notiflow/internal/domain"
	"github.com/shaiso/Notiflow/internal/engine"
	"github.com/shaiso/Notiflow/internal/mq"
)

// Store — персистентное хранилище уведомлений.
type Store interface {
	Create(ctx context.Context, n *domain.Notification) error
}

// Broker публикует факт создания уведомления для сервисов доставки.
type Broker interface {
	PublishNotificationCreated(ctx context.Context, payload mq.NotificationCreatedPayload) error
}

// Dispatcher собирает уведомление по сработавшему правилу.
//
// Шаблоны заголовка, текста и action URL рендерятся по переменным
// события; готовое уведомление сохраняется в хранилище и публикуется
// в очередь notifications.created. Публикация best-effort: уведомление
// уже в БД, сервисы доставки могут забрать его через API.
type Dispatcher struct {
	store    Store
	broker   Broker // может быть nil (dry-run, тесты)
	renderer *engine.Renderer
	logger   *slog.Logger
}

// New создаёт новый Dispatcher.
func New(store Store, broker Broker, renderer *engine.Renderer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store:    store,
		broker:   broker,
		renderer: renderer,
		logger:   logger,
	}
}

// Build рендерит шаблоны правила и собирает уведомление без сохранения.
// Используется и боевой обработкой, и dry-run проверкой правила.
func (d *Dispatcher) Build(rule *domain.Rule, event *domain.Event, vars map[string]any) (*domain.Notification, *engine.RenderResult, error) {
	spec := rule.Notification
	result := &engine.RenderResult{}

	title, err := d.renderer.RenderInto(spec.TitleTemplate, vars, result)
	if err != nil {
		return nil, result, fmt.Errorf("render title: %w", err)
	}
	message, err := d.renderer.RenderInto(spec.MessageTemplate, vars, result)
	if err != nil {
		return nil, result, fmt.Errorf("render message: %w", err)
	}

	var actionURL string
	if spec.ActionURLTemplate != "" {
		actionURL, err = d.renderer.RenderInto(spec.ActionURLTemplate, vars, result)
		if err != nil {
			return nil, result, fmt.Errorf("render action url: %w", err)
		}
	}

	now := time.Now()

	var expiresAt *time.Time
	if spec.ExpiresIn > 0 {
		t := now.Add(time.Duration(spec.ExpiresIn) * time.Hour)
		expiresAt = &t
	}

	n := &domain.Notification{
		ID:            uuid.New(),
		Title:         title,
		Message:       message,
		Type:          spec.Type,
		Category:      spec.Category,
		Priority:      spec.Priority,
		RecipientType: spec.RecipientType,
		RecipientIDs:  recipients(spec, event),
		ActionURL:     actionURL,
		ActionLabel:   spec.ActionLabel,
		Source:        "rule:" + rule.ID.String(),
		RuleID:        rule.ID,
		EventID:       event.ID,
		Data:          event.Payload,
		Persistent:    spec.Persistent,
		ExpiresAt:     expiresAt,
		CreatedAt:     now,
	}

	return n, result, nil
}

// Dispatch собирает, сохраняет и публикует уведомление.
func (d *Dispatcher) Dispatch(ctx context.Context, rule *domain.Rule, event *domain.Event, vars map[string]any) (*domain.Notification, *engine.RenderResult, error) {
	n, result, err := d.Build(rule, event, vars)
	if err != nil {
		return nil, result, err
	}

	if err := d.store.Create(ctx, n); err != nil {
		return nil, result, fmt.Errorf("store notification: %w", err)
	}

	if d.broker != nil {
		payload := mq.NotificationCreatedPayload{
			NotificationID: n.ID,
			RuleID:         rule.ID,
			EventID:        event.ID,
			RecipientType:  string(n.RecipientType),
			RecipientIDs:   n.RecipientIDs,
			Priority:       string(n.Priority),
		}
		if err := d.broker.PublishNotificationCreated(ctx, payload); err != nil {
			d.logger.Warn("failed to publish notification.created",
				"notification_id", n.ID,
				"rule_id", rule.ID,
				"error", err,
			)
		}
	}

	return n, result, nil
}

// recipients определяет адресатов уведомления.
// Для recipient_type = user без явного списка адресат — инициатор события.
func recipients(spec domain.NotificationSpec, event *domain.Event) []string {
	if len(spec.RecipientIDs) > 0 {
		return spec.RecipientIDs
	}
	if spec.RecipientType == domain.RecipientUser && event.UserID != "" {
		return []string{event.UserID}
	}
	return nil
}
