package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Notiflow/internal/domain"
)

// NotificationRepo — репозиторий созданных уведомлений.
type NotificationRepo struct {
	pool *pgxpool.Pool
}

// NewNotificationRepo создаёт новый NotificationRepo.
func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

const notificationColumns = `
	id, title, message, type, category, priority,
	recipient_type, recipient_ids, action_url, action_label,
	source, rule_id, event_id, data, persistent, expires_at, created_at
`

// Create сохраняет уведомление.
func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	dataJSON, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("marshal notification data: %w", err)
	}
	recipientsJSON, err := json.Marshal(n.RecipientIDs)
	if err != nil {
		return fmt.Errorf("marshal recipient ids: %w", err)
	}

	query := `
		INSERT INTO notifications (id, title, message, type, category, priority,
		                           recipient_type, recipient_ids, action_url, action_label,
		                           source, rule_id, event_id, data, persistent, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = r.pool.Exec(ctx, query,
		n.ID,
		n.Title,
		n.Message,
		n.Type,
		n.Category,
		n.Priority,
		n.RecipientType,
		recipientsJSON,
		nullString(n.ActionURL),
		nullString(n.ActionLabel),
		n.Source,
		n.RuleID,
		n.EventID,
		dataJSON,
		n.Persistent,
		n.ExpiresAt,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// GetByID возвращает уведомление по ID.
func (r *NotificationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	return scanNotification(r.pool.QueryRow(ctx, query, id))
}

// ListByRecipient возвращает неистёкшие уведомления для получателя:
// широковещательные (recipient_type = 'all') и адресные, где
// recipientID входит в recipient_ids. Новые первыми.
func (r *NotificationRepo) ListByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE (expires_at IS NULL OR expires_at > now())
		  AND (recipient_type = $1 OR recipient_ids @> $2::jsonb)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	recipientJSON, err := json.Marshal([]string{recipientID})
	if err != nil {
		return nil, fmt.Errorf("marshal recipient id: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, domain.RecipientAll, recipientJSON, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications by recipient: %w", err)
	}
	defer rows.Close()

	return collectNotifications(rows)
}

// ListByEventID возвращает уведомления, созданные при обработке события.
func (r *NotificationRepo) ListByEventID(ctx context.Context, eventID uuid.UUID) ([]domain.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE event_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("list notifications by event: %w", err)
	}
	defer rows.Close()

	return collectNotifications(rows)
}

// PurgeExpired удаляет непостоянные уведомления с истёкшим сроком.
// Постоянные (persistent) хранятся до явного удаления.
func (r *NotificationRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM notifications
		WHERE persistent = false AND expires_at IS NOT NULL AND expires_at < $1
	`
	result, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("purge expired notifications: %w", err)
	}
	return result.RowsAffected(), nil
}

// --- Helpers ---

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	var dataJSON, recipientsJSON []byte
	var actionURL, actionLabel *string

	err := row.Scan(
		&n.ID,
		&n.Title,
		&n.Message,
		&n.Type,
		&n.Category,
		&n.Priority,
		&n.RecipientType,
		&recipientsJSON,
		&actionURL,
		&actionLabel,
		&n.Source,
		&n.RuleID,
		&n.EventID,
		&dataJSON,
		&n.Persistent,
		&n.ExpiresAt,
		&n.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan notification: %w", err)
	}

	if recipientsJSON != nil {
		if err := json.Unmarshal(recipientsJSON, &n.RecipientIDs); err != nil {
			return nil, fmt.Errorf("unmarshal recipient ids: %w", err)
		}
	}
	if dataJSON != nil {
		if err := json.Unmarshal(dataJSON, &n.Data); err != nil {
			return nil, fmt.Errorf("unmarshal notification data: %w", err)
		}
	}
	n.ActionURL = derefString(actionURL)
	n.ActionLabel = derefString(actionLabel)

	return &n, nil
}

func collectNotifications(rows pgx.Rows) ([]domain.Notification, error) {
	var items []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *n)
	}
	return items, rows.Err()
}
