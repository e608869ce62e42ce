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

// EventRepo — репозиторий для работы с событиями.
//
// Жизненный цикл события управляется через ClaimPending и Finalize:
// захват выполняется условным UPDATE по статусу PENDING, поэтому
// конкурирующие обработчики и повторные доставки из очереди не могут
// обработать одно событие дважды. Зависшие PROCESSING возвращает в
// очередь RequeueStale.
type EventRepo struct {
	pool *pgxpool.Pool
}

// NewEventRepo создаёт новый EventRepo.
func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

const eventColumns = `
	id, type, event, source, payload, status,
	user_id, entity_type, entity_id,
	rules_triggered, notifications_created, processing_error,
	occurred_at, claimed_at, processed_at
`

// Create сохраняет новое событие в статусе PENDING.
func (r *EventRepo) Create(ctx context.Context, event *domain.Event) error {
	payloadJSON, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
		INSERT INTO events (id, type, event, source, payload, status,
		                    user_id, entity_type, entity_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.pool.Exec(ctx, query,
		event.ID,
		event.Type,
		event.Event,
		event.Source,
		payloadJSON,
		event.Status,
		nullString(event.UserID),
		nullString(event.EntityType),
		nullString(event.EntityID),
		event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByID возвращает событие по ID.
func (r *EventRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return scanEvent(r.pool.QueryRow(ctx, query, id))
}

// EventFilter — параметры фильтрации событий.
type EventFilter struct {
	Status domain.EventStatus
	Type   string
	Source string
	Limit  int
	Offset int
}

// List возвращает события с фильтрацией, новые первыми.
func (r *EventRepo) List(ctx context.Context, filter EventFilter) ([]domain.Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR type = $2)
		  AND ($3::text IS NULL OR source = $3)
		ORDER BY occurred_at DESC
		LIMIT $4 OFFSET $5
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(string(filter.Status)),
		nullString(filter.Type),
		nullString(filter.Source),
		limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

// ListPending возвращает необработанные события, старые первыми.
// Используется поллинг-циклом движка как страховка на случай потери
// сообщения в очереди.
func (r *EventRepo) ListPending(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE status = $1
		ORDER BY occurred_at ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, domain.EventStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending events: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

// ClaimPending атомарно переводит событие PENDING -> PROCESSING и
// возвращает его. Если событие не существует — ErrNotFound; если оно
// уже захвачено или завершено — ErrInvalidState. Условный UPDATE
// гарантирует, что ровно один обработчик выиграет захват.
func (r *EventRepo) ClaimPending(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	query := `
		UPDATE events
		SET status = $2, claimed_at = now()
		WHERE id = $1 AND status = $3
		RETURNING ` + eventColumns

	event, err := scanEvent(r.pool.QueryRow(ctx, query, id, domain.EventStatusProcessing, domain.EventStatusPending))
	if errors.Is(err, ErrNotFound) {
		// Отличаем отсутствующее событие от уже захваченного.
		exists, checkErr := r.exists(ctx, id)
		if checkErr != nil {
			return nil, checkErr
		}
		if exists {
			return nil, ErrInvalidState
		}
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

// Finalize записывает итог обработки: статус PROCESSED или FAILED,
// счётчики и текст ошибки. Переход допустим только из PROCESSING.
func (r *EventRepo) Finalize(ctx context.Context, event *domain.Event) error {
	query := `
		UPDATE events
		SET status = $2, rules_triggered = $3, notifications_created = $4,
		    processing_error = $5, processed_at = $6
		WHERE id = $1 AND status = $7
	`
	result, err := r.pool.Exec(ctx, query,
		event.ID,
		event.Status,
		event.RulesTriggered,
		event.NotificationsCreated,
		nullString(event.ProcessingError),
		event.ProcessedAt,
		domain.EventStatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("finalize event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

// RequeueFailed возвращает FAILED событие в PENDING для повторной
// обработки. Возвращает ErrInvalidState, если событие не в FAILED.
func (r *EventRepo) RequeueFailed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE events
		SET status = $2, processing_error = NULL, processed_at = NULL, claimed_at = NULL
		WHERE id = $1 AND status = $3
	`
	result, err := r.pool.Exec(ctx, query, id, domain.EventStatusPending, domain.EventStatusFailed)
	if err != nil {
		return fmt.Errorf("requeue failed event: %w", err)
	}
	if result.RowsAffected() == 0 {
		exists, checkErr := r.exists(ctx, id)
		if checkErr != nil {
			return checkErr
		}
		if exists {
			return ErrInvalidState
		}
		return ErrNotFound
	}
	return nil
}

// RequeueStale возвращает в PENDING события, зависшие в PROCESSING
// дольше threshold с момента захвата (обработчик упал между захватом
// и финализацией). Отсчёт идёт от claimed_at, а не от occurred_at:
// время ожидания в PENDING не должно делать событие "зависшим".
// Повторную обработку уже записанных правил отсеивает дедупликация
// по записям исполнения.
func (r *EventRepo) RequeueStale(ctx context.Context, threshold time.Duration) (int64, error) {
	query := `
		UPDATE events
		SET status = $1, claimed_at = NULL
		WHERE status = $2 AND claimed_at < now() - $3::interval
	`
	result, err := r.pool.Exec(ctx, query,
		domain.EventStatusPending,
		domain.EventStatusProcessing,
		threshold.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("requeue stale events: %w", err)
	}
	return result.RowsAffected(), nil
}

// PurgeProcessed удаляет успешно обработанные события старше before.
func (r *EventRepo) PurgeProcessed(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM events WHERE status = $1 AND processed_at < $2`
	result, err := r.pool.Exec(ctx, query, domain.EventStatusProcessed, before)
	if err != nil {
		return 0, fmt.Errorf("purge processed events: %w", err)
	}
	return result.RowsAffected(), nil
}

// CountByStatus возвращает распределение событий по статусам.
func (r *EventRepo) CountByStatus(ctx context.Context) (map[domain.EventStatus]int64, error) {
	query := `SELECT status, count(*) FROM events GROUP BY status`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count events by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.EventStatus]int64)
	for rows.Next() {
		var status domain.EventStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan event count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *EventRepo) exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check event exists: %w", err)
	}
	return exists, nil
}

// --- Helpers ---

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var event domain.Event
	var payloadJSON []byte
	var userID, entityType, entityID, processingError *string

	err := row.Scan(
		&event.ID,
		&event.Type,
		&event.Event,
		&event.Source,
		&payloadJSON,
		&event.Status,
		&userID,
		&entityType,
		&entityID,
		&event.RulesTriggered,
		&event.NotificationsCreated,
		&processingError,
		&event.OccurredAt,
		&event.ClaimedAt,
		&event.ProcessedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}

	if payloadJSON != nil {
		if err := json.Unmarshal(payloadJSON, &event.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	event.UserID = derefString(userID)
	event.EntityType = derefString(entityType)
	event.EntityID = derefString(entityID)
	event.ProcessingError = derefString(processingError)

	return &event, nil
}

func collectEvents(rows pgx.Rows) ([]domain.Event, error) {
	var events []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
