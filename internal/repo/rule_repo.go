package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Notiflow/internal/domain"
)

// RuleRepo — репозиторий для работы с правилами.
//
// Движок читает правила через ListActiveByTrigger и обновляет только
// статистику срабатываний (IncrementTriggerStats — атомарный инкремент
// на уровне БД, безопасный при конкурентной обработке событий).
// Остальные методы обслуживают административный API.
type RuleRepo struct {
	pool *pgxpool.Pool
}

// NewRuleRepo создаёт новый RuleRepo.
func NewRuleRepo(pool *pgxpool.Pool) *RuleRepo {
	return &RuleRepo{pool: pool}
}

const ruleColumns = `
	id, name, description, is_active, trigger, conditions, notification,
	trigger_count, last_triggered, created_at, updated_at, deleted_at
`

// Create создаёт новое правило.
// Возвращает ErrAlreadyExists при дубликате имени.
func (r *RuleRepo) Create(ctx context.Context, rule *domain.Rule) error {
	triggerJSON, conditionsJSON, notificationJSON, err := marshalRule(rule)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO rules (id, name, description, is_active, trigger, conditions, notification,
		                   trigger_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $8)
	`
	_, err = r.pool.Exec(ctx, query,
		rule.ID,
		rule.Name,
		rule.Description,
		rule.IsActive,
		triggerJSON,
		conditionsJSON,
		notificationJSON,
		rule.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("rule name %q: %w", rule.Name, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	return nil
}

// GetByID возвращает правило по ID (включая мягко удалённые — они
// нужны для разрешения исторических записей исполнения).
func (r *RuleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE id = $1`
	return scanRule(r.pool.QueryRow(ctx, query, id))
}

// GetByName возвращает неудалённое правило по имени.
func (r *RuleRepo) GetByName(ctx context.Context, name string) (*domain.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE name = $1 AND deleted_at IS NULL`
	return scanRule(r.pool.QueryRow(ctx, query, name))
}

// RuleFilter — параметры фильтрации правил.
type RuleFilter struct {
	IsActive    *bool
	TriggerType string
	Limit       int
	Offset      int
}

// List возвращает неудалённые правила с фильтрацией.
func (r *RuleRepo) List(ctx context.Context, filter RuleFilter) ([]domain.Rule, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + ruleColumns + `
		FROM rules
		WHERE deleted_at IS NULL
		  AND ($1::boolean IS NULL OR is_active = $1)
		  AND ($2::text IS NULL OR trigger ->> 'type' = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		filter.IsActive,
		nullString(filter.TriggerType),
		limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	return collectRules(rows)
}

// ListActiveByTrigger возвращает активные правила, чей триггер точно
// совпадает с (type, event) события, а source либо не задан, либо
// совпадает с source события. Пустой результат — нормальный исход.
func (r *RuleRepo) ListActiveByTrigger(ctx context.Context, eventType, eventName, source string) ([]domain.Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM rules
		WHERE deleted_at IS NULL
		  AND is_active = true
		  AND trigger ->> 'type' = $1
		  AND trigger ->> 'event' = $2
		  AND (COALESCE(trigger ->> 'source', '') = '' OR trigger ->> 'source' = $3)
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, eventType, eventName, source)
	if err != nil {
		return nil, fmt.Errorf("list rules by trigger: %w", err)
	}
	defer rows.Close()

	return collectRules(rows)
}

// Update обновляет правило.
// Возвращает ErrAlreadyExists, если новое имя занято другим правилом.
func (r *RuleRepo) Update(ctx context.Context, rule *domain.Rule) error {
	triggerJSON, conditionsJSON, notificationJSON, err := marshalRule(rule)
	if err != nil {
		return err
	}

	query := `
		UPDATE rules
		SET name = $2, description = $3, is_active = $4,
		    trigger = $5, conditions = $6, notification = $7,
		    updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.pool.Exec(ctx, query,
		rule.ID,
		rule.Name,
		rule.Description,
		rule.IsActive,
		triggerJSON,
		conditionsJSON,
		notificationJSON,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("rule name %q: %w", rule.Name, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetActive включает или выключает правило.
func (r *RuleRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `
		UPDATE rules
		SET is_active = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.pool.Exec(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("set rule active: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete выполняет мягкое удаление: правило перестаёт подбираться,
// но остаётся разрешимым для исторических записей исполнения.
func (r *RuleRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE rules
		SET is_active = false, deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("soft delete rule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementTriggerStats атомарно увеличивает счётчик срабатываний и
// обновляет время последнего срабатывания. Read-modify-write в памяти
// движка недопустим: одно правило может срабатывать одновременно для
// нескольких событий.
func (r *RuleRepo) IncrementTriggerStats(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE rules
		SET trigger_count = trigger_count + 1, last_triggered = now()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment trigger stats: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

func marshalRule(rule *domain.Rule) (trigger, conditions, notification []byte, err error) {
	trigger, err = json.Marshal(rule.Trigger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal trigger: %w", err)
	}
	conditions, err = json.Marshal(rule.Conditions)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal conditions: %w", err)
	}
	notification, err = json.Marshal(rule.Notification)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal notification: %w", err)
	}
	return trigger, conditions, notification, nil
}

func scanRule(row pgx.Row) (*domain.Rule, error) {
	var rule domain.Rule
	var triggerJSON, conditionsJSON, notificationJSON []byte

	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.Description,
		&rule.IsActive,
		&triggerJSON,
		&conditionsJSON,
		&notificationJSON,
		&rule.TriggerCount,
		&rule.LastTriggered,
		&rule.CreatedAt,
		&rule.UpdatedAt,
		&rule.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan rule: %w", err)
	}

	if err := json.Unmarshal(triggerJSON, &rule.Trigger); err != nil {
		return nil, fmt.Errorf("unmarshal trigger: %w", err)
	}
	if conditionsJSON != nil {
		if err := json.Unmarshal(conditionsJSON, &rule.Conditions); err != nil {
			return nil, fmt.Errorf("unmarshal conditions: %w", err)
		}
	}
	if err := json.Unmarshal(notificationJSON, &rule.Notification); err != nil {
		return nil, fmt.Errorf("unmarshal notification: %w", err)
	}

	return &rule, nil
}

func collectRules(rows pgx.Rows) ([]domain.Rule, error) {
	var rules []domain.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
