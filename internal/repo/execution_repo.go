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

// ExecutionRepo — репозиторий записей исполнения правил.
//
// Таблица append-only: запись создаётся ровно один раз на пару
// (событие, правило), уникальный индекс по этой паре служит барьером
// дедупликации при повторной обработке события.
type ExecutionRepo struct {
	pool *pgxpool.Pool
}

// NewExecutionRepo создаёт новый ExecutionRepo.
func NewExecutionRepo(pool *pgxpool.Pool) *ExecutionRepo {
	return &ExecutionRepo{pool: pool}
}

const executionColumns = `
	id, event_id, rule_id, notification_id, status, result,
	event_data, condition_results, template_variables, render_warnings,
	error_message, error_details, execution_time_ms, executed_at
`

// Create сохраняет запись исполнения.
// Возвращает ErrAlreadyExists, если для пары (событие, правило) запись
// уже есть — событие было обработано повторно.
func (r *ExecutionRepo) Create(ctx context.Context, exec *domain.Execution) error {
	eventData, err := json.Marshal(exec.EventData)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	conditionResults, err := json.Marshal(exec.ConditionResults)
	if err != nil {
		return fmt.Errorf("marshal condition results: %w", err)
	}
	templateVars, err := json.Marshal(exec.TemplateVariables)
	if err != nil {
		return fmt.Errorf("marshal template variables: %w", err)
	}
	renderWarnings, err := json.Marshal(exec.RenderWarnings)
	if err != nil {
		return fmt.Errorf("marshal render warnings: %w", err)
	}
	errorDetails, err := marshalErrorDetails(exec.ErrorDetails)
	if err != nil {
		return fmt.Errorf("marshal error details: %w", err)
	}

	query := `
		INSERT INTO rule_executions (id, event_id, rule_id, notification_id, status, result,
		                             event_data, condition_results, template_variables, render_warnings,
		                             error_message, error_details, execution_time_ms, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = r.pool.Exec(ctx, query,
		exec.ID,
		exec.EventID,
		exec.RuleID,
		exec.NotificationID,
		exec.Status,
		exec.Result,
		eventData,
		conditionResults,
		templateVars,
		renderWarnings,
		nullString(exec.ErrorMessage),
		errorDetails,
		exec.ExecutionTimeMs,
		exec.ExecutedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("execution for event %s rule %s: %w", exec.EventID, exec.RuleID, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// GetByID возвращает запись исполнения по ID.
func (r *ExecutionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM rule_executions WHERE id = $1`
	return scanExecution(r.pool.QueryRow(ctx, query, id))
}

// ListByEventID возвращает все записи исполнения для события.
func (r *ExecutionRepo) ListByEventID(ctx context.Context, eventID uuid.UUID) ([]domain.Execution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM rule_executions
		WHERE event_id = $1
		ORDER BY executed_at ASC
	`
	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("list executions by event: %w", err)
	}
	defer rows.Close()

	return collectExecutions(rows)
}

// ListRuleIDsByEventID возвращает ID правил, для которых уже есть
// запись исполнения по событию. Оркестратор пропускает такие правила
// при повторной обработке.
func (r *ExecutionRepo) ListRuleIDsByEventID(ctx context.Context, eventID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	query := `SELECT rule_id FROM rule_executions WHERE event_id = $1`
	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("list executed rule ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan rule id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// ExecutionFilter — параметры фильтрации записей исполнения.
type ExecutionFilter struct {
	RuleID *uuid.UUID
	Status domain.ExecutionStatus
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// List возвращает записи исполнения с фильтрацией, новые первыми.
func (r *ExecutionRepo) List(ctx context.Context, filter ExecutionFilter) ([]domain.Execution, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + executionColumns + `
		FROM rule_executions
		WHERE ($1::uuid IS NULL OR rule_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		  AND ($3::timestamptz IS NULL OR executed_at >= $3)
		  AND ($4::timestamptz IS NULL OR executed_at <= $4)
		ORDER BY executed_at DESC
		LIMIT $5 OFFSET $6
	`
	rows, err := r.pool.Query(ctx, query,
		filter.RuleID,
		nullString(string(filter.Status)),
		filter.From,
		filter.To,
		limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	return collectExecutions(rows)
}

// ExecutionStats — агрегированная статистика исполнения.
type ExecutionStats struct {
	Total     int64
	ByStatus  map[domain.ExecutionStatus]int64
	ByResult  map[domain.ExecutionResult]int64
	AvgTimeMs float64
}

// Stats возвращает агрегированную статистику за период.
func (r *ExecutionRepo) Stats(ctx context.Context, from, to *time.Time) (*ExecutionStats, error) {
	query := `
		SELECT status, result, count(*), avg(execution_time_ms)
		FROM rule_executions
		WHERE ($1::timestamptz IS NULL OR executed_at >= $1)
		  AND ($2::timestamptz IS NULL OR executed_at <= $2)
		GROUP BY status, result
	`
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("execution stats: %w", err)
	}
	defer rows.Close()

	stats := &ExecutionStats{
		ByStatus: make(map[domain.ExecutionStatus]int64),
		ByResult: make(map[domain.ExecutionResult]int64),
	}
	var weightedSum float64
	for rows.Next() {
		var status domain.ExecutionStatus
		var result domain.ExecutionResult
		var count int64
		var avgMs *float64
		if err := rows.Scan(&status, &result, &count, &avgMs); err != nil {
			return nil, fmt.Errorf("scan execution stats: %w", err)
		}
		stats.Total += count
		stats.ByStatus[status] += count
		stats.ByResult[result] += count
		if avgMs != nil {
			weightedSum += *avgMs * float64(count)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if stats.Total > 0 {
		stats.AvgTimeMs = weightedSum / float64(stats.Total)
	}
	return stats, nil
}

// PurgeBefore удаляет записи исполнения старше before.
func (r *ExecutionRepo) PurgeBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM rule_executions WHERE executed_at < $1`
	result, err := r.pool.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("purge executions: %w", err)
	}
	return result.RowsAffected(), nil
}

// --- Helpers ---

func scanExecution(row pgx.Row) (*domain.Execution, error) {
	var exec domain.Execution
	var eventData, conditionResults, templateVars, renderWarnings, errorDetails []byte
	var errorMessage *string

	err := row.Scan(
		&exec.ID,
		&exec.EventID,
		&exec.RuleID,
		&exec.NotificationID,
		&exec.Status,
		&exec.Result,
		&eventData,
		&conditionResults,
		&templateVars,
		&renderWarnings,
		&errorMessage,
		&errorDetails,
		&exec.ExecutionTimeMs,
		&exec.ExecutedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan execution: %w", err)
	}

	if eventData != nil {
		if err := json.Unmarshal(eventData, &exec.EventData); err != nil {
			return nil, fmt.Errorf("unmarshal event data: %w", err)
		}
	}
	if conditionResults != nil {
		if err := json.Unmarshal(conditionResults, &exec.ConditionResults); err != nil {
			return nil, fmt.Errorf("unmarshal condition results: %w", err)
		}
	}
	if templateVars != nil {
		if err := json.Unmarshal(templateVars, &exec.TemplateVariables); err != nil {
			return nil, fmt.Errorf("unmarshal template variables: %w", err)
		}
	}
	if renderWarnings != nil {
		if err := json.Unmarshal(renderWarnings, &exec.RenderWarnings); err != nil {
			return nil, fmt.Errorf("unmarshal render warnings: %w", err)
		}
	}
	if errorDetails != nil {
		if err := json.Unmarshal(errorDetails, &exec.ErrorDetails); err != nil {
			return nil, fmt.Errorf("unmarshal error details: %w", err)
		}
	}
	exec.ErrorMessage = derefString(errorMessage)

	return &exec, nil
}

// marshalErrorDetails сериализует детали ошибки для jsonb колонки.
// Пустые детали кодируются как NULL, а не как '{}'.
func marshalErrorDetails(details map[string]any) ([]byte, error) {
	if len(details) == 0 {
		return nil, nil
	}
	return json.Marshal(details)
}

func collectExecutions(rows pgx.Rows) ([]domain.Execution, error) {
	var execs []domain.Execution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, *exec)
	}
	return execs, rows.Err()
}
