package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/Notiflow/internal/repo"
)

// Default configuration values.
const (
	defaultStaleThreshold     = 5 * time.Minute
	defaultEventRetention     = 30 * 24 * time.Hour
	defaultExecutionRetention = 90 * 24 * time.Hour

	defaultRequeueSchedule = "* * * * *"    // каждую минуту
	defaultPurgeSchedule   = "0 3 * * *"    // ежедневно в 03:00
	defaultExpireSchedule  = "*/10 * * * *" // каждые 10 минут
)

// cronParser — стандартный 5-польный формат (minute hour dom month dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule проверяет валидность cron-выражения.
func ValidateSchedule(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// Janitor — фоновое обслуживание хранилища.
type Janitor struct {
	events        *repo.EventRepo
	executions    *repo.ExecutionRepo
	notifications *repo.NotificationRepo

	staleThreshold     time.Duration
	eventRetention     time.Duration
	executionRetention time.Duration

	cron   *cron.Cron
	logger *slog.Logger
}

// Config — конфигурация Janitor.
type Config struct {
	EventRepo        *repo.EventRepo
	ExecutionRepo    *repo.ExecutionRepo
	NotificationRepo *repo.NotificationRepo

	// StaleThreshold — сколько событие может висеть в PROCESSING,
	// прежде чем считается зависшим (default: 5m).
	StaleThreshold time.Duration

	// EventRetention — срок хранения обработанных событий (default: 30d).
	EventRetention time.Duration

	// ExecutionRetention — срок хранения записей исполнения (default: 90d).
	ExecutionRetention time.Duration

	// Расписания заданий (cron, 5 полей). Пустое значение — default.
	RequeueSchedule string
	PurgeSchedule   string
	ExpireSchedule  string

	Logger *slog.Logger
}

// New создаёт Janitor и регистрирует задания в cron.
func New(cfg Config) (*Janitor, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	j := &Janitor{
		events:             cfg.EventRepo,
		executions:         cfg.ExecutionRepo,
		notifications:      cfg.NotificationRepo,
		staleThreshold:     cfg.StaleThreshold,
		eventRetention:     cfg.EventRetention,
		executionRetention: cfg.ExecutionRetention,
		cron:               cron.New(cron.WithParser(cronParser)),
		logger:             logger,
	}

	if j.staleThreshold <= 0 {
		j.staleThreshold = defaultStaleThreshold
	}
	if j.eventRetention <= 0 {
		j.eventRetention = defaultEventRetention
	}
	if j.executionRetention <= 0 {
		j.executionRetention = defaultExecutionRetention
	}

	jobs := []struct {
		name     string
		schedule string
		fallback string
		run      func(context.Context)
	}{
		{"requeue_stale", cfg.RequeueSchedule, defaultRequeueSchedule, j.RequeueStale},
		{"purge_old", cfg.PurgeSchedule, defaultPurgeSchedule, j.PurgeOld},
		{"expire_notifications", cfg.ExpireSchedule, defaultExpireSchedule, j.ExpireNotifications},
	}

	for _, job := range jobs {
		expr := job.schedule
		if expr == "" {
			expr = job.fallback
		}
		if err := ValidateSchedule(expr); err != nil {
			return nil, fmt.Errorf("job %s: %w", job.name, err)
		}

		run := job.run
		name := job.name
		if _, err := j.cron.AddFunc(expr, func() {
			logger.Debug("janitor job started", "job", name)
			run(context.Background())
		}); err != nil {
			return nil, fmt.Errorf("register job %s: %w", job.name, err)
		}
	}

	return j, nil
}

// Start запускает планировщик заданий.
func (j *Janitor) Start() {
	j.logger.Info("starting janitor",
		"stale_threshold", j.staleThreshold,
		"event_retention", j.eventRetention,
		"execution_retention", j.executionRetention,
	)
	j.cron.Start()
}

// Stop останавливает планировщик, дожидаясь выполняющихся заданий.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
	j.logger.Info("janitor stopped")
}

// RequeueStale возвращает зависшие PROCESSING события в PENDING.
// Дедупликация записей исполнения делает повторную обработку безопасной.
func (j *Janitor) RequeueStale(ctx context.Context) {
	n, err := j.events.RequeueStale(ctx, j.staleThreshold)
	if err != nil {
		j.logger.Error("failed to requeue stale events", "error", err)
		return
	}
	if n > 0 {
		j.logger.Info("requeued stale events", "count", n)
	}
}

// PurgeOld удаляет обработанные события и записи исполнения,
// вышедшие за срок хранения.
func (j *Janitor) PurgeOld(ctx context.Context) {
	now := time.Now()

	if n, err := j.executions.PurgeBefore(ctx, now.Add(-j.executionRetention)); err != nil {
		j.logger.Error("failed to purge executions", "error", err)
	} else if n > 0 {
		j.logger.Info("purged old executions", "count", n)
	}

	if n, err := j.events.PurgeProcessed(ctx, now.Add(-j.eventRetention)); err != nil {
		j.logger.Error("failed to purge events", "error", err)
	} else if n > 0 {
		j.logger.Info("purged old events", "count", n)
	}
}

// ExpireNotifications удаляет истёкшие непостоянные уведомления.
func (j *Janitor) ExpireNotifications(ctx context.Context) {
	n, err := j.notifications.PurgeExpired(ctx, time.Now())
	if err != nil {
		j.logger.Error("failed to purge expired notifications", "error", err)
		return
	}
	if n > 0 {
		j.logger.Info("purged expired notifications", "count", n)
	}
}
