package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Notiflow/internal/domain"
	"github.com/shaiso/Notiflow/internal/engine"
	"github.com/shaiso/Notiflow/internal/enrich"
	"github.com/shaiso/Notiflow/internal/mq"
)

// Default configuration values.
const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 100
	defaultConcurrency  = 8
	defaultRuleTimeout  = 30 * time.Second
)

// eventStore — операции жизненного цикла события.
type eventStore interface {
	ClaimPending(ctx context.Context, id uuid.UUID) (*domain.Event, error)
	Finalize(ctx context.Context, event *domain.Event) error
	ListPending(ctx context.Context, limit int) ([]domain.Event, error)
}

// ruleSource — подбор правил и учёт срабатываний.
type ruleSource interface {
	ListActiveByTrigger(ctx context.Context, eventType, eventName, source string) ([]domain.Rule, error)
	IncrementTriggerStats(ctx context.Context, id uuid.UUID) error
}

// executionLog — append-only аудит исполнения правил.
type executionLog interface {
	Create(ctx context.Context, exec *domain.Execution) error
	ListRuleIDsByEventID(ctx context.Context, eventID uuid.UUID) (map[uuid.UUID]struct{}, error)
}

// notifier — создание уведомления по сработавшему правилу.
type notifier interface {
	Dispatch(ctx context.Context, rule *domain.Rule, event *domain.Event, vars map[string]any) (*domain.Notification, *engine.RenderResult, error)
}

// Orchestrator управляет обработкой событий.
//
// Orchestrator — центральный компонент системы, который:
//   - Получает новые события из очереди RabbitMQ (event-driven)
//   - Периодически проверяет pending события в БД (polling fallback)
//   - Захватывает событие условным переходом PENDING → PROCESSING
//   - Подбирает активные правила по триггеру
//   - Оценивает правила параллельно, с таймаутом и изоляцией ошибок
//   - Пишет аудит-запись на каждое рассмотренное правило
//   - Финализирует событие (PROCESSED/FAILED)
type Orchestrator struct {
	events     eventStore
	rules      ruleSource
	executions executionLog
	dispatcher notifier
	resolver   enrich.Resolver

	// MQ
	conn *mq.Connection

	// Active events — события в обработке этим процессом (dedupe
	// между consumer и poll-циклом).
	activeEvents map[uuid.UUID]struct{}
	mu           sync.RWMutex

	// Consumers
	eventConsumer *mq.Consumer

	// Configuration
	pollInterval time.Duration
	batchSize    int
	concurrency  int
	ruleTimeout  time.Duration

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Storage
	Events     eventStore
	Rules      ruleSource
	Executions executionLog

	// Dispatch
	Dispatcher notifier
	Resolver   enrich.Resolver // nil → enrich.Noop

	// MQ (nil → polling-only режим)
	Conn *mq.Connection

	// Polling configuration
	PollInterval time.Duration // интервал polling (default: 10s)
	BatchSize    int           // количество событий за один poll (default: 100)

	// Evaluation configuration
	Concurrency int           // параллельных правил на событие (default: 8)
	RuleTimeout time.Duration // таймаут оценки одного правила (default: 30s)

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	ruleTimeout := cfg.RuleTimeout
	if ruleTimeout <= 0 {
		ruleTimeout = defaultRuleTimeout
	}

	resolver := cfg.Resolver
	if resolver == nil {
		resolver = enrich.Noop{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		events:       cfg.Events,
		rules:        cfg.Rules,
		executions:   cfg.Executions,
		dispatcher:   cfg.Dispatcher,
		resolver:     resolver,
		conn:         cfg.Conn,
		activeEvents: make(map[uuid.UUID]struct{}),
		pollInterval: pollInterval,
		batchSize:    batchSize,
		concurrency:  concurrency,
		ruleTimeout:  ruleTimeout,
		logger:       logger,
	}
}

// Start запускает Orchestrator.
//
// Запускает:
//   - Consumer для events.pending (если есть соединение с MQ)
//   - Polling горутину для fallback
func (o *Orchestrator) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	o.cancelFunc = cancel

	o.logger.Info("starting orchestrator",
		"poll_interval", o.pollInterval,
		"batch_size", o.batchSize,
		"concurrency", o.concurrency,
		"rule_timeout", o.ruleTimeout,
	)

	if o.conn != nil {
		o.eventConsumer = mq.NewConsumer(o.conn, o.logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueEventsPending),
			Handler:  o.handleEventPending,
			Prefetch: 10,
		})

		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			if err := o.eventConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				o.logger.Error("event consumer error", "error", err)
			}
		}()
	} else {
		o.logger.Warn("no MQ connection, running in polling-only mode")
	}

	// Запускаем polling
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.pollLoop(ctx)
	}()

	o.logger.Info("orchestrator started")
	return nil
}

// Stop останавливает Orchestrator.
func (o *Orchestrator) Stop() {
	o.stoppedMu.Lock()
	o.stopped = true
	o.stoppedMu.Unlock()

	o.logger.Info("stopping orchestrator...")

	if o.cancelFunc != nil {
		o.cancelFunc()
	}

	if o.eventConsumer != nil {
		o.eventConsumer.Stop()
	}

	// Ждём завершения горутин
	o.wg.Wait()

	o.logger.Info("orchestrator stopped",
		"active_events", len(o.activeEvents),
	)
}

// IsStopped проверяет, остановлен ли Orchestrator.
func (o *Orchestrator) IsStopped() bool {
	o.stoppedMu.RLock()
	defer o.stoppedMu.RUnlock()
	return o.stopped
}

// pollLoop — цикл polling для fallback.
func (o *Orchestrator) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу при старте (подхватываем события, созданные пока были выключены)
	o.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.poll(ctx)
		}
	}
}

// poll выполняет один цикл polling.
func (o *Orchestrator) poll(ctx context.Context) {
	events, err := o.events.ListPending(ctx, o.batchSize)
	if err != nil {
		o.logger.Error("failed to list pending events", "error", err)
		return
	}

	if len(events) == 0 {
		return
	}

	o.logger.Debug("poll found pending events", "count", len(events))

	for i := range events {
		event := &events[i]

		// Проверяем, не обрабатывается ли уже
		if o.isEventActive(event.ID) {
			continue
		}

		if err := o.ProcessEvent(ctx, event.ID); err != nil {
			if errors.Is(err, ErrEventNotPending) || errors.Is(err, ErrEventAlreadyActive) {
				continue
			}
			o.logger.Error("failed to process event from poll",
				"event_id", event.ID,
				"error", err,
			)
		}
	}
}

// isEventActive проверяет, находится ли событие в обработке.
func (o *Orchestrator) isEventActive(eventID uuid.UUID) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, exists := o.activeEvents[eventID]
	return exists
}

// addActiveEvent добавляет событие в активные.
func (o *Orchestrator) addActiveEvent(eventID uuid.UUID) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.activeEvents[eventID]; exists {
		return ErrEventAlreadyActive
	}

	o.activeEvents[eventID] = struct{}{}
	return nil
}

// removeActiveEvent удаляет событие из активных.
func (o *Orchestrator) removeActiveEvent(eventID uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.activeEvents, eventID)
}

// ActiveEventsCount возвращает количество событий в обработке.
func (o *Orchestrator) ActiveEventsCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.activeEvents)
}
