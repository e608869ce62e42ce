package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Notiflow/internal/dispatch"
	"github.com/shaiso/Notiflow/internal/domain"
	"github.com/shaiso/Notiflow/internal/engine"
	"github.com/shaiso/Notiflow/internal/repo"
	"github.com/shaiso/Notiflow/internal/telemetry"
)

// ProcessEvent выполняет полный цикл обработки одного события:
// захват, подбор правил, параллельная оценка, финализация.
//
// Повторный вызов для уже обработанного события безопасен: захват
// условный, а уже записанные правила отсеиваются дедупликацией.
func (o *Orchestrator) ProcessEvent(ctx context.Context, eventID uuid.UUID) error {
	if o.IsStopped() {
		return ErrOrchestratorStopped
	}

	if err := o.addActiveEvent(eventID); err != nil {
		return err
	}
	defer o.removeActiveEvent(eventID)

	start := time.Now()

	// 1. Захватываем событие (PENDING → PROCESSING)
	event, err := o.events.ClaimPending(ctx, eventID)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
		case errors.Is(err, repo.ErrInvalidState):
			return ErrEventNotPending
		default:
			return fmt.Errorf("claim event: %w", err)
		}
	}

	logger := telemetry.WithEventID(o.logger, event.ID.String())
	logger.Info("event claimed", "key", event.Key())

	// 2. Подбираем активные правила по триггеру
	rules, err := o.rules.ListActiveByTrigger(ctx, event.Type, event.Event, event.Source)
	if err != nil {
		return o.failEvent(ctx, event, start, fmt.Sprintf("list rules by trigger: %v", err))
	}

	// 3. Отсеиваем правила, уже записанные для этого события
	// (повторная обработка после requeue или рестарта)
	executed, err := o.executions.ListRuleIDsByEventID(ctx, event.ID)
	if err != nil {
		return o.failEvent(ctx, event, start, fmt.Sprintf("list executed rules: %v", err))
	}

	// 4. Оцениваем правила параллельно. Горутины никогда не возвращают
	// ошибку: любой исход оценки — это аудит-запись, а не провал события.
	outcomes := make([]RuleOutcome, len(rules))

	g := new(errgroup.Group)
	g.SetLimit(o.concurrency)

	for i := range rules {
		rule := &rules[i]

		if _, done := executed[rule.ID]; done {
			outcomes[i] = RuleOutcome{RuleID: rule.ID, Duplicate: true}
			continue
		}

		g.Go(func() error {
			outcomes[i] = o.executeRule(ctx, event, rule)
			return nil
		})
	}
	g.Wait()

	// 5. Сворачиваем итоги одним писателем и финализируем событие
	summary := foldOutcomes(outcomes)
	event.MarkProcessed(summary.RulesTriggered, summary.NotificationsCreated)

	if err := o.events.Finalize(ctx, event); err != nil {
		return fmt.Errorf("finalize event: %w", err)
	}

	telemetry.EventsProcessed.WithLabelValues(string(event.Status)).Inc()
	telemetry.EventProcessingSeconds.Observe(time.Since(start).Seconds())

	logger.Info("event processed",
		"rules_matched", summary.RulesMatched,
		"rules_triggered", summary.RulesTriggered,
		"notifications_created", summary.NotificationsCreated,
		"failures", summary.Failures,
		"duplicates", summary.Duplicates,
		"duration", time.Since(start),
	)

	return nil
}

// executeRule оценивает одно правило для события и пишет аудит-запись.
// Любая ошибка замыкается внутри: возвращаемый RuleOutcome описывает
// исход, из которого потом складывается сводка события.
func (o *Orchestrator) executeRule(ctx context.Context, event *domain.Event, rule *domain.Rule) RuleOutcome {
	start := time.Now()
	logger := telemetry.WithRuleID(telemetry.WithEventID(o.logger, event.ID.String()), rule.ID.String())

	ctx, cancel := context.WithTimeout(ctx, o.ruleTimeout)
	defer cancel()

	var exec *domain.Execution
	var notification *domain.Notification

	switch {
	case !rule.CanExecute():
		// Правило деактивировано между подбором и оценкой
		exec = domain.NewSkippedExecution(event.ID, rule.ID, domain.ResultRuleInactive,
			event.Payload, nil, time.Since(start))

	default:
		passed, trace := engine.EvaluateConditions(rule.Conditions, event.Payload)
		if !passed {
			exec = domain.NewSkippedExecution(event.ID, rule.ID, domain.ResultConditionNotMet,
				event.Payload, trace, time.Since(start))
			break
		}

		vars := dispatch.BuildVariables(event)
		dispatch.AddRuleContext(vars, rule)
		if err := o.resolver.Resolve(ctx, event, vars); err != nil {
			// Обогащение best-effort: недостающие переменные останутся
			// неразрешёнными и попадут в render warnings
			logger.Warn("variable resolver failed", "error", err)
		}

		n, render, err := o.dispatcher.Dispatch(ctx, rule, event, vars)
		if err != nil {
			result := classifyDispatchError(ctx, err)
			exec = domain.NewFailedExecution(event.ID, rule.ID, result,
				event.Payload, trace, err.Error(), nil, time.Since(start))
			logger.Warn("rule execution failed", "result", result, "error", err)
			break
		}

		notification = n
		exec = domain.NewSuccessExecution(event.ID, rule.ID, n.ID,
			event.Payload, trace, vars, render.Warnings, time.Since(start))

		// Учёт срабатывания — атомарный инкремент в БД
		if err := o.rules.IncrementTriggerStats(ctx, rule.ID); err != nil {
			logger.Warn("failed to increment trigger stats", "error", err)
		}
	}

	telemetry.RuleEvaluationSeconds.Observe(time.Since(start).Seconds())

	// Аудит пишется даже если таймаут правила уже истёк
	return o.record(context.WithoutCancel(ctx), logger, exec, notification)
}

// record сохраняет аудит-запись и собирает RuleOutcome.
func (o *Orchestrator) record(ctx context.Context, logger *slog.Logger, exec *domain.Execution, notification *domain.Notification) RuleOutcome {
	outcome := RuleOutcome{
		RuleID:       exec.RuleID,
		Execution:    exec,
		Notification: notification,
	}

	if err := o.executions.Create(ctx, exec); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			// Гонка с другим обработчиком: его запись первична
			outcome.Duplicate = true
			return outcome
		}
		logger.Error("failed to record execution", "error", err)
		return outcome
	}

	outcome.Recorded = true
	telemetry.RuleExecutions.WithLabelValues(string(exec.Status), string(exec.Result)).Inc()
	if notification != nil {
		telemetry.NotificationsCreated.Inc()
	}

	return outcome
}

// failEvent финализирует событие как FAILED после системной ошибки
// пайплайна. Ошибка персистирована, поэтому retry через очередь не нужен.
func (o *Orchestrator) failEvent(ctx context.Context, event *domain.Event, start time.Time, errMsg string) error {
	event.MarkFailed(errMsg)

	if err := o.events.Finalize(ctx, event); err != nil {
		return fmt.Errorf("finalize failed event: %w", err)
	}

	telemetry.EventsProcessed.WithLabelValues(string(event.Status)).Inc()
	telemetry.EventProcessingSeconds.Observe(time.Since(start).Seconds())

	o.logger.Warn("event failed",
		"event_id", event.ID,
		"error", errMsg,
	)

	return nil
}

// classifyDispatchError сопоставляет ошибку диспетчеризации коду результата.
func classifyDispatchError(ctx context.Context, err error) domain.ExecutionResult {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
		return domain.ResultTimeout
	case errors.Is(err, engine.ErrTemplateRender):
		return domain.ResultRenderError
	default:
		return domain.ResultDispatchError
	}
}
