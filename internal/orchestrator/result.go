package orchestrator

import (
	"github.com/google/uuid"
	"github.com/shaiso/Notiflow/internal/domain"
)

// RuleOutcome — итог рассмотрения одного правила для события.
type RuleOutcome struct {
	// RuleID — рассмотренное правило.
	RuleID uuid.UUID

	// Execution — аудит-запись. Nil только для Duplicate.
	Execution *domain.Execution

	// Notification — созданное уведомление (только для SUCCESS).
	Notification *domain.Notification

	// Recorded — запись исполнения сохранена в БД.
	Recorded bool

	// Duplicate — правило уже было записано для этого события
	// (повторная обработка после requeue); оценка пропущена.
	Duplicate bool
}

// EventSummary — свёртка итогов по всем правилам события.
// Заполняется одним писателем после завершения всех горутин оценки.
type EventSummary struct {
	// RulesMatched — правил подобрано по триггеру.
	RulesMatched int

	// RulesTriggered — правил сработало (условия выполнены, уведомление создано).
	RulesTriggered int

	// NotificationsCreated — уведомлений создано и сохранено.
	NotificationsCreated int

	// Failures — правил, завершившихся FAILURE.
	Failures int

	// Duplicates — правил, пропущенных по дедупликации.
	Duplicates int
}

// foldOutcomes сворачивает итоги оценки в сводку по событию.
// Дубликаты не учитываются: их вклад уже записан при первой обработке.
func foldOutcomes(outcomes []RuleOutcome) EventSummary {
	summary := EventSummary{RulesMatched: len(outcomes)}

	for _, out := range outcomes {
		if out.Duplicate {
			summary.Duplicates++
			continue
		}
		if !out.Recorded || out.Execution == nil {
			continue
		}

		switch out.Execution.Status {
		case domain.ExecutionStatusSuccess:
			summary.RulesTriggered++
			if out.Notification != nil {
				summary.NotificationsCreated++
			}
		case domain.ExecutionStatusFailure:
			summary.Failures++
		}
	}

	return summary
}
