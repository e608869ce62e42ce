package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики движка. Регистрируются в default registry,
// экспорт — через promhttp на /metrics каждого сервиса.
var (
	// EventsProcessed — обработанные события по итоговому статусу.
	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notiflow_events_processed_total",
		Help: "Events finalized by the engine, by terminal status",
	}, []string{"status"})

	// RuleExecutions — записи исполнения по статусу и коду результата.
	RuleExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notiflow_rule_executions_total",
		Help: "Rule executions recorded, by status and result code",
	}, []string{"status", "result"})

	// NotificationsCreated — созданные уведомления.
	NotificationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notiflow_notifications_created_total",
		Help: "Notifications created by triggered rules",
	})

	// EventProcessingSeconds — длительность полной обработки события.
	EventProcessingSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "notiflow_event_processing_seconds",
		Help:    "End-to-end event processing duration",
		Buckets: prometheus.DefBuckets,
	})

	// RuleEvaluationSeconds — длительность оценки одного правила.
	RuleEvaluationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "notiflow_rule_evaluation_seconds",
		Help:    "Per-rule evaluation duration, from condition check to audit record",
		Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 30},
	})
)
