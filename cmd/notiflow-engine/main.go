// Notiflow Engine — обрабатывает события по правилам.
//
// Engine:
//   - Получает новые события из RabbitMQ (или polling-ом из БД)
//   - Подбирает активные правила по триггеру события
//   - Оценивает условия и рендерит шаблоны уведомлений
//   - Пишет запись исполнения для каждого рассмотренного правила
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Notiflow/internal/dispatch"
	"github.com/shaiso/Notiflow/internal/engine"
	"github.com/shaiso/Notiflow/internal/mq"
	"github.com/shaiso/Notiflow/internal/orchestrator"
	"github.com/shaiso/Notiflow/internal/repo"
	"github.com/shaiso/Notiflow/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting notiflow-engine")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	// Создаём репозитории
	eventRepo := repo.NewEventRepo(pool)
	ruleRepo := repo.NewRuleRepo(pool)
	executionRepo := repo.NewExecutionRepo(pool)
	notifRepo := repo.NewNotificationRepo(pool)

	// RabbitMQ
	var mqConn *mq.Connection
	var broker dispatch.Broker
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err = mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
		mqConn = nil
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		// Создаём топологию
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		broker = mq.NewPublisher(mqConn, logger)
	}

	dispatcher := dispatch.New(notifRepo, broker, &engine.Renderer{}, logger)

	// Создаём orchestrator. Нулевые значения настроек заменяются
	// дефолтами внутри orchestrator.New.
	orch := orchestrator.New(orchestrator.Config{
		Events:       eventRepo,
		Rules:        ruleRepo,
		Executions:   executionRepo,
		Dispatcher:   dispatcher,
		Conn:         mqConn,
		PollInterval: envDuration(logger, "ENGINE_POLL_INTERVAL"),
		BatchSize:    envInt(logger, "ENGINE_BATCH_SIZE"),
		Concurrency:  envInt(logger, "ENGINE_CONCURRENCY"),
		RuleTimeout:  envDuration(logger, "ENGINE_RULE_TIMEOUT"),
		Logger:       logger,
	})

	// Запускаем orchestrator
	if err := orch.Start(ctx); err != nil {
		logger.Error("failed to start orchestrator", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8083"
	if v := os.Getenv("ENGINE_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Останавливаем orchestrator
	orch.Stop()
	logger.Info("notiflow-engine stopped")
}

// envInt читает целочисленную настройку из окружения.
// Возвращает 0 (значение по умолчанию), если переменная не задана
// или не парсится.
func envInt(logger *slog.Logger, name string) int {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn("invalid env value, using default", "name", name, "value", v)
		return 0
	}
	return n
}

// envDuration читает длительность из окружения (формат time.ParseDuration,
// например "30s" или "5m"). Возвращает 0, если переменная не задана
// или не парсится.
func envDuration(logger *slog.Logger, name string) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.Warn("invalid env value, using default", "name", name, "value", v)
		return 0
	}
	return d
}
