// Notiflow Janitor — фоновое обслуживание хранилища.
//
// Janitor:
//   - Возвращает зависшие PROCESSING события в очередь
//   - Удаляет обработанные события и старые записи исполнения
//   - Удаляет протухшие непостоянные уведомления
//
// Из нескольких экземпляров работает только лидер: лидерство
// удерживается через pg advisory lock.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Notiflow/internal/janitor"
	"github.com/shaiso/Notiflow/internal/repo"
	"github.com/shaiso/Notiflow/internal/telemetry"
)

const janitorLockKey int64 = 737373

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting notiflow-janitor")

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

	j, err := janitor.New(janitor.Config{
		EventRepo:        repo.NewEventRepo(pool),
		ExecutionRepo:    repo.NewExecutionRepo(pool),
		NotificationRepo: repo.NewNotificationRepo(pool),
		RequeueSchedule:  os.Getenv("JANITOR_REQUEUE_SCHEDULE"),
		PurgeSchedule:    os.Getenv("JANITOR_PURGE_SCHEDULE"),
		ExpireSchedule:   os.Getenv("JANITOR_EXPIRE_SCHEDULE"),
		Logger:           logger,
	})
	if err != nil {
		logger.Error("failed to create janitor", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// leader loop: cron крутится только у держателя advisory lock
	go func() {
		tk := time.NewTicker(1 * time.Second)
		defer tk.Stop()

		var hasLock bool
		var running bool
		defer func() {
			if running {
				j.Stop()
			}
			if hasLock {
				_, _ = pool.Exec(context.Background(), "select pg_advisory_unlock($1)", janitorLockKey)
			}
		}()

		for {
			select {
			case <-tk.C:
				// пытаемся стать лидером
				if !hasLock {
					var ok bool
					if err := pool.QueryRow(ctx, "select pg_try_advisory_lock($1)", janitorLockKey).Scan(&ok); err != nil {
						logger.Error("lock error", "error", err)
						continue
					}
					hasLock = ok
				}

				if hasLock && !running {
					logger.Info("acquired leadership, starting jobs")
					j.Start()
					running = true
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	// serve
	port := ":8084"
	if v := os.Getenv("JANITOR_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("notiflow-janitor stopped")
}
