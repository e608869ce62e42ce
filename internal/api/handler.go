package api

import (
	"log/slog"

	"github.com/shaiso/Notiflow/internal/dispatch"
	"github.com/shaiso/Notiflow/internal/mq"
	"github.com/shaiso/Notiflow/internal/repo"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	eventRepo     *repo.EventRepo
	ruleRepo      *repo.RuleRepo
	executionRepo *repo.ExecutionRepo
	notifRepo     *repo.NotificationRepo
	dispatcher    *dispatch.Dispatcher
	publisher     *mq.Publisher
	logger        *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	EventRepo     *repo.EventRepo
	RuleRepo      *repo.RuleRepo
	ExecutionRepo *repo.ExecutionRepo
	NotifRepo     *repo.NotificationRepo
	Dispatcher    *dispatch.Dispatcher // для dry-run проверки правил
	Publisher     *mq.Publisher
	Logger        *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		eventRepo:     cfg.EventRepo,
		ruleRepo:      cfg.RuleRepo,
		executionRepo: cfg.ExecutionRepo,
		notifRepo:     cfg.NotifRepo,
		dispatcher:    cfg.Dispatcher,
		publisher:     cfg.Publisher,
		logger:        cfg.Logger,
	}
}
