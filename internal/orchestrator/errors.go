package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrEventNotFound — событие не найдено в БД.
	ErrEventNotFound = errors.New("event not found")

	// ErrEventNotPending — событие не в статусе PENDING
	// (уже захвачено другим обработчиком или завершено).
	ErrEventNotPending = errors.New("event is not in PENDING status")

	// ErrEventAlreadyActive — событие уже обрабатывается этим процессом.
	ErrEventAlreadyActive = errors.New("event already being processed")

	// ErrOrchestratorStopped — оркестратор остановлен.
	ErrOrchestratorStopped = errors.New("orchestrator stopped")
)
