// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go              — Handler с DI (репозитории, publisher, logger)
//   - routes.go               — регистрация маршрутов
//   - middleware.go           — middleware (logging, recovery)
//   - response.go             — унифицированные JSON-ответы и обработка ошибок
//   - dto.go                  — Data Transfer Objects (request/response)
//   - event_handler.go        — обработчики для /events (приём событий)
//   - rule_handler.go         — обработчики для /rules (CRUD + dry-run)
//   - execution_handler.go    — обработчики для /executions и /stats
//   - notification_handler.go — обработчики для /notifications
//
// API предоставляет REST endpoints для приёма событий, управления
// правилами и чтения аудита исполнения.
package api
