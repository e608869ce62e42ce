// Package janitor реализует фоновое обслуживание хранилища.
//
// Janitor по расписанию:
//   - возвращает в очередь события, зависшие в PROCESSING
//     (обработчик упал между захватом и финализацией)
//   - удаляет обработанные события старше срока хранения
//   - удаляет старые записи исполнения
//   - удаляет истёкшие непостоянные уведомления
//
// Структура:
//   - janitor.go — задания и их регистрация в cron
//
// Leader Election:
//
// Janitor не реализует leader election самостоятельно.
// Это делается в main.go через pg_try_advisory_lock.
// Janitor запускается только лидером.
package janitor
