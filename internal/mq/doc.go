// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - event.pending          — новое событие ожидает обработки
//   - notification.created   — создано уведомление (для сервисов доставки)
//
// Exchanges:
//   - notiflow.events         — события домена
//   - notiflow.notifications  — созданные уведомления
//   - notiflow.dlq            — dead letter queue
package mq
