// Package orchestrator управляет обработкой событий.
//
// Orchestrator отвечает за:
//   - Получение новых событий из очереди RabbitMQ
//   - Захват события (PENDING → PROCESSING)
//   - Подбор активных правил по триггеру события
//   - Параллельную оценку правил с изоляцией ошибок
//   - Запись аудита исполнения для каждого рассмотренного правила
//   - Финализацию события (PROCESSED/FAILED)
//
// Orchestrator — это "мозг" системы, который координирует обработку.
package orchestrator
