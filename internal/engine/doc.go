// Package engine содержит чистое ядро оценки правил.
//
// Включает:
//   - path.go       — полное (total) разрешение dot-path внутри payload
//   - conditions.go — оценка списка условий с трассировкой
//   - template.go   — рендеринг шаблонов {{variable}} с политикой деградации
//
// Все функции пакета чистые: не обращаются к БД, сети и часам (кроме
// формирования предупреждений), поэтому тестируются без инфраструктуры.
// Оркестратор комбинирует их с репозиториями и диспетчером.
package engine
