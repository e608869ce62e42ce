// Package cli реализует инструмент командной строки Notiflow.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Notiflow API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
// CLI используется для управления правилами, отправки событий
// и чтения аудита исполнения.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Notiflow API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	rules, err := client.ListRules(cli.ListRulesOpts{})
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: notiflow rule list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - rule: list, create, show, update, delete, enable, disable, test
//   - event: send, list, show, executions, reprocess
//   - execution: list, show
//   - notification: list, show
//   - stats
//
// Каждая группа создаётся через фабричную функцию (NewRuleCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
