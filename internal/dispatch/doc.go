// Package dispatch создаёт уведомления по сработавшим правилам.
//
// Включает:
//   - dispatcher.go — сборка уведомления из шаблонов правила и данных события
//   - variables.go  — построение переменных шаблона из события
//
// Dispatcher выполняет терминальный шаг обработки правила:
// рендерит шаблоны, сохраняет уведомление и публикует факт его
// создания для сервисов доставки.
package dispatch
