package dispatch

import "github.com/shaiso/Notiflow/internal/domain"

// BuildVariables строит набор переменных шаблона из события.
//
// В набор входят все поля payload верхнего уровня (вложенные значения
// доступны через точечные пути) плюс метаданные события. Метаданные
// добавляются после payload и имеют приоритет при совпадении имён.
func BuildVariables(event *domain.Event) map[string]any {
	vars := make(map[string]any, len(event.Payload)+8)

	for k, v := range event.Payload {
		vars[k] = v
	}

	vars["event_id"] = event.ID.String()
	vars["event_type"] = event.Type
	vars["event_name"] = event.Event
	vars["event_source"] = event.Source
	vars["entity_type"] = event.EntityType
	vars["entity_id"] = event.EntityID
	vars["user_id"] = event.UserID
	vars["occurred_at"] = event.OccurredAt.Format("2006-01-02 15:04:05")
	vars["timestamp"] = vars["occurred_at"]

	addEntityURL(vars, event)

	return vars
}

// AddRuleContext добавляет переменные сработавшего правила.
// Вызывается после подбора, когда правило уже известно.
func AddRuleContext(vars map[string]any, rule *domain.Rule) {
	vars["rule_id"] = rule.ID.String()
	vars["rule_name"] = rule.Name
}

// addEntityURL добавляет ссылку на связанную сущность для шаблонов
// action URL. Маршрут зависит от домена события.
func addEntityURL(vars map[string]any, event *domain.Event) {
	if event.EntityID == "" {
		return
	}

	switch event.Type {
	case "stock":
		vars["stock_url"] = "/inventory/materials/" + event.EntityID
	case "production":
		vars["machine_url"] = "/production/machines/" + event.EntityID
	case "project":
		vars["project_url"] = "/projects/" + event.EntityID
	case "account":
		vars["user_profile_url"] = "/users/" + event.EntityID
	}
}
