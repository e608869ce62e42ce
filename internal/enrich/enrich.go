// Package enrich дополняет переменные шаблона внешними данными
// (справочники, профили пользователей) перед рендерингом уведомления.
package enrich

import (
	"context"

	"github.com/shaiso/Notiflow/internal/domain"
)

// Resolver дополняет набор переменных шаблона для события.
// Реализация может ходить во внешние сервисы; ошибка резолвера
// не прерывает обработку правила, недостающие переменные просто
// останутся неразрешёнными.
type Resolver interface {
	Resolve(ctx context.Context, event *domain.Event, vars map[string]any) error
}

// Func — адаптер функции к интерфейсу Resolver.
type Func func(ctx context.Context, event *domain.Event, vars map[string]any) error

func (f Func) Resolve(ctx context.Context, event *domain.Event, vars map[string]any) error {
	return f(ctx, event, vars)
}

// Noop — резолвер, который ничего не добавляет.
type Noop struct{}

func (Noop) Resolve(context.Context, *domain.Event, map[string]any) error { return nil }

// Static добавляет фиксированный набор переменных.
// Существующие ключи не перезаписываются: данные события важнее.
type Static map[string]any

func (s Static) Resolve(_ context.Context, _ *domain.Event, vars map[string]any) error {
	for k, v := range s {
		if _, ok := vars[k]; !ok {
			vars[k] = v
		}
	}
	return nil
}
