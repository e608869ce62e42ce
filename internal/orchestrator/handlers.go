package orchestrator

import (
	"context"
	"errors"

	"github.com/shaiso/Notiflow/internal/mq"
)

// handleEventPending обрабатывает сообщение о новом pending событии.
func (o *Orchestrator) handleEventPending(ctx context.Context, delivery *mq.Delivery) error {
	// Парсим payload
	payload, err := mq.ParsePayload[mq.EventPendingPayload](&delivery.Message)
	if err != nil {
		o.logger.Error("failed to parse event.pending payload", "error", err)
		return err
	}

	o.logger.Debug("received event.pending", "event_id", payload.EventID)

	// Проверяем, не обрабатывается ли уже
	if o.isEventActive(payload.EventID) {
		o.logger.Debug("event already active, skipping", "event_id", payload.EventID)
		return nil
	}

	// Обрабатываем событие
	if err := o.ProcessEvent(ctx, payload.EventID); err != nil {
		// Повторная доставка: событие уже захвачено или завершено — это
		// не ошибка, сообщение подтверждаем.
		if errors.Is(err, ErrEventNotPending) || errors.Is(err, ErrEventAlreadyActive) {
			o.logger.Debug("event not processed", "event_id", payload.EventID, "reason", err)
			return nil
		}
		// Событие могло ещё не закоммититься при гонке publish/insert —
		// возвращаем в очередь.
		o.logger.Error("failed to process event", "event_id", payload.EventID, "error", err)
		return err
	}

	return nil
}
