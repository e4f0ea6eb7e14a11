package service

import (
	"context"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/logger"
)

// publishChange emits a change event. Delivery is best effort: the row is
// already committed, so failures are only logged.
func publishChange(ctx context.Context, pub Publisher, kind domain.ChangeKind, table, topic string, row any, projected bool) {
	if pub == nil {
		return
	}
	ev, err := domain.NewChangeEvent(kind, table, topic, row, projected)
	if err != nil {
		logger.Error("Failed to build change event", "table", table, "topic", topic, "error", err)
		return
	}
	if err := pub.Publish(ctx, ev); err != nil {
		logger.Warn("Failed to publish change event", "table", table, "topic", topic, "kind", kind, "error", err)
	}
}

// publishDelete emits a delete event carrying only the removed row id.
func publishDelete(ctx context.Context, pub Publisher, table, topic, oldID string) {
	if pub == nil {
		return
	}
	ev := domain.ChangeEvent{Kind: domain.ChangeDelete, Table: table, Topic: topic, OldID: oldID}
	if err := pub.Publish(ctx, ev); err != nil {
		logger.Warn("Failed to publish change event", "table", table, "topic", topic, "kind", ev.Kind, "error", err)
	}
}
