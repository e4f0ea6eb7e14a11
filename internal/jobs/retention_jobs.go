package jobs

import (
	"context"
	"time"

	"tripmeet-backend/internal/logger"
)

// PurgeNotifications deletes read notifications older than the retention window
func (jr *JobRunner) PurgeNotifications() {
	jr.runWithRecovery("PurgeNotifications", func() {
		ctx := context.Background()
		cutoff := jr.cutoff(jr.config.Notifications.RetentionDays)

		count, err := jr.notes.PurgeRead(ctx, cutoff)
		if err != nil {
			logger.Error("Failed to purge read notifications", "cutoff", cutoff, "error", err)
			return
		}
		logger.Info("Purged read notifications", "count", count, "cutoff", cutoff)
	})
}

// PurgeOutbox deletes processed fan-out tasks older than the outbox retention window
func (jr *JobRunner) PurgeOutbox() {
	jr.runWithRecovery("PurgeOutbox", func() {
		ctx := context.Background()
		cutoff := jr.cutoff(jr.config.Notifications.OutboxRetentionDays)

		count, err := jr.outbox.PurgeProcessed(ctx, cutoff)
		if err != nil {
			logger.Error("Failed to purge processed outbox tasks", "cutoff", cutoff, "error", err)
			return
		}
		logger.Info("Purged processed outbox tasks", "count", count, "cutoff", cutoff)
	})
}

func (jr *JobRunner) cutoff(days int) time.Time {
	return jr.now().UTC().AddDate(0, 0, -days)
}
