package jobs

import (
	"context"

	"tripmeet-backend/internal/logger"
)

// DrainOutbox turns queued fan-out tasks into notifications. It keeps claiming
// batches while full batches come back.
func (jr *JobRunner) DrainOutbox() {
	jr.runWithRecovery("DrainOutbox", func() {
		ctx := context.Background()
		batch := jr.config.Fanout.BatchSize

		total := 0
		for round := 0; round < maxDrainRounds; round++ {
			n, err := jr.services.Fanout.ProcessPending(ctx)
			if err != nil {
				logger.Error("Failed to drain notification outbox", "error", err)
				return
			}
			total += n
			if batch <= 0 || n < batch {
				break
			}
		}

		if total > 0 {
			logger.Info("Drained notification outbox", "processed", total)
		}
	})
}
