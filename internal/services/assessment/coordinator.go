package assessment

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/bobmcallan/assessor/internal/common"
	"github.com/bobmcallan/assessor/internal/interfaces"
	"github.com/bobmcallan/assessor/internal/models"
)

// BatchCoordinator periodically rolls every active Batch's status up from
// its constituent documents' status counts. It never touches Task or
// Document rows directly — it only reads document status counts and writes
// the derived Batch rollup.
type BatchCoordinator struct {
	batches  interfaces.BatchStore
	logger   *common.Logger
	interval time.Duration
	hub      *EventHub

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBatchCoordinator creates a coordinator that scans every interval.
func NewBatchCoordinator(batches interfaces.BatchStore, logger *common.Logger, interval time.Duration, hub *EventHub) *BatchCoordinator {
	return &BatchCoordinator{batches: batches, logger: logger, interval: interval, hub: hub}
}

// Start launches the periodic scan loop. Safe to call multiple times.
func (c *BatchCoordinator) Start() {
	if c.cancel != nil {
		c.Stop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error().
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Msg("Recovered from panic in batch coordinator")
			}
		}()
		c.scanLoop(ctx)
	}()

	c.logger.Info().Dur("interval", c.interval).Msg("Batch coordinator started")
}

// Stop cancels the scan loop and waits for it to exit.
func (c *BatchCoordinator) Stop() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.wg.Wait()
	c.logger.Info().Msg("Batch coordinator stopped")
}

func (c *BatchCoordinator) scanLoop(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.scanOnce(ctx)
		}
	}
}

// scanOnce reconciles every active batch's rollup against its documents'
// current status counts.
func (c *BatchCoordinator) scanOnce(ctx context.Context) {
	batches, err := c.batches.ListActiveBatches(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to list active batches")
		return
	}

	for _, batch := range batches {
		counts, err := c.batches.DocumentStatusCounts(ctx, batch.BatchID)
		if err != nil {
			c.logger.Warn().Err(err).Str("batch_id", batch.BatchID).Msg("Failed to get document status counts")
			continue
		}

		newStatus := models.DeriveStatus(batch.TotalFiles, counts)
		if newStatus == batch.Status && counts.Completed == batch.CompletedFiles && counts.Failed == batch.FailedFiles {
			continue
		}

		if err := c.batches.UpdateBatchRollup(ctx, batch.BatchID, counts.Completed, counts.Failed, newStatus); err != nil {
			c.logger.Warn().Err(err).Str("batch_id", batch.BatchID).Msg("Failed to update batch rollup")
			continue
		}

		if c.hub != nil {
			c.hub.Broadcast(Event{
				Type:      EventBatchStatusChanged,
				BatchID:   batch.BatchID,
				Status:    string(newStatus),
				Timestamp: time.Now().UTC(),
			})
		}
	}
}
