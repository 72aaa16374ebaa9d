package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/assessor/internal/common"
	"github.com/bobmcallan/assessor/internal/interfaces"
	"github.com/bobmcallan/assessor/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// BatchStore implements interfaces.BatchStore using SurrealDB: a periodic
// scan-then-update idiom applied to batch status reconciliation.
type BatchStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewBatchStore(db *surrealdb.DB, logger *common.Logger) *BatchStore {
	return &BatchStore{db: db, logger: logger}
}

func (s *BatchStore) ListActiveBatches(ctx context.Context) ([]*models.Batch, error) {
	sql := "SELECT * FROM batches WHERE status IN $active ORDER BY created_at ASC"
	vars := map[string]any{"active": models.ActiveBatchStatuses}

	results, err := surrealdb.Query[[]models.Batch](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list active batches: %w", err)
	}
	var batches []*models.Batch
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			batches = append(batches, &(*results)[0].Result[i])
		}
	}
	return batches, nil
}

func (s *BatchStore) DocumentStatusCounts(ctx context.Context, batchID string) (models.DocumentStatusCounts, error) {
	sql := `SELECT
		count(status = $completed) AS completed,
		count(status = $error) AS failed,
		count(status = $processing) AS processing
		FROM documents WHERE batch_id = $batch AND is_deleted = false GROUP ALL`
	vars := map[string]any{
		"completed":  models.DocumentStatusCompleted,
		"error":      models.DocumentStatusError,
		"processing": models.DocumentStatusProcessing,
		"batch":      batchID,
	}

	type row struct {
		Completed  int `json:"completed"`
		Failed     int `json:"failed"`
		Processing int `json:"processing"`
	}
	results, err := surrealdb.Query[[]row](ctx, s.db, sql, vars)
	if err != nil {
		return models.DocumentStatusCounts{}, fmt.Errorf("document status counts: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return models.DocumentStatusCounts{}, nil
	}
	r := (*results)[0].Result[0]
	return models.DocumentStatusCounts{Completed: r.Completed, Failed: r.Failed, Processing: r.Processing}, nil
}

func (s *BatchStore) UpdateBatchRollup(ctx context.Context, batchID string, completed, failed int, status models.BatchStatus) error {
	sql := `UPDATE batches SET completed_files = $completed, failed_files = $failed, status = $status, updated_at = $now
		WHERE batch_id = $id`
	vars := map[string]any{
		"completed": completed,
		"failed":    failed,
		"status":    status,
		"now":       time.Now().UTC(),
		"id":        batchID,
	}
	if _, err := surrealdb.Query[[]models.Batch](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("update batch rollup: %w", err)
	}
	return nil
}

var _ interfaces.BatchStore = (*BatchStore)(nil)
