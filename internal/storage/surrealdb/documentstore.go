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

// DocumentStore implements interfaces.DocumentStore using SurrealDB, with
// every query bound by owner_id.
type DocumentStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewDocumentStore(db *surrealdb.DB, logger *common.Logger) *DocumentStore {
	return &DocumentStore{db: db, logger: logger}
}

func (s *DocumentStore) GetDocument(ctx context.Context, id, ownerID string) (*models.Document, error) {
	sql := "SELECT * FROM documents WHERE document_id = $id AND owner_id = $owner AND is_deleted = false LIMIT 1"
	vars := map[string]any{"id": id, "owner": ownerID}

	results, err := surrealdb.Query[[]models.Document](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// UpdateDocumentStatus validates the transition against the Document state
// machine before issuing the write; illegal transitions are rejected at the
// store layer rather than trusted to caller discipline.
func (s *DocumentStore) UpdateDocumentStatus(ctx context.Context, id, ownerID string, newStatus models.DocumentStatus, score *float64, wordCount, charCount *int) error {
	current, err := s.GetDocument(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("update document status: document %s not found for owner %s", id, ownerID)
	}
	if err := models.ValidateDocumentTransition(current.Status, newStatus); err != nil {
		return err
	}

	sql := `UPDATE documents SET
		status = $status, score = $score, word_count = $word_count, character_count = $char_count, updated_at = $now
		WHERE document_id = $id AND owner_id = $owner`
	vars := map[string]any{
		"status":    newStatus,
		"score":     score,
		"word_count": wordCount,
		"char_count": charCount,
		"now":       time.Now().UTC(),
		"id":        id,
		"owner":     ownerID,
	}
	if _, err := surrealdb.Query[[]models.Document](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return nil
}

func (s *DocumentStore) SoftDeleteDocument(ctx context.Context, id, ownerID string) error {
	sql := `UPDATE documents SET status = $deleted, is_deleted = true, updated_at = $now
		WHERE document_id = $id AND owner_id = $owner`
	vars := map[string]any{
		"deleted": models.DocumentStatusDeleted,
		"now":     time.Now().UTC(),
		"id":      id,
		"owner":   ownerID,
	}
	if _, err := surrealdb.Query[[]models.Document](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("soft delete document: %w", err)
	}
	return nil
}

// UsageStats aggregates document counters for the usage-stats surface,
// using the same GROUP ALL aggregate query idiom as the task queue's
// pending-count lookup.
func (s *DocumentStore) UsageStats(ctx context.Context, ownerID string, period interfaces.UsageStatsPeriod, targetDate time.Time) (interfaces.UsageStats, error) {
	if period == interfaces.UsageStatsAllTime {
		return s.allTimeUsageStats(ctx, ownerID)
	}

	start, end := periodRange(period, targetDate)

	sql := `SELECT count() AS doc_count, math::sum(word_count) AS words, math::sum(character_count) AS chars
		FROM documents
		WHERE owner_id = $owner AND is_deleted = false AND created_at >= $start AND created_at < $end
		GROUP ALL`
	vars := map[string]any{"owner": ownerID, "start": start, "end": end}

	type row struct {
		DocCount int `json:"doc_count"`
		Words    int `json:"words"`
		Chars    int `json:"chars"`
	}
	results, err := surrealdb.Query[[]row](ctx, s.db, sql, vars)
	if err != nil {
		return interfaces.UsageStats{}, fmt.Errorf("usage stats: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return interfaces.UsageStats{}, nil
	}
	r := (*results)[0].Result[0]
	return interfaces.UsageStats{DocumentCount: r.DocCount, TotalWords: r.Words, TotalCharacters: r.Chars}, nil
}

func (s *DocumentStore) allTimeUsageStats(ctx context.Context, ownerID string) (interfaces.UsageStats, error) {
	sql := `SELECT
		count() AS total,
		math::sum(word_count) AS words,
		math::sum(character_count) AS chars,
		count(is_deleted = false) AS current,
		count(is_deleted = true) AS deleted,
		count(status IN [$completed, $error]) AS processed
		FROM documents WHERE owner_id = $owner GROUP ALL`
	vars := map[string]any{
		"owner":     ownerID,
		"completed": models.DocumentStatusCompleted,
		"error":     models.DocumentStatusError,
	}

	type row struct {
		Total     int `json:"total"`
		Words     int `json:"words"`
		Chars     int `json:"chars"`
		Current   int `json:"current"`
		Deleted   int `json:"deleted"`
		Processed int `json:"processed"`
	}
	results, err := surrealdb.Query[[]row](ctx, s.db, sql, vars)
	if err != nil {
		return interfaces.UsageStats{}, fmt.Errorf("all-time usage stats: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return interfaces.UsageStats{}, nil
	}
	r := (*results)[0].Result[0]
	return interfaces.UsageStats{
		DocumentCount:           r.Total,
		TotalWords:              r.Words,
		TotalCharacters:         r.Chars,
		CurrentDocuments:        r.Current,
		DeletedDocuments:        r.Deleted,
		TotalProcessedDocuments: r.Processed,
	}, nil
}

func periodRange(period interfaces.UsageStatsPeriod, targetDate time.Time) (time.Time, time.Time) {
	d := targetDate.UTC()
	switch period {
	case interfaces.UsageStatsDaily:
		start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 0, 1)
	case interfaces.UsageStatsWeekly:
		weekday := int(d.Weekday())
		start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -weekday)
		return start, start.AddDate(0, 0, 7)
	case interfaces.UsageStatsMonthly:
		start := models.CycleStart(d)
		return start, start.AddDate(0, 1, 0)
	default:
		start := models.CycleStart(d)
		return start, start.AddDate(0, 1, 0)
	}
}

var _ interfaces.DocumentStore = (*DocumentStore)(nil)
var _ interfaces.UsageStatsProvider = (*DocumentStore)(nil)
