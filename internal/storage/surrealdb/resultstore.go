package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/assessor/internal/common"
	"github.com/bobmcallan/assessor/internal/interfaces"
	"github.com/bobmcallan/assessor/internal/models"
	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
)

// ResultStore implements interfaces.ResultStore using SurrealDB.
type ResultStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewResultStore(db *surrealdb.DB, logger *common.Logger) *ResultStore {
	return &ResultStore{db: db, logger: logger}
}

func (s *ResultStore) GetResultByDocument(ctx context.Context, documentID, ownerID string) (*models.Result, error) {
	sql := "SELECT * FROM results WHERE document_id = $doc AND owner_id = $owner AND is_deleted = false LIMIT 1"
	vars := map[string]any{"doc": documentID, "owner": ownerID}

	results, err := surrealdb.Query[[]models.Result](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("get result by document: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

func (s *ResultStore) CreateResult(ctx context.Context, documentID, ownerID string) (*models.Result, error) {
	now := time.Now().UTC()
	result := &models.Result{
		ResultID:        uuid.New().String(),
		DocumentID:      documentID,
		OwnerID:         ownerID,
		Status:          models.ResultStatusPending,
		ResultTimestamp: now,
	}

	sql := `UPSERT type::thing('results', $result_id) SET
		result_id = $result_id, document_id = $document_id, owner_id = $owner_id,
		status = $status, result_timestamp = $now, is_deleted = false`
	vars := map[string]any{
		"result_id":   result.ResultID,
		"document_id": result.DocumentID,
		"owner_id":    result.OwnerID,
		"status":      result.Status,
		"now":         now,
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return nil, fmt.Errorf("create result: %w", err)
	}
	return result, nil
}

// UpdateResult validates the requested transition against the Result state
// machine before writing, enforcing it at the store layer rather than
// trusting callers.
func (s *ResultStore) UpdateResult(ctx context.Context, resultID, ownerID string, update interfaces.ResultUpdate) error {
	sql := `SELECT * FROM results WHERE result_id = $id AND owner_id = $owner LIMIT 1`
	vars := map[string]any{"id": resultID, "owner": ownerID}
	found, err := surrealdb.Query[[]models.Result](ctx, s.db, sql, vars)
	if err != nil {
		return fmt.Errorf("load result for update: %w", err)
	}
	if found == nil || len(*found) == 0 || len((*found)[0].Result) == 0 {
		return fmt.Errorf("update result: result %s not found for owner %s", resultID, ownerID)
	}
	current := (*found)[0].Result[0]

	if err := models.ValidateResultTransition(current.Status, update.Status); err != nil {
		return err
	}

	score := update.Score
	label := update.Label
	if update.ClearScoreLabel {
		score = nil
		label = ""
	}

	updateSQL := `UPDATE results SET
		status = $status, score = $score, label = $label, paragraph_results = $paragraphs,
		error_message = $error_message, ai_generated = $ai_generated, human_generated = $human_generated,
		result_timestamp = $now
		WHERE result_id = $id AND owner_id = $owner`
	updateVars := map[string]any{
		"status":          update.Status,
		"score":           score,
		"label":           label,
		"paragraphs":      update.ParagraphResults,
		"error_message":   update.ErrorMessage,
		"ai_generated":    update.AIGenerated,
		"human_generated": update.HumanGenerated,
		"now":             time.Now().UTC(),
		"id":              resultID,
		"owner":           ownerID,
	}
	if _, err := surrealdb.Query[[]models.Result](ctx, s.db, updateSQL, updateVars); err != nil {
		return fmt.Errorf("update result: %w", err)
	}
	return nil
}

func (s *ResultStore) SoftDeleteResultByDocument(ctx context.Context, documentID, ownerID string) error {
	sql := `UPDATE results SET status = $deleted, is_deleted = true, result_timestamp = $now
		WHERE document_id = $doc AND owner_id = $owner`
	vars := map[string]any{
		"deleted": models.ResultStatusDeleted,
		"now":     time.Now().UTC(),
		"doc":     documentID,
		"owner":   ownerID,
	}
	if _, err := surrealdb.Query[[]models.Result](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("soft delete result by document: %w", err)
	}
	return nil
}

var _ interfaces.ResultStore = (*ResultStore)(nil)
