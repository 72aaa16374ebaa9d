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
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// taskSelectFields lists the task columns read back into models.Task.
const taskSelectFields = "task_id, document_id, owner_id, priority, attempts, max_attempts, status, available_at, last_error, created_at, updated_at"

// TaskStore implements interfaces.TaskStore using SurrealDB. The claim
// protocol is a SELECT to find the best candidate followed by a conditional
// UPDATE that only succeeds if the row is still claimable, preventing a
// double-claim race between two workers that selected the same candidate
// concurrently.
type TaskStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewTaskStore creates a new TaskStore.
func NewTaskStore(db *surrealdb.DB, logger *common.Logger) *TaskStore {
	return &TaskStore{db: db, logger: logger}
}

func (s *TaskStore) Enqueue(ctx context.Context, documentID, ownerID string, priority int) (*models.Task, error) {
	now := time.Now().UTC()
	task := &models.Task{
		TaskID:      uuid.New().String(),
		DocumentID:  documentID,
		OwnerID:     ownerID,
		Priority:    priority,
		Attempts:    0,
		MaxAttempts: models.DefaultMaxAttempts,
		Status:      models.TaskStatusPending,
		AvailableAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	sql := `UPSERT $rid SET
		task_id = $task_id, document_id = $document_id, owner_id = $owner_id,
		priority = $priority, attempts = $attempts, max_attempts = $max_attempts,
		status = $status, available_at = $available_at, last_error = $last_error,
		created_at = $created_at, updated_at = $updated_at`
	vars := map[string]any{
		"rid":          surrealmodels.NewRecordID("tasks", task.TaskID),
		"task_id":      task.TaskID,
		"document_id":  task.DocumentID,
		"owner_id":     task.OwnerID,
		"priority":     task.Priority,
		"attempts":     task.Attempts,
		"max_attempts": task.MaxAttempts,
		"status":       task.Status,
		"available_at": task.AvailableAt,
		"last_error":   task.LastError,
		"created_at":   task.CreatedAt,
		"updated_at":   task.UpdatedAt,
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return nil, fmt.Errorf("enqueue task: %w", err)
	}
	return task, nil
}

// ClaimNext selects the highest-priority claimable task (priority DESC,
// created_at ASC) and atomically transitions it to IN_PROGRESS, bumping
// attempts and pushing available_at out by leaseDuration. The candidate
// filter intentionally includes IN_PROGRESS rows whose lease has elapsed —
// this is deliberate crash-recovery scavenging, not a bug.
func (s *TaskStore) ClaimNext(ctx context.Context, leaseDuration time.Duration) (*models.Task, error) {
	now := time.Now().UTC()

	selectSQL := "SELECT " + taskSelectFields + ` FROM tasks
		WHERE status IN [$pending, $in_progress, $retrying] AND available_at <= $now
		ORDER BY priority DESC, created_at ASC LIMIT 1`
	selectVars := map[string]any{
		"pending":     models.TaskStatusPending,
		"in_progress": models.TaskStatusInProgress,
		"retrying":    models.TaskStatusRetrying,
		"now":         now,
	}

	candidates, err := surrealdb.Query[[]models.Task](ctx, s.db, selectSQL, selectVars)
	if err != nil {
		return nil, fmt.Errorf("select claim candidate: %w", err)
	}
	if candidates == nil || len(*candidates) == 0 || len((*candidates)[0].Result) == 0 {
		return nil, nil
	}
	candidate := (*candidates)[0].Result[0]

	newAttempts := candidate.Attempts + 1
	leaseUntil := now.Add(leaseDuration)

	updateSQL := `UPDATE $rid SET
		status = $in_progress, available_at = $lease_until, attempts = $attempts, updated_at = $now
		WHERE status IN [$pending, $in_progress, $retrying] AND available_at <= $now`
	updateVars := map[string]any{
		"rid":         surrealmodels.NewRecordID("tasks", candidate.TaskID),
		"in_progress": models.TaskStatusInProgress,
		"pending":     models.TaskStatusPending,
		"retrying":    models.TaskStatusRetrying,
		"lease_until": leaseUntil,
		"attempts":    newAttempts,
		"now":         now,
	}

	updated, err := surrealdb.Query[[]models.Task](ctx, s.db, updateSQL, updateVars)
	if err != nil {
		return nil, fmt.Errorf("claim task: %w", err)
	}
	if updated == nil || len(*updated) == 0 || len((*updated)[0].Result) == 0 {
		// Another worker won the race; treat as no work this cycle.
		return nil, nil
	}

	candidate.Status = models.TaskStatusInProgress
	candidate.AvailableAt = leaseUntil
	candidate.Attempts = newAttempts
	candidate.UpdatedAt = now

	if candidate.ExceedsMaxAttempts() {
		if err := s.DeadLetter(ctx, candidate.TaskID, "max attempts exceeded on claim"); err != nil {
			s.logger.Warn().Str("task_id", candidate.TaskID).Err(err).Msg("Failed to dead-letter task exceeding max attempts")
		}
		return nil, nil
	}

	return &candidate, nil
}

func (s *TaskStore) Complete(ctx context.Context, taskID string) error {
	sql := "DELETE $rid"
	vars := map[string]any{"rid": surrealmodels.NewRecordID("tasks", taskID)}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	return nil
}

func (s *TaskStore) Defer(ctx context.Context, taskID string, delay time.Duration, reason string) error {
	now := time.Now().UTC()
	sql := `UPDATE $rid SET status = $retrying, available_at = $available_at, last_error = $reason, updated_at = $now`
	vars := map[string]any{
		"rid":          surrealmodels.NewRecordID("tasks", taskID),
		"retrying":     models.TaskStatusRetrying,
		"available_at": now.Add(delay),
		"reason":       reason,
		"now":          now,
	}
	if _, err := surrealdb.Query[[]models.Task](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("defer task: %w", err)
	}
	return nil
}

// DeadLetter sidelines a task into tasks_dead_letter and removes it from the
// active queue.
func (s *TaskStore) DeadLetter(ctx context.Context, taskID string, reason string) error {
	now := time.Now().UTC()

	task, err := surrealdb.Select[models.Task](ctx, s.db, surrealmodels.NewRecordID("tasks", taskID))
	if err != nil {
		return fmt.Errorf("select task for dead-letter: %w", err)
	}
	if task == nil {
		return nil
	}
	task.LastError = reason
	task.Status = models.TaskStatusDeadLetter
	task.UpdatedAt = now

	insertSQL := `INSERT INTO tasks_dead_letter {
		task_id: $task_id, document_id: $document_id, owner_id: $owner_id,
		priority: $priority, attempts: $attempts, max_attempts: $max_attempts,
		status: $status, available_at: $available_at, last_error: $last_error,
		created_at: $created_at, updated_at: $updated_at, dead_lettered_at: $dead_lettered_at
	}`
	insertVars := map[string]any{
		"task_id":          task.TaskID,
		"document_id":      task.DocumentID,
		"owner_id":         task.OwnerID,
		"priority":         task.Priority,
		"attempts":         task.Attempts,
		"max_attempts":     task.MaxAttempts,
		"status":           task.Status,
		"available_at":     task.AvailableAt,
		"last_error":       task.LastError,
		"created_at":       task.CreatedAt,
		"updated_at":       task.UpdatedAt,
		"dead_lettered_at": now,
	}
	if _, err := surrealdb.Query[any](ctx, s.db, insertSQL, insertVars); err != nil {
		return fmt.Errorf("insert dead-letter task: %w", err)
	}

	return s.Complete(ctx, taskID)
}

// ResetOrphaned resets any IN_PROGRESS task whose lease has already elapsed
// back to PENDING. Distinct from the claim-time scavenging: this is run once
// at worker startup to surface a clean count.
func (s *TaskStore) ResetOrphaned(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	sql := `UPDATE tasks SET status = $pending, updated_at = $now
		WHERE status = $in_progress AND available_at <= $now`
	vars := map[string]any{
		"pending":     models.TaskStatusPending,
		"in_progress": models.TaskStatusInProgress,
		"now":         now,
	}
	result, err := surrealdb.Query[[]models.Task](ctx, s.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("reset orphaned tasks: %w", err)
	}
	if result != nil && len(*result) > 0 {
		return len((*result)[0].Result), nil
	}
	return 0, nil
}

func (s *TaskStore) CountPending(ctx context.Context) (int, error) {
	sql := "SELECT count() AS cnt FROM tasks WHERE status = $pending GROUP ALL"
	vars := map[string]any{"pending": models.TaskStatusPending}

	type countResult struct {
		Cnt int `json:"cnt"`
	}
	results, err := surrealdb.Query[[]countResult](ctx, s.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("count pending tasks: %w", err)
	}
	if results != nil && len(*results) > 0 && len((*results)[0].Result) > 0 {
		return (*results)[0].Result[0].Cnt, nil
	}
	return 0, nil
}

var _ interfaces.TaskStore = (*TaskStore)(nil)
