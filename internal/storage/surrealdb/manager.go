package surrealdb

import (
	"context"
	"fmt"

	"github.com/bobmcallan/assessor/internal/common"
	"github.com/bobmcallan/assessor/internal/interfaces"
	"github.com/surrealdb/surrealdb.go"
)

// Manager implements interfaces.AssessmentStorageManager using SurrealDB: a
// connect/sign-in/DEFINE-TABLE/accessor shape hosting the four
// assessment-pipeline stores.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	taskStore     *TaskStore
	documentStore *DocumentStore
	resultStore   *ResultStore
	batchStore    *BatchStore
}

// NewManager creates a new AssessmentStorageManager connected to SurrealDB.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	ctx := context.Background()

	db, err := surrealdb.New(config.Storage.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Storage.Username,
		"pass": config.Storage.Password,
	}); err != nil {
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Storage.Namespace, config.Storage.Database); err != nil {
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	// Define tables to ensure they exist (SurrealDB v3 errors on querying non-existent tables)
	tables := []string{"tasks", "tasks_dead_letter", "documents", "results", "batches"}
	for _, table := range tables {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}

	m := &Manager{
		db:     db,
		logger: logger,
	}

	m.taskStore = NewTaskStore(db, logger)
	m.documentStore = NewDocumentStore(db, logger)
	m.resultStore = NewResultStore(db, logger)
	m.batchStore = NewBatchStore(db, logger)

	logger.Info().
		Str("address", config.Storage.Address).
		Str("namespace", config.Storage.Namespace).
		Str("database", config.Storage.Database).
		Msg("SurrealDB storage manager initialized")

	return m, nil
}

func (m *Manager) TaskStore() interfaces.TaskStore {
	return m.taskStore
}

func (m *Manager) DocumentStore() interfaces.DocumentStore {
	return m.documentStore
}

func (m *Manager) ResultStore() interfaces.ResultStore {
	return m.resultStore
}

func (m *Manager) BatchStore() interfaces.BatchStore {
	return m.batchStore
}

func (m *Manager) UsageStats() interfaces.UsageStatsProvider {
	return m.documentStore
}

func (m *Manager) Close() error {
	m.db.Close(context.Background())
	return nil
}

var _ interfaces.AssessmentStorageManager = (*Manager)(nil)
