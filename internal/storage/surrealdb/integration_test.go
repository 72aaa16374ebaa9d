package surrealdb

import (
	"context"
	"testing"
	"time"

	"github.com/bobmcallan/assessor/internal/interfaces"
	"github.com/bobmcallan/assessor/internal/models"
	surrealsdk "github.com/surrealdb/surrealdb.go"
)

// seedDocument inserts a document row directly, bypassing the store layer,
// since document ingestion (the upload API) lives outside this package.
func seedDocument(t *testing.T, m *Manager, doc *models.Document) {
	t.Helper()
	sql := `CREATE documents CONTENT {
		document_id: $document_id, owner_id: $owner_id, original_filename: $filename,
		blob_path: $blob_path, file_type: $file_type, batch_id: $batch_id,
		priority: $priority, status: $status, is_deleted: false,
		created_at: $now, updated_at: $now
	}`
	vars := map[string]any{
		"document_id": doc.DocumentID,
		"owner_id":    doc.OwnerID,
		"filename":    doc.OriginalFilename,
		"blob_path":   doc.BlobPath,
		"file_type":   doc.FileType,
		"batch_id":    doc.BatchID,
		"priority":    doc.Priority,
		"status":      doc.Status,
		"now":         time.Now().UTC(),
	}
	if _, err := surrealsdk.Query[[]models.Document](context.Background(), m.db, sql, vars); err != nil {
		t.Fatalf("seed document: %v", err)
	}
}

func seedBatch(t *testing.T, m *Manager, batch *models.Batch) {
	t.Helper()
	sql := `CREATE batches CONTENT {
		batch_id: $batch_id, owner_id: $owner_id, total_files: $total_files,
		completed_files: 0, failed_files: 0, status: $status, priority: $priority,
		created_at: $now, updated_at: $now
	}`
	vars := map[string]any{
		"batch_id":    batch.BatchID,
		"owner_id":    batch.OwnerID,
		"total_files": batch.TotalFiles,
		"status":      batch.Status,
		"priority":    batch.Priority,
		"now":         time.Now().UTC(),
	}
	if _, err := surrealsdk.Query[[]models.Batch](context.Background(), m.db, sql, vars); err != nil {
		t.Fatalf("seed batch: %v", err)
	}
}

func TestTaskStore_EnqueueClaimComplete(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	seedDocument(t, m, &models.Document{
		DocumentID: "doc-1", OwnerID: "owner-1", OriginalFilename: "a.txt",
		BlobPath: "owner-1/doc-1.txt", FileType: models.FileTypeTXT, Status: models.DocumentStatusQueued,
	})

	task, err := m.TaskStore().Enqueue(ctx, "doc-1", "owner-1", 5)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if task.Status != models.TaskStatusPending {
		t.Errorf("new task status = %s, want PENDING", task.Status)
	}

	claimed, err := m.TaskStore().ClaimNext(ctx, 30*time.Second)
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if claimed == nil || claimed.TaskID != task.TaskID {
		t.Fatalf("ClaimNext returned %+v, want task %s", claimed, task.TaskID)
	}

	second, err := m.TaskStore().ClaimNext(ctx, 30*time.Second)
	if err != nil {
		t.Fatalf("ClaimNext (second): %v", err)
	}
	if second != nil {
		t.Errorf("expected no further claimable task while lease is held, got %+v", second)
	}

	if err := m.TaskStore().Complete(ctx, task.TaskID); err != nil {
		t.Fatalf("Complete: %v", err)
	}
}

func TestTaskStore_DeferThenDeadLetter(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	seedDocument(t, m, &models.Document{
		DocumentID: "doc-2", OwnerID: "owner-1", OriginalFilename: "b.txt",
		BlobPath: "owner-1/doc-2.txt", FileType: models.FileTypeTXT, Status: models.DocumentStatusQueued,
	})

	task, err := m.TaskStore().Enqueue(ctx, "doc-2", "owner-1", 1)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if _, err := m.TaskStore().ClaimNext(ctx, 30*time.Second); err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if err := m.TaskStore().Defer(ctx, task.TaskID, 0, "detector timeout"); err != nil {
		t.Fatalf("Defer: %v", err)
	}

	retried, err := m.TaskStore().ClaimNext(ctx, 30*time.Second)
	if err != nil {
		t.Fatalf("ClaimNext after defer: %v", err)
	}
	if retried == nil || retried.TaskID != task.TaskID {
		t.Fatalf("expected deferred task to be reclaimable, got %+v", retried)
	}

	if err := m.TaskStore().DeadLetter(ctx, task.TaskID, "max attempts exceeded"); err != nil {
		t.Fatalf("DeadLetter: %v", err)
	}

	none, err := m.TaskStore().ClaimNext(ctx, 30*time.Second)
	if err != nil {
		t.Fatalf("ClaimNext after dead-letter: %v", err)
	}
	if none != nil {
		t.Errorf("expected no claimable task after dead-lettering, got %+v", none)
	}
}

func TestDocumentStore_GetAndUpdateStatus(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	seedDocument(t, m, &models.Document{
		DocumentID: "doc-3", OwnerID: "owner-2", OriginalFilename: "c.txt",
		BlobPath: "owner-2/doc-3.txt", FileType: models.FileTypeTXT, Status: models.DocumentStatusQueued,
	})

	doc, err := m.DocumentStore().GetDocument(ctx, "doc-3", "owner-2")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if doc == nil {
		t.Fatal("GetDocument returned nil for seeded document")
	}

	score := 0.87
	words, chars := 120, 640
	if err := m.DocumentStore().UpdateDocumentStatus(ctx, "doc-3", "owner-2", models.DocumentStatusProcessing, nil, nil, nil); err != nil {
		t.Fatalf("UpdateDocumentStatus (to PROCESSING): %v", err)
	}
	if err := m.DocumentStore().UpdateDocumentStatus(ctx, "doc-3", "owner-2", models.DocumentStatusCompleted, &score, &words, &chars); err != nil {
		t.Fatalf("UpdateDocumentStatus (to COMPLETED): %v", err)
	}

	updated, err := m.DocumentStore().GetDocument(ctx, "doc-3", "owner-2")
	if err != nil {
		t.Fatalf("GetDocument after update: %v", err)
	}
	if updated.Status != models.DocumentStatusCompleted {
		t.Errorf("status = %s, want COMPLETED", updated.Status)
	}
	if updated.Score == nil || *updated.Score != score {
		t.Errorf("score = %v, want %v", updated.Score, score)
	}
}

func TestDocumentStore_GetDocument_NotFound(t *testing.T) {
	m := testManager(t)
	doc, err := m.DocumentStore().GetDocument(context.Background(), "missing", "owner-2")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if doc != nil {
		t.Errorf("expected nil for missing document, got %+v", doc)
	}
}

func TestResultStore_CreateAndUpdate(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	seedDocument(t, m, &models.Document{
		DocumentID: "doc-4", OwnerID: "owner-3", OriginalFilename: "d.txt",
		BlobPath: "owner-3/doc-4.txt", FileType: models.FileTypeTXT, Status: models.DocumentStatusQueued,
	})

	result, err := m.ResultStore().CreateResult(ctx, "doc-4", "owner-3")
	if err != nil {
		t.Fatalf("CreateResult: %v", err)
	}
	if result.Status != models.ResultStatusPending {
		t.Errorf("new result status = %s, want PENDING", result.Status)
	}

	score := 0.12
	aiGenerated := false
	humanGenerated := true
	update := interfaces.ResultUpdate{
		Status:         models.ResultStatusCompleted,
		Score:          &score,
		Label:          models.LabelHumanWritten,
		AIGenerated:    &aiGenerated,
		HumanGenerated: &humanGenerated,
	}
	if err := m.ResultStore().UpdateResult(ctx, result.ResultID, "owner-3", update); err != nil {
		t.Fatalf("UpdateResult: %v", err)
	}

	fetched, err := m.ResultStore().GetResultByDocument(ctx, "doc-4", "owner-3")
	if err != nil {
		t.Fatalf("GetResultByDocument: %v", err)
	}
	if fetched.Status != models.ResultStatusCompleted {
		t.Errorf("status = %s, want COMPLETED", fetched.Status)
	}
}

func TestBatchStore_ListActiveAndRollup(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	seedBatch(t, m, &models.Batch{BatchID: "batch-1", OwnerID: "owner-4", TotalFiles: 2, Status: models.BatchStatusProcessing})
	seedDocument(t, m, &models.Document{
		DocumentID: "doc-5", OwnerID: "owner-4", OriginalFilename: "e.txt", BlobPath: "owner-4/doc-5.txt",
		FileType: models.FileTypeTXT, BatchID: "batch-1", Status: models.DocumentStatusCompleted,
	})
	seedDocument(t, m, &models.Document{
		DocumentID: "doc-6", OwnerID: "owner-4", OriginalFilename: "f.txt", BlobPath: "owner-4/doc-6.txt",
		FileType: models.FileTypeTXT, BatchID: "batch-1", Status: models.DocumentStatusCompleted,
	})

	batches, err := m.BatchStore().ListActiveBatches(ctx)
	if err != nil {
		t.Fatalf("ListActiveBatches: %v", err)
	}
	found := false
	for _, b := range batches {
		if b.BatchID == "batch-1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected batch-1 in active batches, got %+v", batches)
	}

	counts, err := m.BatchStore().DocumentStatusCounts(ctx, "batch-1")
	if err != nil {
		t.Fatalf("DocumentStatusCounts: %v", err)
	}
	if counts.Completed != 2 {
		t.Errorf("completed count = %d, want 2", counts.Completed)
	}

	status := models.DeriveStatus(2, counts)
	if err := m.BatchStore().UpdateBatchRollup(ctx, "batch-1", counts.Completed, counts.Failed, status); err != nil {
		t.Fatalf("UpdateBatchRollup: %v", err)
	}
}
