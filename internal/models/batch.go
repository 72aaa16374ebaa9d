package models

import "time"

// BatchStatus is the lifecycle state of a multi-upload batch.
type BatchStatus string

const (
	BatchStatusQueued     BatchStatus = "QUEUED"
	BatchStatusProcessing BatchStatus = "PROCESSING"
	BatchStatusCompleted  BatchStatus = "COMPLETED"
	BatchStatusPartial    BatchStatus = "PARTIAL"
	BatchStatusFailed     BatchStatus = "FAILED"
	BatchStatusError      BatchStatus = "ERROR"
)

// ActiveBatchStatuses are the statuses the BatchCoordinator scans on each
// reconciliation pass.
var ActiveBatchStatuses = []BatchStatus{
	BatchStatusQueued,
	BatchStatusProcessing,
	BatchStatusPartial,
}

// Batch groups a set of documents uploaded together.
type Batch struct {
	BatchID        string      `json:"batch_id"`
	OwnerID        string      `json:"owner_id"`
	TotalFiles     int         `json:"total_files"`
	CompletedFiles int         `json:"completed_files"`
	FailedFiles    int         `json:"failed_files"`
	Status         BatchStatus `json:"status"`
	Priority       int         `json:"priority"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// DocumentStatusCounts tallies member-document statuses for one batch,
// the input to the rollup rule in DeriveStatus.
type DocumentStatusCounts struct {
	Completed  int
	Failed     int
	Processing int
}

// DeriveStatus applies the batch rollup rule: a degenerate batch with
// TotalFiles == 0 stays FAILED rather than vacuously COMPLETED.
func DeriveStatus(totalFiles int, counts DocumentStatusCounts) BatchStatus {
	if totalFiles <= 0 {
		return BatchStatusFailed
	}
	done := counts.Completed + counts.Failed
	if done >= totalFiles {
		if counts.Failed == 0 {
			return BatchStatusCompleted
		}
		return BatchStatusPartial
	}
	if counts.Processing > 0 || counts.Completed > 0 || counts.Failed > 0 {
		return BatchStatusProcessing
	}
	return BatchStatusQueued
}
