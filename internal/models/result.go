package models

import "time"

// ResultStatus is the lifecycle state of a detection result.
type ResultStatus string

const (
	ResultStatusPending    ResultStatus = "PENDING"
	ResultStatusProcessing ResultStatus = "PROCESSING"
	ResultStatusCompleted  ResultStatus = "COMPLETED"
	ResultStatusFailed     ResultStatus = "FAILED"
	ResultStatusDeleted    ResultStatus = "DELETED"
)

// Label values a Result may carry, consistent with its Status.
const (
	LabelAIGenerated   = "AI Generated"
	LabelHumanWritten  = "Human Written"
	LabelUndetermined  = "Undetermined"
	LabelError         = "Error"
)

// ParagraphResult is one paragraph-level sub-score returned by the AI
// detection service, persisted verbatim.
type ParagraphResult struct {
	Text        string  `json:"text"`
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Result is the detection output for one document, 1:1 while active.
type Result struct {
	ResultID         string            `json:"result_id"`
	DocumentID       string            `json:"document_id"`
	OwnerID          string            `json:"owner_id"`
	Status           ResultStatus      `json:"status"`
	Score            *float64          `json:"score,omitempty"`
	Label            string            `json:"label,omitempty"`
	AIGenerated      *bool             `json:"ai_generated,omitempty"`
	HumanGenerated   *bool             `json:"human_generated,omitempty"`
	ParagraphResults []ParagraphResult `json:"paragraph_results,omitempty"`
	ErrorMessage     string            `json:"error_message,omitempty"`
	ResultTimestamp  time.Time         `json:"result_timestamp"`
	IsDeleted        bool              `json:"is_deleted"`
}
