package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/assessor/internal/models"
)

// TaskStore provides durable queue semantics for Task rows with atomic
// claim-and-lease.
type TaskStore interface {
	Enqueue(ctx context.Context, documentID, ownerID string, priority int) (*models.Task, error)
	ClaimNext(ctx context.Context, leaseDuration time.Duration) (*models.Task, error)
	Complete(ctx context.Context, taskID string) error
	Defer(ctx context.Context, taskID string, delay time.Duration, reason string) error
	DeadLetter(ctx context.Context, taskID string, reason string) error
	ResetOrphaned(ctx context.Context) (int, error)
	CountPending(ctx context.Context) (int, error)
}

// QuotaLedger decides whether a document may be processed and records usage
// after success.
type QuotaLedger interface {
	Admit(ctx context.Context, ownerID string, wordCount, charCount int) (AdmitDecision, error)
	RecordUsage(ctx context.Context, ownerID string, wordCount int, documents int) error
}

// AdmitDecision is the outcome of a QuotaLedger.Admit call.
type AdmitDecision struct {
	Admitted bool
	Reason   string // populated when Admitted is false; mentions "word limit" or "character limit"
}

// DocumentStore persists Document entities (part of StateStore).
type DocumentStore interface {
	GetDocument(ctx context.Context, id, ownerID string) (*models.Document, error)
	UpdateDocumentStatus(ctx context.Context, id, ownerID string, newStatus models.DocumentStatus, score *float64, wordCount, charCount *int) error
	SoftDeleteDocument(ctx context.Context, id, ownerID string) error
}

// ResultStore persists Result entities (part of StateStore).
type ResultStore interface {
	GetResultByDocument(ctx context.Context, documentID, ownerID string) (*models.Result, error)
	CreateResult(ctx context.Context, documentID, ownerID string) (*models.Result, error)
	UpdateResult(ctx context.Context, resultID, ownerID string, update ResultUpdate) error
	SoftDeleteResultByDocument(ctx context.Context, documentID, ownerID string) error
}

// ResultUpdate carries the fields UpdateResult is allowed to change. Nil
// pointers / empty slices leave the corresponding column untouched, except
// Status which is always applied.
type ResultUpdate struct {
	Status           models.ResultStatus
	Score            *float64
	Label            string
	ParagraphResults []models.ParagraphResult
	ErrorMessage     string
	AIGenerated      *bool
	HumanGenerated   *bool
	ClearScoreLabel  bool // reprocess: clear score/label instead of setting them
}

// BatchStore persists Batch entities and is consumed by BatchCoordinator.
type BatchStore interface {
	ListActiveBatches(ctx context.Context) ([]*models.Batch, error)
	DocumentStatusCounts(ctx context.Context, batchID string) (models.DocumentStatusCounts, error)
	UpdateBatchRollup(ctx context.Context, batchID string, completed, failed int, status models.BatchStatus) error
}

// UsageStatsPeriod enumerates the aggregation windows for the usage-stats
// surface.
type UsageStatsPeriod string

const (
	UsageStatsDaily   UsageStatsPeriod = "daily"
	UsageStatsWeekly  UsageStatsPeriod = "weekly"
	UsageStatsMonthly UsageStatsPeriod = "monthly"
	UsageStatsAllTime UsageStatsPeriod = "all-time"
)

// UsageStats is the response shape of the usage-stats surface.
type UsageStats struct {
	DocumentCount            int
	TotalWords               int
	TotalCharacters          int
	CurrentDocuments         int // all-time only
	DeletedDocuments         int // all-time only
	TotalProcessedDocuments  int // all-time only
}

// UsageStatsProvider aggregates document counters for reporting.
type UsageStatsProvider interface {
	UsageStats(ctx context.Context, ownerID string, period UsageStatsPeriod, targetDate time.Time) (UsageStats, error)
}

// TextExtractor extracts plain text from file bytes of a known type.
// Implementations must be safe to call from multiple goroutines.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, fileType models.FileType) (string, error)
}

// DetectionRequest is the body sent to the AI detection service.
type DetectionRequest struct {
	Text string `json:"text"`
}

// DetectionResult is one paragraph entry in a DetectionResponse.
type DetectionResult struct {
	Paragraph   string  `json:"paragraph"`
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// DetectionResponse is the AI detection service's success response shape.
type DetectionResponse struct {
	AIGenerated    bool              `json:"ai_generated"`
	HumanGenerated bool              `json:"human_generated"`
	Results        []DetectionResult `json:"results"`
}

// DetectorClient sends extracted text to the remote AI-detection endpoint.
type DetectorClient interface {
	Detect(ctx context.Context, text string) (*DetectionResponse, error)
}

// AssessmentStorageManager aggregates the SurrealDB-backed stores the
// pipeline depends on, scoped to this domain's four entities.
type AssessmentStorageManager interface {
	TaskStore() TaskStore
	DocumentStore() DocumentStore
	ResultStore() ResultStore
	BatchStore() BatchStore
	UsageStats() UsageStatsProvider
	Close() error
}
