package assessment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bobmcallan/assessor/internal/clients/detector"
	"github.com/bobmcallan/assessor/internal/common"
	"github.com/bobmcallan/assessor/internal/interfaces"
	"github.com/bobmcallan/assessor/internal/models"
)

// runStep executes the single-task pipeline: ensure the document and result
// rows exist, extract text, check quota, call the AI-detection endpoint, and
// advance every state machine to a terminal or retryable outcome. No error
// escapes this function — every failure is classified and converted into a
// TaskStore action before returning.
func (w *Worker) runStep(ctx context.Context, task *models.Task) {
	logger := w.logger.WithCorrelationId(task.TaskID)

	document, err := w.documents.GetDocument(ctx, task.DocumentID, task.OwnerID)
	if err != nil {
		w.finish(ctx, task, logger, wrapPersistence(err), "GET_DOCUMENT_FAILED")
		return
	}
	if document == nil {
		logger.Info().Str("document_id", task.DocumentID).Msg("Document missing, completing task silently")
		w.complete(ctx, task, logger)
		return
	}

	if err := w.reconcileDocumentForProcessing(ctx, document); err != nil {
		w.finish(ctx, task, logger, wrapPersistence(err), "DB_UPDATE_PROCESSING_FAILED")
		return
	}

	result, err := w.ensureResult(ctx, document)
	if err != nil {
		w.failDocument(ctx, document, logger, err.Error())
		w.finish(ctx, task, logger, wrapPersistence(err), "RESULT_BOOTSTRAP_FAILED")
		return
	}

	if err := w.reconcileResultForProcessing(ctx, document, result); err != nil {
		w.failDocument(ctx, document, logger, err.Error())
		w.finish(ctx, task, logger, wrapPersistence(err), "RESULT_PROCESSING_FAILED")
		return
	}

	text, wordCount, charCount, err := w.extractText(ctx, document)
	if err != nil {
		if err == ErrUnsupportedFileType {
			w.failDocument(ctx, document, logger, "unsupported file type")
			w.failResult(ctx, document, result, "unsupported file type")
			w.complete(ctx, task, logger)
			return
		}
		w.failDocument(ctx, document, logger, err.Error())
		w.finish(ctx, task, logger, err, "EXTRACTION_FAILED")
		return
	}

	// Always persist counts before the admission decision, even if the
	// document is about to be denied or fail downstream.
	if err := w.documents.UpdateDocumentStatus(ctx, document.DocumentID, document.OwnerID, models.DocumentStatusProcessing, nil, &wordCount, &charCount); err != nil {
		w.failDocument(ctx, document, logger, err.Error())
		w.finish(ctx, task, logger, wrapPersistence(err), "PERSIST_COUNTS_FAILED")
		return
	}

	decision, err := w.quota.Admit(ctx, document.OwnerID, wordCount, charCount)
	if err != nil {
		w.failDocument(ctx, document, logger, err.Error())
		w.finish(ctx, task, logger, wrapPersistence(err), "ADMIT_FAILED")
		return
	}
	if !decision.Admitted {
		w.denyDocument(ctx, document, result, decision.Reason, logger)
		w.complete(ctx, task, logger)
		return
	}

	score, label, aiGenerated, humanGenerated, paragraphs, detectErr := w.detect(ctx, text)
	if detectErr != nil {
		w.failDocument(ctx, document, logger, detectErr.Error())
		w.failResult(ctx, document, result, detectErr.Error())
		w.finish(ctx, task, logger, detectErr, "AI_DETECTION_FAILED")
		return
	}

	if err := w.results.UpdateResult(ctx, result.ResultID, document.OwnerID, interfaces.ResultUpdate{
		Status:           models.ResultStatusCompleted,
		Score:            &score,
		Label:            label,
		ParagraphResults: paragraphs,
		AIGenerated:      &aiGenerated,
		HumanGenerated:   &humanGenerated,
	}); err != nil {
		w.failDocument(ctx, document, logger, err.Error())
		w.finish(ctx, task, logger, wrapPersistence(err), "RESULT_COMPLETE_FAILED")
		return
	}

	if err := w.documents.UpdateDocumentStatus(ctx, document.DocumentID, document.OwnerID, models.DocumentStatusCompleted, &score, &wordCount, &charCount); err != nil {
		w.finish(ctx, task, logger, wrapPersistence(err), "DOCUMENT_COMPLETE_FAILED")
		return
	}

	if err := w.quota.RecordUsage(ctx, document.OwnerID, wordCount, 1); err != nil {
		logger.Warn().Err(err).Str("owner_id", document.OwnerID).Msg("Failed to record quota usage after successful completion")
	}

	w.hub.Broadcast(Event{
		Type:       EventDocumentStatusChanged,
		DocumentID: document.DocumentID,
		TaskID:     task.TaskID,
		Status:     string(models.DocumentStatusCompleted),
		Timestamp:  time.Now().UTC(),
	})

	w.complete(ctx, task, logger)
}

// reconcileDocumentForProcessing brings a claimed task's document to
// PROCESSING regardless of which state a prior attempt left it in. A task
// re-claimed after a transient failure finds its document in ERROR (the
// failure path marks it so before deferring); a task claimed in the window
// between document creation and enqueue can find it still UPLOADED. Both
// route through QUEUED first, since the transition table permits
// {UPLOADED,ERROR}->QUEUED->PROCESSING but not a direct jump.
func (w *Worker) reconcileDocumentForProcessing(ctx context.Context, document *models.Document) error {
	switch document.Status {
	case models.DocumentStatusUploaded, models.DocumentStatusError:
		if err := w.documents.UpdateDocumentStatus(ctx, document.DocumentID, document.OwnerID, models.DocumentStatusQueued, nil, nil, nil); err != nil {
			return err
		}
	}
	return w.documents.UpdateDocumentStatus(ctx, document.DocumentID, document.OwnerID, models.DocumentStatusProcessing, nil, nil, nil)
}

// reconcileResultForProcessing mirrors reconcileDocumentForProcessing for
// the Result row: a result left FAILED by a prior transient attempt routes
// through PENDING first, since the transition table permits FAILED->PENDING
// but not FAILED->PROCESSING directly.
func (w *Worker) reconcileResultForProcessing(ctx context.Context, document *models.Document, result *models.Result) error {
	if result.Status == models.ResultStatusFailed {
		if err := w.results.UpdateResult(ctx, result.ResultID, document.OwnerID, interfaces.ResultUpdate{Status: models.ResultStatusPending}); err != nil {
			return err
		}
	}
	return w.results.UpdateResult(ctx, result.ResultID, document.OwnerID, interfaces.ResultUpdate{Status: models.ResultStatusProcessing})
}

// ensureResult returns the document's active Result, creating a PENDING one
// if it does not yet exist.
func (w *Worker) ensureResult(ctx context.Context, document *models.Document) (*models.Result, error) {
	result, err := w.results.GetResultByDocument(ctx, document.DocumentID, document.OwnerID)
	if err != nil {
		return nil, wrapPersistence(err)
	}
	if result != nil {
		return result, nil
	}
	result, err = w.results.CreateResult(ctx, document.DocumentID, document.OwnerID)
	if err != nil {
		return nil, wrapPersistence(err)
	}
	return result, nil
}

// extractText downloads the document's blob and extracts plain text,
// returning its word and character counts alongside.
func (w *Worker) extractText(ctx context.Context, document *models.Document) (text string, wordCount, charCount int, err error) {
	data, err := w.blobs.Get(ctx, document.BlobPath)
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: %v", ErrBlobUnavailable, err)
	}

	text, err = w.extractor.Extract(ctx, data, document.FileType)
	if err != nil {
		if isUnsupportedFileType(err) {
			return "", 0, 0, ErrUnsupportedFileType
		}
		return "", 0, 0, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	wordCount = CountWords(text)
	charCount = utf8.RuneCountInString(text)
	return text, wordCount, charCount, nil
}

// detect maps the remote detection response (or the empty-text shortcut) to
// a score, label, classification flags and paragraph breakdown.
func (w *Worker) detect(ctx context.Context, text string) (score float64, label string, aiGenerated, humanGenerated bool, paragraphs []models.ParagraphResult, err error) {
	if strings.TrimSpace(text) == "" {
		return 0.0, models.LabelHumanWritten, false, true, []models.ParagraphResult{}, nil
	}

	resp, callErr := w.detector.Detect(ctx, text)
	if callErr != nil {
		statusCode := 0
		var apiErr *detector.APIError
		if errors.As(callErr, &apiErr) {
			statusCode = apiErr.StatusCode
		}
		return 0, "", false, false, nil, &AIServiceError{StatusCode: statusCode, Err: callErr}
	}

	paragraphs = make([]models.ParagraphResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		paragraphs = append(paragraphs, models.ParagraphResult{
			Text:        r.Paragraph,
			Label:       r.Label,
			Probability: r.Probability,
		})
	}

	switch {
	case resp.AIGenerated:
		return 1.0, models.LabelAIGenerated, true, false, paragraphs, nil
	case resp.HumanGenerated && !resp.AIGenerated:
		return 0.0, models.LabelHumanWritten, false, true, paragraphs, nil
	default:
		return 0, models.LabelUndetermined, false, false, paragraphs, nil
	}
}

// denyDocument applies the LIMIT_EXCEEDED / FAILED terminal pair for a
// quota-denied document.
func (w *Worker) denyDocument(ctx context.Context, document *models.Document, result *models.Result, reason string, logger *common.Logger) {
	if err := w.documents.UpdateDocumentStatus(ctx, document.DocumentID, document.OwnerID, models.DocumentStatusLimitExceeded, nil, nil, nil); err != nil {
		logger.Warn().Err(err).Msg("Failed to mark document LIMIT_EXCEEDED")
	}
	w.failResult(ctx, document, result, reason)
}

// failResult marks the document's Result FAILED with the given message.
func (w *Worker) failResult(ctx context.Context, document *models.Document, result *models.Result, message string) {
	if err := w.results.UpdateResult(ctx, result.ResultID, document.OwnerID, interfaces.ResultUpdate{
		Status:       models.ResultStatusFailed,
		ErrorMessage: message,
	}); err != nil {
		w.logger.Warn().Err(err).Str("result_id", result.ResultID).Msg("Failed to mark result FAILED")
	}
}

// failDocument transitions the document to ERROR, swallowing (but logging)
// any further failure — the caller is already on a failure path.
func (w *Worker) failDocument(ctx context.Context, document *models.Document, logger *common.Logger, reason string) {
	if err := w.documents.UpdateDocumentStatus(ctx, document.DocumentID, document.OwnerID, models.DocumentStatusError, nil, nil, nil); err != nil {
		logger.Warn().Err(err).Str("reason", reason).Msg("Failed to mark document ERROR")
	}
}

// complete marks the task finished, removing it from the queue.
func (w *Worker) complete(ctx context.Context, task *models.Task, logger *common.Logger) {
	if err := w.tasks.Complete(ctx, task.TaskID); err != nil {
		logger.Warn().Err(err).Msg("Failed to complete task")
	}
}

// finish classifies err and applies the corresponding TaskStore action:
// complete (task consumed, terminal document/result state already applied),
// defer (retry with backoff), or — once attempts exceed the budget —
// dead-letter. classify itself only ever returns complete or defer; the
// defer path below escalates to dead-letter once ExceedsMaxAttempts is true:
// a task is dead-lettered iff its attempts exceed max_attempts at claim or
// at defer time.
func (w *Worker) finish(ctx context.Context, task *models.Task, logger *common.Logger, err error, reason string) {
	switch classify(err) {
	case outcomeComplete:
		w.complete(ctx, task, logger)
	default:
		if task.ExceedsMaxAttempts() {
			if dlErr := w.tasks.DeadLetter(ctx, task.TaskID, reason); dlErr != nil {
				logger.Warn().Err(dlErr).Msg("Failed to dead-letter task")
			}
			return
		}
		delay := models.BackoffDelay(task.Attempts, w.config.BackoffBase, w.config.BackoffCap)
		if defErr := w.tasks.Defer(ctx, task.TaskID, delay, reason); defErr != nil {
			logger.Warn().Err(defErr).Msg("Failed to defer task")
		}
	}
}

func wrapPersistence(err error) error {
	return fmt.Errorf("%w: %v", ErrPersistenceError, err)
}

// isUnsupportedFileType reports whether err originated from an extractor
// rejecting a file type it cannot handle.
func isUnsupportedFileType(err error) bool {
	return errors.Is(err, ErrUnsupportedFileType)
}
