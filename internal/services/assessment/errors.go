package assessment

import (
	"errors"
	"fmt"
)

// outcome is what the worker does with a task after a step fails.
type outcome int

const (
	outcomeComplete outcome = iota
	outcomeDefer
	outcomeDeadLetter
)

// Sentinel errors for taxonomy entries with no extra payload.
var (
	// ErrQueueUnavailable means the TaskStore could not be reached. The
	// worker logs and sleeps, retrying next poll cycle.
	ErrQueueUnavailable = errors.New("assessment: task queue unavailable")

	// ErrDocumentMissing means a claimed task references a deleted or
	// unknown document. The task is completed silently.
	ErrDocumentMissing = errors.New("assessment: document missing")

	// ErrTransitionRejected means an illegal state transition was
	// attempted. Surfaces a bug; the task is deferred and logged loudly.
	ErrTransitionRejected = errors.New("assessment: illegal state transition")

	// ErrBlobUnavailable means the document's blob could not be
	// downloaded. Deferred with reason BLOB_FAILURE.
	ErrBlobUnavailable = errors.New("assessment: blob unavailable")

	// ErrExtractionFailed means a supported file type failed to parse (a
	// transient condition distinct from UnsupportedFileType — the extractor
	// recovered from a panic or hit a malformed document it expects might
	// parse on retry). Transient; deferred.
	ErrExtractionFailed = errors.New("assessment: text extraction failed")

	// ErrUnsupportedFileType means the extractor cannot handle this
	// document's file type. Terminal: ERROR + FAILED, task consumed.
	ErrUnsupportedFileType = errors.New("assessment: unsupported file type")

	// ErrQuotaDenied means admission control refused the document.
	// Terminal for this attempt: LIMIT_EXCEEDED + FAILED, task consumed.
	ErrQuotaDenied = errors.New("assessment: quota denied")

	// ErrPersistenceError means a state-store write failed. Transient;
	// deferred.
	ErrPersistenceError = errors.New("assessment: persistence error")
)

// AIServiceError wraps a failure from the remote AI-detection endpoint,
// whether an HTTP non-2xx response or a transport/network error. A 4xx
// response is terminal (the request itself is malformed or rejected and
// retrying won't help); anything else — 5xx or a transport error with no
// status code — is transient, deferred with the error reason, terminal only
// after max_attempts.
type AIServiceError struct {
	StatusCode int // 0 for transport errors with no HTTP response
	Err        error
}

func (e *AIServiceError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("assessment: AI service transport error: %v", e.Err)
	}
	return fmt.Sprintf("assessment: AI service returned %d: %v", e.StatusCode, e.Err)
}

func (e *AIServiceError) Unwrap() error { return e.Err }

// classify maps a step failure to the outcome the worker applies to the
// in-flight task: complete it silently, defer it for retry, or dead-letter
// it outright. Every error returned by a pipeline step must classify to
// exactly one outcome; an unrecognized error defaults to defer, since
// silently completing or dead-lettering on an unknown failure mode would
// hide it rather than surface it for an operator to see on a later attempt.
func classify(err error) outcome {
	switch {
	case err == nil:
		return outcomeComplete
	case errors.Is(err, ErrDocumentMissing):
		return outcomeComplete
	case errors.Is(err, ErrUnsupportedFileType):
		return outcomeComplete
	case errors.Is(err, ErrQuotaDenied):
		return outcomeComplete
	case errors.Is(err, ErrQueueUnavailable):
		return outcomeDefer
	case errors.Is(err, ErrTransitionRejected):
		return outcomeDefer
	case errors.Is(err, ErrBlobUnavailable):
		return outcomeDefer
	case errors.Is(err, ErrExtractionFailed):
		return outcomeDefer
	case errors.Is(err, ErrPersistenceError):
		return outcomeDefer
	default:
		var aiErr *AIServiceError
		if errors.As(err, &aiErr) {
			if aiErr.StatusCode >= 400 && aiErr.StatusCode < 500 {
				return outcomeComplete
			}
			return outcomeDefer
		}
		return outcomeDefer
	}
}
