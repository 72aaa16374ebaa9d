package models

import "fmt"

// ErrIllegalTransition is returned when a caller requests a status change
// the entity's transition table does not permit. Illegal transitions are
// rejected here rather than trusted to caller discipline.
type ErrIllegalTransition struct {
	Entity string
	From   string
	To     string
}

func (e *ErrIllegalTransition) Error() string {
	return fmt.Sprintf("%s: illegal transition %s -> %s", e.Entity, e.From, e.To)
}

var documentTransitions = map[DocumentStatus]map[DocumentStatus]bool{
	DocumentStatusUploaded: {
		DocumentStatusQueued: true,
		DocumentStatusDeleted: true,
	},
	DocumentStatusQueued: {
		DocumentStatusProcessing: true,
		DocumentStatusDeleted:    true,
	},
	DocumentStatusProcessing: {
		DocumentStatusCompleted:     true,
		DocumentStatusError:         true,
		DocumentStatusLimitExceeded: true,
		DocumentStatusDeleted:       true,
	},
	DocumentStatusCompleted: {
		DocumentStatusQueued:  true, // reprocess
		DocumentStatusDeleted: true,
	},
	DocumentStatusError: {
		DocumentStatusQueued:  true, // manual reset / reprocess
		DocumentStatusDeleted: true,
	},
	DocumentStatusLimitExceeded: {
		DocumentStatusQueued:  true, // manual retry, subject to re-admission
		DocumentStatusDeleted: true,
	},
}

// ValidateDocumentTransition reports an ErrIllegalTransition if from->to is
// not permitted by the Document state machine.
func ValidateDocumentTransition(from, to DocumentStatus) error {
	if from == to {
		return nil
	}
	if allowed, ok := documentTransitions[from]; ok && allowed[to] {
		return nil
	}
	return &ErrIllegalTransition{Entity: "document", From: string(from), To: string(to)}
}

var resultTransitions = map[ResultStatus]map[ResultStatus]bool{
	ResultStatusPending: {
		ResultStatusProcessing: true,
		ResultStatusDeleted:    true,
	},
	ResultStatusProcessing: {
		ResultStatusCompleted: true,
		ResultStatusFailed:    true,
		ResultStatusDeleted:   true,
	},
	ResultStatusCompleted: {
		ResultStatusDeleted: true,
	},
	ResultStatusFailed: {
		ResultStatusPending: true, // reprocess
		ResultStatusDeleted: true,
	},
}

// ValidateResultTransition reports an ErrIllegalTransition if from->to is
// not permitted by the Result state machine.
func ValidateResultTransition(from, to ResultStatus) error {
	if from == to {
		return nil
	}
	if allowed, ok := resultTransitions[from]; ok && allowed[to] {
		return nil
	}
	return &ErrIllegalTransition{Entity: "result", From: string(from), To: string(to)}
}

var taskTransitions = map[TaskStatus]map[TaskStatus]bool{
	TaskStatusPending: {
		TaskStatusInProgress: true,
	},
	TaskStatusInProgress: {
		TaskStatusRetrying:   true,
		TaskStatusDeadLetter: true,
		// complete() deletes the row rather than transitioning it.
	},
	TaskStatusRetrying: {
		TaskStatusInProgress: true,
		TaskStatusDeadLetter: true,
	},
}

// ValidateTaskTransition reports an ErrIllegalTransition if from->to is not
// permitted by the Task state machine.
func ValidateTaskTransition(from, to TaskStatus) error {
	if from == to {
		return nil
	}
	if allowed, ok := taskTransitions[from]; ok && allowed[to] {
		return nil
	}
	return &ErrIllegalTransition{Entity: "task", From: string(from), To: string(to)}
}
