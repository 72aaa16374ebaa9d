package models

import "time"

// FileType identifies the format of an uploaded document.
type FileType string

const (
	FileTypePDF  FileType = "PDF"
	FileTypeDOCX FileType = "DOCX"
	FileTypeTXT  FileType = "TXT"
	FileTypePNG  FileType = "PNG"
	FileTypeJPG  FileType = "JPG"
)

// DocumentStatus is the lifecycle state of an uploaded document.
type DocumentStatus string

const (
	DocumentStatusUploaded      DocumentStatus = "UPLOADED"
	DocumentStatusQueued        DocumentStatus = "QUEUED"
	DocumentStatusProcessing    DocumentStatus = "PROCESSING"
	DocumentStatusCompleted     DocumentStatus = "COMPLETED"
	DocumentStatusError         DocumentStatus = "ERROR"
	DocumentStatusLimitExceeded DocumentStatus = "LIMIT_EXCEEDED"
	DocumentStatusDeleted       DocumentStatus = "DELETED"
)

// Document is the metadata record for one uploaded file.
type Document struct {
	DocumentID       string         `json:"document_id"`
	OwnerID          string         `json:"owner_id"`
	OriginalFilename string         `json:"original_filename"`
	BlobPath         string         `json:"blob_path"`
	FileType         FileType       `json:"file_type"`
	StudentID        string         `json:"student_id,omitempty"`
	AssignmentID     string         `json:"assignment_id,omitempty"`
	BatchID          string         `json:"batch_id,omitempty"`
	Priority         int            `json:"priority"`
	Status           DocumentStatus `json:"status"`
	CharacterCount   *int           `json:"character_count,omitempty"`
	WordCount        *int           `json:"word_count,omitempty"`
	Score            *float64       `json:"score,omitempty"`
	IsDeleted        bool           `json:"is_deleted"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}
