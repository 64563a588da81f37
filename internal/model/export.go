package model

import "time"

const (
	ExportStatusPending   = "pending"
	ExportStatusUploading = "uploading"
	ExportStatusCompleted = "completed"
	ExportStatusFailed    = "failed"
)

// Export is an encrypted data archive uploaded to object storage.
type Export struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	ObjectKey    string     `json:"object_key"`
	SizeBytes    int64      `json:"size_bytes"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CompletedAt  *time.Time `json:"completed_at"`
	CreatedAt    time.Time  `json:"created_at"`
}
