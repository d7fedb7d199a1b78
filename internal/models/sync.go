package models

import "time"

// SyncStatus classifies one logical file's consistency across the three
// systems of record. Recomputed on every reconciliation pass, never
// persisted.
type SyncStatus string

const (
	SyncStatusSynced    SyncStatus = "SYNCED"
	SyncStatusOutOfSync SyncStatus = "OUT_OF_SYNC"
	SyncStatusMissing   SyncStatus = "MISSING"
	SyncStatusError     SyncStatus = "ERROR"
)

// FileRecord is one row in the metadata store.
type FileRecord struct {
	FileKey     string    `json:"file_key"`
	UserID      string    `json:"user_id"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	ContentType string    `json:"content_type"`
	UploadDate  time.Time `json:"upload_date"`
	IsActive    bool      `json:"is_active"`
}

// FileSyncRecord is the reconciler's view of one logical file: presence in
// each store observed independently, never inferred.
type FileSyncRecord struct {
	FileKey       string     `json:"file_key"`
	UserID        string     `json:"user_id"`
	FileName      string     `json:"file_name"`
	InMetadataDB  bool       `json:"in_metadata_db"`
	InBlobStore   bool       `json:"in_blob_store"`
	InVectorStore bool       `json:"in_vector_store"`
	SyncStatus    SyncStatus `json:"sync_status"`
	// Issues accumulates human-readable discrepancy descriptions in the
	// order they were observed.
	Issues []string `json:"issues,omitempty"`
}

// AddIssue appends a discrepancy description.
func (r *FileSyncRecord) AddIssue(issue string) {
	r.Issues = append(r.Issues, issue)
}
