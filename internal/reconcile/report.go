package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/awase/internal/models"
)

// StorageCounts are raw per-store totals for one user.
type StorageCounts struct {
	MetadataFiles int `json:"metadata_files"`
	BlobObjects   int `json:"blob_objects"`
	VectorFiles   int `json:"vector_files"`
	VectorPoints  int `json:"vector_points"`
}

// Report is the result of one reconciliation pass for one user.
type Report struct {
	UserID          string                    `json:"user_id"`
	GeneratedAt     time.Time                 `json:"generated_at"`
	Summary         map[models.SyncStatus]int `json:"summary"`
	StorageCounts   StorageCounts             `json:"storage_counts"`
	Records         []*models.FileSyncRecord  `json:"records"`
	Recommendations []string                  `json:"recommendations,omitempty"`
}

// Report runs one reconciliation pass and classifies every logical file
// observed in at least one store.
func (r *Reconciler) Report(ctx context.Context, userID string) (*Report, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	snap := r.takeSnapshot(ctx, userID)
	records := snap.records()

	report := &Report{
		UserID:      userID,
		GeneratedAt: time.Now(),
		Summary:     make(map[models.SyncStatus]int),
		StorageCounts: StorageCounts{
			MetadataFiles: len(snap.metaRecords),
			BlobObjects:   len(snap.blobObjects),
			VectorFiles:   len(snap.vectorFiles),
			VectorPoints:  snap.vectorPoints,
		},
		Records: records,
	}
	for _, rec := range records {
		report.Summary[rec.SyncStatus]++
	}
	report.Recommendations = recommendations(report)

	r.logger.Info("reconciliation report",
		zap.String("user_id", userID),
		zap.Int("files", len(records)),
		zap.Int("synced", report.Summary[models.SyncStatusSynced]),
		zap.Int("out_of_sync", report.Summary[models.SyncStatusOutOfSync]),
		zap.Int("missing", report.Summary[models.SyncStatusMissing]),
		zap.Int("error", report.Summary[models.SyncStatusError]))
	return report, nil
}

func recommendations(report *Report) []string {
	var recs []string
	if n := report.Summary[models.SyncStatusError]; n > 0 {
		recs = append(recs, "one or more stores could not be listed; re-run after restoring connectivity")
		return recs
	}
	if n := report.Summary[models.SyncStatusOutOfSync]; n > 0 {
		recs = append(recs, fmt.Sprintf("%d file(s) out of sync; run repair to re-embed or clean up", n))
	}
	if n := report.Summary[models.SyncStatusMissing]; n > 0 {
		recs = append(recs, fmt.Sprintf("%d file(s) missing from a required store; run repair to re-embed, deactivate or re-register", n))
	}
	if len(recs) == 0 && len(report.Records) > 0 {
		recs = append(recs, "all files consistent")
	}
	return recs
}
