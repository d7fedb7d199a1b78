package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/awase/internal/models"
	"github.com/hyperjump/awase/internal/pipeline"
	"github.com/hyperjump/awase/internal/vectorstore"
)

// Repair action types.
const (
	ActionReembed            = "reembed"
	ActionDeactivateMetadata = "deactivate_metadata"
	ActionRegisterMetadata   = "register_metadata"
	ActionDeleteOrphanPoints = "delete_orphan_points"
	ActionUpdateMetadataSize = "update_metadata_size"
)

// RepairAction is one planned or applied fix.
type RepairAction struct {
	Type        string `json:"type"`
	FileKey     string `json:"file_key"`
	Description string `json:"description"`
	Applied     bool   `json:"applied"`
	Error       string `json:"error,omitempty"`
}

// RepairResult lists what a repair pass would do (dry run) or did.
// Fixed and Failed count applied and failed actions; both stay zero on
// a dry run.
type RepairResult struct {
	UserID  string          `json:"user_id"`
	DryRun  bool            `json:"dry_run"`
	Fixed   int             `json:"fixed"`
	Failed  int             `json:"failed"`
	Actions []*RepairAction `json:"actions"`
}

// Repair plans one corrective action per inconsistent file and, unless
// dryRun is set, applies them. Every action is idempotent: repairing an
// already-repaired file is a no-op on the next pass.
func (r *Reconciler) Repair(ctx context.Context, userID string, dryRun bool) (*RepairResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	snap := r.takeSnapshot(ctx, userID)
	if snap.metaErr != nil || snap.blobErr != nil || snap.vectorErr != nil {
		return nil, fmt.Errorf("refusing to repair with unavailable stores: meta=%v blob=%v vector=%v",
			snap.metaErr, snap.blobErr, snap.vectorErr)
	}

	result := &RepairResult{UserID: userID, DryRun: dryRun}
	for _, rec := range snap.records() {
		action := planAction(snap, rec)
		if action == nil {
			continue
		}
		result.Actions = append(result.Actions, action)
		if dryRun {
			continue
		}
		if err := r.apply(ctx, snap, rec, action); err != nil {
			action.Error = err.Error()
			result.Failed++
			r.logger.Warn("repair action failed",
				zap.String("action", action.Type),
				zap.String("file_key", action.FileKey),
				zap.Error(err))
			continue
		}
		action.Applied = true
		result.Fixed++
		r.logger.Info("repair action applied",
			zap.String("action", action.Type),
			zap.String("file_key", action.FileKey))
	}
	return result, nil
}

func planAction(snap *snapshot, rec *models.FileSyncRecord) *RepairAction {
	switch rec.SyncStatus {
	case models.SyncStatusMissing:
		if rec.InMetadataDB && rec.InBlobStore && !rec.InVectorStore && pipeline.ShouldEmbed(rec.FileName) {
			return &RepairAction{
				Type:        ActionReembed,
				FileKey:     rec.FileKey,
				Description: "re-embed file content from blob store",
			}
		}
		if !rec.InMetadataDB && !rec.InBlobStore && rec.InVectorStore {
			return &RepairAction{
				Type:        ActionDeleteOrphanPoints,
				FileKey:     rec.FileKey,
				Description: "delete vector points with no backing file",
			}
		}
		if rec.InMetadataDB && !rec.InBlobStore {
			return &RepairAction{
				Type:        ActionDeactivateMetadata,
				FileKey:     rec.FileKey,
				Description: "deactivate metadata record whose content is gone",
			}
		}
		if !rec.InMetadataDB && rec.InBlobStore {
			return &RepairAction{
				Type:        ActionRegisterMetadata,
				FileKey:     rec.FileKey,
				Description: "register metadata record for unregistered blob",
			}
		}
	case models.SyncStatusOutOfSync:
		if rec.InVectorStore && !pipeline.ShouldEmbed(rec.FileName) {
			return &RepairAction{
				Type:        ActionDeleteOrphanPoints,
				FileKey:     rec.FileKey,
				Description: "delete vector points for non-embeddable file",
			}
		}
		if meta, ok := snap.metaRecords[rec.FileKey]; ok {
			if obj, ok := snap.blobObjects[rec.FileKey]; ok && meta.FileSize != obj.Size {
				return &RepairAction{
					Type:        ActionUpdateMetadataSize,
					FileKey:     rec.FileKey,
					Description: fmt.Sprintf("update metadata size from %d to %d bytes", meta.FileSize, obj.Size),
				}
			}
		}
	}
	return nil
}

func (r *Reconciler) apply(ctx context.Context, snap *snapshot, rec *models.FileSyncRecord, action *RepairAction) error {
	switch action.Type {
	case ActionReembed:
		data, err := r.blobs.Download(ctx, rec.FileKey)
		if err != nil {
			return fmt.Errorf("download blob: %w", err)
		}
		contentType := ""
		if meta := snap.metaRecords[rec.FileKey]; meta != nil {
			contentType = meta.ContentType
		}
		_, err = r.pipeline.EmbedFile(ctx, &pipeline.EmbedRequest{
			UserID:      rec.UserID,
			FileKey:     rec.FileKey,
			FileName:    rec.FileName,
			ContentType: contentType,
			Content:     data,
		})
		return err

	case ActionDeactivateMetadata:
		return r.meta.SetActive(ctx, rec.FileKey, false)

	case ActionRegisterMetadata:
		obj := snap.blobObjects[rec.FileKey]
		return r.meta.UpsertFile(ctx, &models.FileRecord{
			FileKey:    rec.FileKey,
			UserID:     rec.UserID,
			FileName:   rec.FileName,
			FileSize:   obj.Size,
			UploadDate: time.Now(),
			IsActive:   true,
		})

	case ActionDeleteOrphanPoints:
		return r.vectors.DeleteByFilter(ctx, vectorstore.Filter{
			UserID:   rec.UserID,
			FileName: rec.FileName,
		})

	case ActionUpdateMetadataSize:
		meta := snap.metaRecords[rec.FileKey]
		obj := snap.blobObjects[rec.FileKey]
		updated := *meta
		updated.FileSize = obj.Size
		return r.meta.UpsertFile(ctx, &updated)
	}
	return fmt.Errorf("unknown repair action: %s", action.Type)
}
