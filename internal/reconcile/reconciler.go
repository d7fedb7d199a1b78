// Package reconcile compares the three systems of record for a user's
// files (metadata registry, blob store, vector index) and classifies each
// logical file's consistency.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/awase/internal/blob"
	"github.com/hyperjump/awase/internal/models"
	"github.com/hyperjump/awase/internal/pipeline"
	"github.com/hyperjump/awase/internal/vectorstore"
)

// MetadataStore is the slice of the metadata registry the reconciler needs.
type MetadataStore interface {
	ListFiles(ctx context.Context, userID string) ([]*models.FileRecord, error)
	UpsertFile(ctx context.Context, rec *models.FileRecord) error
	SetActive(ctx context.Context, fileKey string, active bool) error
}

// Reconciler inspects the three stores. It never repairs on its own;
// Repair is a separate, explicitly invoked step.
type Reconciler struct {
	meta     MetadataStore
	blobs    blob.Store
	vectors  vectorstore.VectorStore
	pipeline *pipeline.Pipeline
	logger   *zap.Logger
}

// New creates a Reconciler.
func New(meta MetadataStore, blobs blob.Store, vectors vectorstore.VectorStore, p *pipeline.Pipeline, logger *zap.Logger) *Reconciler {
	return &Reconciler{meta: meta, blobs: blobs, vectors: vectors, pipeline: p, logger: logger}
}

// vectorPresence summarizes a logical file's points in the index.
type vectorPresence struct {
	points int
}

// snapshot holds one consistent-enough observation of all three stores.
// Listings run independently; a store's failure is recorded, not fatal,
// so the report can still describe the stores that answered.
type snapshot struct {
	userID string

	metaRecords map[string]*models.FileRecord // file key -> record
	blobObjects map[string]blob.Object        // file key -> object
	vectorFiles map[string]*vectorPresence    // file key -> presence
	vectorPoints int

	metaErr   error
	blobErr   error
	vectorErr error
}

func (r *Reconciler) takeSnapshot(ctx context.Context, userID string) *snapshot {
	snap := &snapshot{
		userID:      userID,
		metaRecords: make(map[string]*models.FileRecord),
		blobObjects: make(map[string]blob.Object),
		vectorFiles: make(map[string]*vectorPresence),
	}

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		records, err := r.meta.ListFiles(ctx, userID)
		if err != nil {
			snap.metaErr = err
			return
		}
		for _, rec := range records {
			snap.metaRecords[rec.FileKey] = rec
		}
	}()

	go func() {
		defer wg.Done()
		objects, err := r.blobs.List(ctx, userID+"/")
		if err != nil {
			snap.blobErr = err
			return
		}
		for _, obj := range objects {
			snap.blobObjects[obj.Key] = obj
		}
	}()

	go func() {
		defer wg.Done()
		docs, err := r.vectors.ListByUser(ctx, userID, 0)
		if err != nil {
			snap.vectorErr = err
			return
		}
		snap.vectorPoints = len(docs)
		// Chunks regroup under their parent file: any chunk counts as
		// presence of the logical file.
		for _, doc := range docs {
			key := logicalFileKey(userID, doc)
			if key == "" {
				continue
			}
			if snap.vectorFiles[key] == nil {
				snap.vectorFiles[key] = &vectorPresence{}
			}
			snap.vectorFiles[key].points++
		}
	}()

	wg.Wait()
	return snap
}

// logicalFileKey maps one vector point back to its file key.
func logicalFileKey(userID string, doc *models.VectorDocument) string {
	chunk := doc.Chunk()
	if chunk.IsChunk {
		if chunk.ParentKey != "" {
			return chunk.ParentKey
		}
		if chunk.ParentFile != "" {
			return pipeline.FileKey(userID, chunk.ParentFile)
		}
		return ""
	}
	if doc.Source != "" {
		return doc.Source
	}
	if doc.FileName != "" {
		return pipeline.FileKey(userID, doc.FileName)
	}
	return ""
}

// records classifies every logical file seen in at least one store.
func (s *snapshot) records() []*models.FileSyncRecord {
	keys := make(map[string]struct{})
	for k := range s.metaRecords {
		keys[k] = struct{}{}
	}
	for k := range s.blobObjects {
		keys[k] = struct{}{}
	}
	for k := range s.vectorFiles {
		keys[k] = struct{}{}
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	records := make([]*models.FileSyncRecord, 0, len(sorted))
	for _, key := range sorted {
		records = append(records, s.classify(key))
	}
	return records
}

func (s *snapshot) classify(fileKey string) *models.FileSyncRecord {
	rec := &models.FileSyncRecord{
		FileKey:  fileKey,
		UserID:   s.userID,
		FileName: fileNameFromKey(fileKey),
	}
	if meta := s.metaRecords[fileKey]; meta != nil {
		rec.InMetadataDB = true
		rec.FileName = meta.FileName
	}
	_, rec.InBlobStore = s.blobObjects[fileKey]
	_, rec.InVectorStore = s.vectorFiles[fileKey]

	// A store we could not list contributes no presence information, so
	// any classification would be a guess.
	if s.metaErr != nil || s.blobErr != nil || s.vectorErr != nil {
		rec.SyncStatus = models.SyncStatusError
		if s.metaErr != nil {
			rec.AddIssue(fmt.Sprintf("metadata store unavailable: %v", s.metaErr))
		}
		if s.blobErr != nil {
			rec.AddIssue(fmt.Sprintf("blob store unavailable: %v", s.blobErr))
		}
		if s.vectorErr != nil {
			rec.AddIssue(fmt.Sprintf("vector store unavailable: %v", s.vectorErr))
		}
		return rec
	}

	// Presence first: a file without content or registration is MISSING
	// regardless of any vector points.
	if !rec.InMetadataDB || !rec.InBlobStore {
		rec.SyncStatus = models.SyncStatusMissing
		if !rec.InMetadataDB {
			rec.AddIssue("not registered in metadata store")
		}
		if !rec.InBlobStore {
			rec.AddIssue("file content missing from blob store")
		}
		if rec.InVectorStore && !rec.InMetadataDB && !rec.InBlobStore {
			rec.AddIssue("orphaned vector points")
		}
		return rec
	}

	// Then the vector side, but only for files that should be embedded.
	// A registered file with content but no points is missing its
	// required presence, not merely out of sync.
	if pipeline.ShouldEmbed(rec.FileName) {
		if !rec.InVectorStore {
			rec.SyncStatus = models.SyncStatusMissing
			rec.AddIssue("missing from vector store (should be embedded)")
			return rec
		}
	} else if rec.InVectorStore {
		rec.SyncStatus = models.SyncStatusOutOfSync
		rec.AddIssue("unexpected vector points for non-embeddable file")
		return rec
	}

	// Then content agreement between registry and blob.
	meta := s.metaRecords[fileKey]
	obj := s.blobObjects[fileKey]
	if meta.FileSize != obj.Size {
		rec.SyncStatus = models.SyncStatusOutOfSync
		rec.AddIssue(fmt.Sprintf("size mismatch: metadata %d bytes, blob %d bytes", meta.FileSize, obj.Size))
		return rec
	}

	rec.SyncStatus = models.SyncStatusSynced
	return rec
}

func fileNameFromKey(fileKey string) string {
	if i := strings.LastIndex(fileKey, "/"); i >= 0 {
		return fileKey[i+1:]
	}
	return fileKey
}
