package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/awase/internal/extract"
	"github.com/hyperjump/awase/internal/pipeline"
	"github.com/hyperjump/awase/internal/search"
)

// maxUploadBytes caps one uploaded file.
const maxUploadBytes = 64 << 20

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req search.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request",
		zap.String("user_id", req.UserID),
		zap.String("mode", req.Mode),
		zap.Int("limit", req.Limit))

	response, err := s.search.Search(r.Context(), &req)
	if err != nil {
		if errors.Is(err, search.ErrMissingUserID) || errors.Is(err, search.ErrUnsupportedMode) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	userID := r.FormValue("user_id")
	if userID == "" {
		s.respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	s.logger.Debug("upload request",
		zap.String("user_id", userID),
		zap.String("file", header.Filename),
		zap.Int("size", len(data)))

	result, err := s.ingestor.Ingest(r.Context(), userID, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupportedFormat):
			s.respondError(w, http.StatusUnsupportedMediaType, err.Error())
		case errors.Is(err, pipeline.ErrEmptyContent):
			s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			s.logger.Error("upload failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"file_name":     header.Filename,
		"status":        result.Status,
		"chunks":        result.Chunks,
		"chunks_failed": result.ChunksFailed,
		"point_ids":     result.PointIDs,
	})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	files, err := s.meta.ListFiles(r.Context(), userID)
	if err != nil {
		s.logger.Error("list files failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"files": files, "total": len(files)})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	fileName := r.URL.Query().Get("file_name")
	if userID == "" || fileName == "" {
		s.respondError(w, http.StatusBadRequest, "user_id and file_name are required")
		return
	}
	s.logger.Debug("delete file request",
		zap.String("user_id", userID),
		zap.String("file", fileName))

	if err := s.ingestor.Delete(r.Context(), userID, fileName); err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"file_name": fileName, "status": "deleted"})
}

func (s *Server) handleSyncReport(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	report, err := s.reconciler.Report(r.Context(), userID)
	if err != nil {
		s.logger.Error("sync report failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

type repairRequest struct {
	UserID string `json:"user_id"`
	DryRun *bool  `json:"dry_run,omitempty"`
}

func (s *Server) handleSyncRepair(w http.ResponseWriter, r *http.Request) {
	var req repairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		s.respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	// Repairs mutate three stores, so planning-only is the default.
	dryRun := true
	if req.DryRun != nil {
		dryRun = *req.DryRun
	}
	s.logger.Debug("sync repair request",
		zap.String("user_id", req.UserID),
		zap.Bool("dry_run", dryRun))

	result, err := s.reconciler.Repair(r.Context(), req.UserID, dryRun)
	if err != nil {
		s.logger.Error("sync repair failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
