package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/galleri/photoflow/pkg/photoflow"
)

// HTTPServer wraps the pipeline service for HTTP access
type HTTPServer struct {
	service photoflow.Service
	logger  *slog.Logger
}

// NewHTTPServer creates a new HTTP server wrapper
func NewHTTPServer(service photoflow.Service, logger *slog.Logger) *HTTPServer {
	return &HTTPServer{service: service, logger: logger}
}

// Routes sets up the HTTP routes
func (s *HTTPServer) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", s.requestUpload)
		r.Get("/photos", s.listPhotos)
		r.Get("/photos/{photoID}", s.getPhoto)
		r.Delete("/photos", s.removePhotos)
	})

	return r
}

type uploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

type uploadResponse struct {
	UploadURL string `json:"uploadUrl"`
	PhotoID   string `json:"photoId"`
}

// requestUpload issues the presigned upload credential and writes the
// provisional record. The client uploads directly to storage afterwards;
// the resize worker finishes the record once the object lands.
func (s *HTTPServer) requestUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ContentType == "" || req.Size <= 0 {
		writeError(w, http.StatusBadRequest, "contentType and size are required")
		return
	}

	photoID := strings.SplitN(uuid.NewString(), "-", 2)[0]
	extension := photoflow.ExtensionForContentType(req.ContentType)
	storageKey := photoflow.OriginalKey(photoID, extension)

	filename := req.Filename
	if filename == "" {
		filename = photoID + "." + extension
	}

	uploadURL, err := s.service.IssueUploadCredential(r.Context(), photoflow.IssueUploadCredentialRequest{
		PhotoID:     photoID,
		StorageKey:  storageKey,
		ContentType: req.ContentType,
	})
	if err != nil {
		s.logger.Error("failed to issue upload credential", "photo_id", photoID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to issue upload credential")
		return
	}

	if _, err := s.service.CreatePendingRecord(r.Context(), photoflow.CreatePendingRecordRequest{
		PhotoID:     photoID,
		Filename:    filename,
		Size:        req.Size,
		ContentType: req.ContentType,
		StorageKey:  storageKey,
	}); err != nil {
		s.logger.Error("failed to create pending record", "photo_id", photoID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create photo record")
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{UploadURL: uploadURL, PhotoID: photoID})
}

func (s *HTTPServer) getPhoto(w http.ResponseWriter, r *http.Request) {
	photoID := chi.URLParam(r, "photoID")

	record, err := s.service.GetPhoto(r.Context(), photoID)
	if err != nil {
		if errors.Is(err, photoflow.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "photo not found")
			return
		}
		s.logger.Error("failed to get photo", "photo_id", photoID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to get photo")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (s *HTTPServer) listPhotos(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.ListPhotos(r.Context())
	if err != nil {
		s.logger.Error("failed to list photos", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list photos")
		return
	}
	if records == nil {
		records = []*photoflow.PhotoRecord{}
	}

	writeJSON(w, http.StatusOK, records)
}

// removePhotos deletes the records; the storage objects follow via the
// change-feed cascade, never synchronously.
func (s *HTTPServer) removePhotos(w http.ResponseWriter, r *http.Request) {
	var photoIDs []string
	if err := json.NewDecoder(r.Body).Decode(&photoIDs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(photoIDs) == 0 {
		writeError(w, http.StatusBadRequest, "no photo ids given")
		return
	}

	removed, err := s.service.RemoveRecords(r.Context(), photoIDs)
	if err != nil {
		s.logger.Error("failed to remove photos", "count", len(photoIDs), "err", err)
		writeError(w, http.StatusInternalServerError, "failed to remove photos")
		return
	}

	writeJSON(w, http.StatusOK, removed)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
