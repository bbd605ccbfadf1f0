package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galleri/photoflow/pkg/photoflow"
	memoryrepo "github.com/galleri/photoflow/pkg/photoflow/repo/memory"
	memorystorage "github.com/galleri/photoflow/pkg/photoflow/storage/memory"
)

func newTestServer(t *testing.T) (http.Handler, photoflow.Service, *memoryrepo.Repository) {
	t.Helper()

	records := memoryrepo.New()
	svc, err := photoflow.New(
		photoflow.WithRecordStore(records),
		photoflow.WithBlobStore(memorystorage.New()),
		photoflow.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	server := NewHTTPServer(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return server.Routes(), svc, records
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	handler, _, _ := newTestServer(t)

	rec := doRequest(t, handler, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestUpload(t *testing.T) {
	handler, svc, _ := newTestServer(t)

	rec := doRequest(t, handler, http.MethodPost, "/api/upload", uploadRequest{
		Filename:    "vacation.jpg",
		ContentType: "image/jpeg",
		Size:        123456,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	// The photo id is the first segment of a uuid: 8 hex chars.
	assert.Len(t, resp.PhotoID, 8)
	assert.True(t, strings.HasPrefix(resp.UploadURL, "memory://upload/original/"))
	assert.Contains(t, resp.UploadURL, resp.PhotoID)

	record, err := svc.GetPhoto(context.Background(), resp.PhotoID)
	require.NoError(t, err)
	assert.Equal(t, photoflow.PhotoStatusUploading, record.Status)
	assert.Equal(t, "vacation.jpg", record.OriginalFilename)
	assert.Equal(t, photoflow.OriginalKey(resp.PhotoID, "jpg"), record.StorageKey)
	assert.NotNil(t, record.ExpireAt)
}

func TestRequestUploadValidation(t *testing.T) {
	handler, _, _ := newTestServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"missing content type", uploadRequest{Filename: "a.jpg", Size: 10}},
		{"zero size", uploadRequest{Filename: "a.jpg", ContentType: "image/jpeg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, handler, http.MethodPost, "/api/upload", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("{broken"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPhoto(t *testing.T) {
	handler, svc, records := newTestServer(t)

	_, err := svc.CreatePendingRecord(context.Background(), photoflow.CreatePendingRecordRequest{
		PhotoID:     "ab12cd34",
		Filename:    "vacation.jpg",
		ContentType: "image/jpeg",
		StorageKey:  "original/ab12cd34.jpg",
	})
	require.NoError(t, err)
	require.NoError(t, records.FinalizeRecord(context.Background(), "ab12cd34", photoflow.RecordFinalization{
		URLs: map[string]string{"original": "original/ab12cd34.jpg"},
	}))

	rec := doRequest(t, handler, http.MethodGet, "/api/photos/ab12cd34", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var record photoflow.PhotoRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, "ab12cd34", record.PhotoID)
	assert.Equal(t, photoflow.PhotoStatusComplete, record.Status)

	rec = doRequest(t, handler, http.MethodGet, "/api/photos/missing1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListPhotos(t *testing.T) {
	handler, svc, records := newTestServer(t)

	// Empty store serializes as an empty array, not null.
	rec := doRequest(t, handler, http.MethodGet, "/api/photos", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	_, err := svc.CreatePendingRecord(context.Background(), photoflow.CreatePendingRecordRequest{
		PhotoID:     "ab12cd34",
		Filename:    "vacation.jpg",
		ContentType: "image/jpeg",
		StorageKey:  "original/ab12cd34.jpg",
	})
	require.NoError(t, err)
	require.NoError(t, records.FinalizeRecord(context.Background(), "ab12cd34", photoflow.RecordFinalization{
		URLs: map[string]string{"original": "original/ab12cd34.jpg"},
	}))

	rec = doRequest(t, handler, http.MethodGet, "/api/photos", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listed []photoflow.PhotoRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "ab12cd34", listed[0].PhotoID)
}

func TestRemovePhotos(t *testing.T) {
	handler, svc, _ := newTestServer(t)

	for _, id := range []string{"a1b2c3d4", "e5f6a7b8"} {
		_, err := svc.CreatePendingRecord(context.Background(), photoflow.CreatePendingRecordRequest{
			PhotoID:     id,
			Filename:    id + ".jpg",
			ContentType: "image/jpeg",
			StorageKey:  photoflow.OriginalKey(id, "jpg"),
		})
		require.NoError(t, err)
	}

	rec := doRequest(t, handler, http.MethodDelete, "/api/photos", []string{"a1b2c3d4", "e5f6a7b8"})
	require.Equal(t, http.StatusOK, rec.Code)

	var removed []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &removed))
	assert.Equal(t, []string{"a1b2c3d4", "e5f6a7b8"}, removed)

	_, err := svc.GetPhoto(context.Background(), "a1b2c3d4")
	assert.Error(t, err)
}

func TestRemovePhotosValidation(t *testing.T) {
	handler, _, _ := newTestServer(t)

	rec := doRequest(t, handler, http.MethodDelete, "/api/photos", []string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
