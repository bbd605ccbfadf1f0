package photoflow

import (
	"context"
	"time"
)

// Upload coordination: credential issuance and pending record creation. The
// two operations are independent; the API layer sequences them.

func (s *service) IssueUploadCredential(ctx context.Context, req IssueUploadCredentialRequest) (string, error) {
	opts := UploadURLOptions{
		ContentType: req.ContentType,
		Expires:     UploadCredentialTTL,
		Metadata: map[string]string{
			"photo-id":    req.PhotoID,
			"upload-date": s.now().UTC().Format(time.RFC3339),
		},
	}

	url, err := s.blobs.GetUploadURL(ctx, req.StorageKey, opts)
	if err != nil {
		return "", &StorageError{Key: req.StorageKey, Op: "presign_put", Err: err}
	}

	return url, nil
}

func (s *service) IssueReadCredential(ctx context.Context, objectKey string) (string, error) {
	url, err := s.blobs.GetDownloadURL(ctx, objectKey, ReadCredentialTTL)
	if err != nil {
		return "", &StorageError{Key: objectKey, Op: "presign_get", Err: err}
	}

	return url, nil
}

func (s *service) CreatePendingRecord(ctx context.Context, req CreatePendingRecordRequest) (*PhotoRecord, error) {
	now := s.now().UTC()
	expireAt := now.Add(s.pendingTTL)

	record := &PhotoRecord{
		PhotoID:          req.PhotoID,
		OriginalFilename: req.Filename,
		Size:             req.Size,
		ContentType:      req.ContentType,
		Status:           PhotoStatusUploading,
		StorageKey:       req.StorageKey,
		CreatedAt:        now,
		ExpireAt:         &expireAt,
	}

	if err := s.records.CreateRecord(ctx, record); err != nil {
		return nil, &RecordError{PhotoID: req.PhotoID, Op: "create_pending", Err: err}
	}

	return record, nil
}

func (s *service) GetPhoto(ctx context.Context, photoID string) (*PhotoRecord, error) {
	return s.records.GetRecord(ctx, photoID)
}

func (s *service) ListPhotos(ctx context.Context) ([]*PhotoRecord, error) {
	return s.records.ListRecords(ctx)
}

func (s *service) SoftDeletePhoto(ctx context.Context, photoID string) error {
	purgeAt := s.now().UTC().Add(PurgeDelay)
	if err := s.records.SoftDeleteRecord(ctx, photoID, purgeAt); err != nil {
		return &RecordError{PhotoID: photoID, Op: "soft_delete", Err: err}
	}
	return nil
}
