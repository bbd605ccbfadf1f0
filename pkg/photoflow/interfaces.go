package photoflow

import (
	"context"
	"io"
	"time"
)

// BlobStore defines the interface for storage backends
type BlobStore interface {
	// GetUploadURL returns a presigned URL for uploading a single object
	GetUploadURL(ctx context.Context, objectKey string, opts UploadURLOptions) (string, error)

	// GetDownloadURL returns a presigned URL for reading a single object
	GetDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// Upload uploads content directly
	Upload(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download downloads content directly
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// GetObjectMeta retrieves metadata for an object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)

	// Delete deletes an object
	Delete(ctx context.Context, objectKey string) error
}

// UploadURLOptions contains parameters for a presigned upload URL.
// ContentType binds the credential to the declared type; Metadata is
// attached to the object for traceability.
type UploadURLOptions struct {
	ContentType string
	Expires     time.Duration
	Metadata    map[string]string
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	ObjectKey    string
	ContentType  string
	CacheControl string
	Metadata     map[string]string
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}

// RecordStore defines the interface for photo record persistence.
//
// Implementations own the TTL mechanics: a pending record whose ExpireAt has
// passed must be invisible to reads, and FinalizeRecord must clear the TTL in
// the same update that flips the status.
type RecordStore interface {
	// CreateRecord writes a record. Re-creating the same photo id is
	// last-write-wins (the pending-record step is create-only in practice,
	// retried calls just overwrite).
	CreateRecord(ctx context.Context, record *PhotoRecord) error

	// GetRecord returns the record for a photo id, or ErrRecordNotFound
	GetRecord(ctx context.Context, photoID string) (*PhotoRecord, error)

	// ListRecords returns all completed records
	ListRecords(ctx context.Context) ([]*PhotoRecord, error)

	// FinalizeRecord applies a single atomic update: status becomes
	// complete, the derived fields are set, and the pending TTL is removed
	FinalizeRecord(ctx context.Context, photoID string, fin RecordFinalization) error

	// SoftDeleteRecord marks a record deleted and schedules its hard delete
	SoftDeleteRecord(ctx context.Context, photoID string, purgeAt time.Time) error

	// BatchDeleteRecords deletes records in bulk and returns the ids the
	// backing store reported as unprocessed
	BatchDeleteRecords(ctx context.Context, photoIDs []string) ([]string, error)
}
