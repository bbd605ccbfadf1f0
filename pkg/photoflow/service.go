package photoflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Durations governing credentials and record lifecycles.
const (
	// UploadCredentialTTL bounds how long an issued upload credential stays
	// valid.
	UploadCredentialTTL = time.Hour

	// ReadCredentialTTL bounds short-lived read credentials handed to the
	// image proxy.
	ReadCredentialTTL = 30 * time.Second

	// PendingRecordTTL is how long an uploading record survives before the
	// backing store removes it on its own.
	PendingRecordTTL = 15 * time.Minute

	// PurgeDelay is how long a soft-deleted record lingers before its
	// scheduled hard delete.
	PurgeDelay = 30 * 24 * time.Hour
)

// derivedCacheControl is attached to every derived object. Safe to cache
// this hard because variant keys are derived from the photo id and never
// overwritten in place.
const derivedCacheControl = "public, max-age=31536000, immutable"

// Service is the photo ingestion pipeline: presigned-upload handshake,
// event-triggered variant derivation, and the two-phase deletion cascade.
type Service interface {
	// IssueUploadCredential returns a write-only, time-boxed URL scoped to
	// exactly one storage key, bound to the declared content type
	IssueUploadCredential(ctx context.Context, req IssueUploadCredentialRequest) (string, error)

	// IssueReadCredential returns a short-lived read URL for one object
	IssueReadCredential(ctx context.Context, objectKey string) (string, error)

	// CreatePendingRecord writes a provisional, self-expiring photo record
	CreatePendingRecord(ctx context.Context, req CreatePendingRecordRequest) (*PhotoRecord, error)

	// GetPhoto returns one photo record
	GetPhoto(ctx context.Context, photoID string) (*PhotoRecord, error)

	// ListPhotos returns all completed photo records
	ListPhotos(ctx context.Context) ([]*PhotoRecord, error)

	// ProcessOriginal runs one resize-pipeline invocation for a newly
	// created original object and returns the finalized record
	ProcessOriginal(ctx context.Context, storageKey string) (*PhotoRecord, error)

	// SoftDeletePhoto marks a record deleted and schedules its hard delete
	SoftDeletePhoto(ctx context.Context, photoID string) error

	// RemoveRecords deletes photo records in bulk, retrying unprocessed
	// remainders with backoff
	RemoveRecords(ctx context.Context, photoIDs []string) ([]string, error)

	// CleanupRemoved deletes the storage objects referenced by removed
	// records, as reported by the change feed
	CleanupRemoved(ctx context.Context, events []FeedEvent) error
}

// service implements the Service interface
type service struct {
	records    RecordStore
	blobs      BlobStore
	logger     *slog.Logger
	now        func() time.Time
	pendingTTL time.Duration
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRecordStore sets the photo record store
func WithRecordStore(store RecordStore) Option {
	return func(s *service) {
		s.records = store
	}
}

// WithBlobStore sets the storage backend
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobs = store
	}
}

// WithLogger sets the logger used for operational events
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithClock overrides the time source. Used by tests to drive TTL behavior.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithPendingTTL overrides how long a pending record lives before expiry
func WithPendingTTL(ttl time.Duration) Option {
	return func(s *service) {
		s.pendingTTL = ttl
	}
}

// New creates a new pipeline service with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		logger:     slog.Default(),
		now:        time.Now,
		pendingTTL: PendingRecordTTL,
	}

	for _, option := range options {
		option(s)
	}

	if s.records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if s.blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}

	return s, nil
}
