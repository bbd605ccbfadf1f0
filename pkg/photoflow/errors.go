package photoflow

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrRecordNotFound indicates a photo record was not found (or has
	// expired past its TTL and is no longer visible)
	ErrRecordNotFound = errors.New("photo record not found")

	// ErrObjectNotFound indicates a storage object was not found
	ErrObjectNotFound = errors.New("object not found")

	// ErrMissingContentType indicates a storage object carries no content type
	ErrMissingContentType = errors.New("object has no content type")

	// ErrUnparseableKey indicates a photo id could not be extracted from a
	// storage key
	ErrUnparseableKey = errors.New("cannot extract photo id from storage key")

	// ErrBatchUnprocessed indicates a batch delete still had unprocessed
	// records after the retry budget was exhausted
	ErrBatchUnprocessed = errors.New("batch delete retries exhausted with unprocessed records")

	// ErrNoPreImage indicates a change-feed remove event carries no usable
	// pre-image of the removed record
	ErrNoPreImage = errors.New("change-feed event carries no pre-image")

	// ErrEmptyEventBatch indicates a storage notification contained no records
	ErrEmptyEventBatch = errors.New("storage notification contains no records")
)

// PipelineError represents an error in one resize-pipeline invocation
type PipelineError struct {
	PhotoID string
	Op      string
	Err     error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("resize pipeline %s failed for photo %q: %v", e.Op, e.PhotoID, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// RecordError represents an error related to photo record operations
type RecordError struct {
	PhotoID string
	Op      string
	Err     error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record operation %s failed for photo %q: %v", e.Op, e.PhotoID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to storage operations
type StorageError struct {
	Key string
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
