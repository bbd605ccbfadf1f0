package photoflow

import (
	"context"
	"time"
)

// Batch removal retry policy. Retries are bounded: an unprocessed remainder
// that survives the full budget surfaces as ErrBatchUnprocessed instead of
// looping forever.
const (
	batchRemoveMaxAttempts = 5
	batchRemoveBackoff     = 100 * time.Millisecond
)

// RemoveRecords deletes photo records in bulk. When the backing store
// reports a subset as unprocessed, only that subset is retried after a short
// fixed delay. The retry loop is sequential to give the store room to drain
// its own backpressure. Returns the originally requested ids on success.
func (s *service) RemoveRecords(ctx context.Context, photoIDs []string) ([]string, error) {
	if len(photoIDs) == 0 {
		return photoIDs, nil
	}

	pending := photoIDs
	for attempt := 1; attempt <= batchRemoveMaxAttempts; attempt++ {
		unprocessed, err := s.records.BatchDeleteRecords(ctx, pending)
		if err != nil {
			return nil, &RecordError{Op: "batch_delete", Err: err}
		}
		if len(unprocessed) == 0 {
			return photoIDs, nil
		}

		s.logger.Warn("retrying deletion for unprocessed records",
			"unprocessed", len(unprocessed), "attempt", attempt)

		if err := sleepContext(ctx, batchRemoveBackoff); err != nil {
			return nil, &RecordError{Op: "batch_delete", Err: err}
		}
		pending = unprocessed
	}

	return nil, &RecordError{Op: "batch_delete", Err: ErrBatchUnprocessed}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
