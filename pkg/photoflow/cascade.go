package photoflow

import (
	"context"
	"sync"
)

// CleanupRemoved deletes the storage objects referenced by removed photo
// records, as reported by the change feed.
//
// The pre-image of a removed record is the only authoritative list of what
// to clean up, so objects are never deleted synchronously with the record
// itself. A record that fails to decode is logged and skipped; it must not
// fail the rest of the batch. Object deletes are concurrent and best-effort:
// an individual failure only risks an orphaned object, never correctness.
func (s *service) CleanupRemoved(ctx context.Context, events []FeedEvent) error {
	for _, event := range events {
		if event.EventName != FeedEventRemove {
			continue
		}

		record, err := event.DecodeOldImage()
		if err != nil {
			s.logger.Warn("skipping malformed feed record", "photo_id", event.PhotoID, "error", err)
			continue
		}
		if len(record.URLs) == 0 {
			s.logger.Warn("removed record references no objects", "photo_id", record.PhotoID)
			continue
		}

		s.logger.Info("removing objects for deleted record",
			"photo_id", record.PhotoID, "objects", len(record.URLs))

		var wg sync.WaitGroup
		for variant, objectKey := range record.URLs {
			wg.Add(1)
			go func(variant, objectKey string) {
				defer wg.Done()
				if err := s.blobs.Delete(ctx, objectKey); err != nil {
					s.logger.Warn("variant delete failed",
						"photo_id", record.PhotoID, "variant", variant, "key", objectKey, "error", err)
				}
			}(variant, objectKey)
		}
		wg.Wait()
	}

	return nil
}
