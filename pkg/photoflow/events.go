package photoflow

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// ObjectCreatedEvent is the S3-style bucket notification delivered when a
// new original lands in storage. MinIO emits the same shape.
type ObjectCreatedEvent struct {
	Records []ObjectCreatedRecord `json:"Records"`
}

// ObjectCreatedRecord is one record within a bucket notification.
type ObjectCreatedRecord struct {
	EventName string `json:"eventName"`
	S3        struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key string `json:"key"`
		} `json:"object"`
	} `json:"s3"`
}

// DecodeObjectCreated parses a bucket notification and returns the storage
// keys of the created objects. Keys arrive URL-encoded with spaces as '+'.
func DecodeObjectCreated(data []byte) ([]string, error) {
	var event ObjectCreatedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("decode storage notification: %w", err)
	}
	if len(event.Records) == 0 {
		return nil, ErrEmptyEventBatch
	}

	keys := make([]string, 0, len(event.Records))
	for _, record := range event.Records {
		key, err := url.QueryUnescape(strings.ReplaceAll(record.S3.Object.Key, "+", " "))
		if err != nil {
			return nil, fmt.Errorf("decode object key %q: %w", record.S3.Object.Key, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Change-feed event names.
const (
	FeedEventInsert = "INSERT"
	FeedEventModify = "MODIFY"
	FeedEventRemove = "REMOVE"
)

// FeedEvent is one change-feed entry for the photo record table. For remove
// events OldImage carries the pre-image (last known state) of the deleted
// record; it may be absent or garbled and must be decoded defensively.
type FeedEvent struct {
	EventName string          `json:"eventName"`
	PhotoID   string          `json:"photoId,omitempty"`
	OldImage  json.RawMessage `json:"oldImage,omitempty"`
	NewImage  json.RawMessage `json:"newImage,omitempty"`
}

// DecodeOldImage decodes the event's pre-image into a structured record.
// The error result is the tagged failure case: callers are expected to skip
// the record rather than fail their whole batch.
func (e FeedEvent) DecodeOldImage() (*PhotoRecord, error) {
	if len(e.OldImage) == 0 {
		return nil, ErrNoPreImage
	}
	var record PhotoRecord
	if err := json.Unmarshal(e.OldImage, &record); err != nil {
		return nil, fmt.Errorf("decode pre-image: %w", err)
	}
	return &record, nil
}
