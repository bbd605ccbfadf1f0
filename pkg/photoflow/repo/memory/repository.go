package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/galleri/photoflow/pkg/photoflow"
)

// FeedFunc receives change-feed events emitted by the repository. It stands
// in for the backing store's stream: remove events carry the pre-image of
// the deleted record.
type FeedFunc func(event photoflow.FeedEvent)

// Repository implements photoflow.RecordStore using in-memory storage.
//
// TTL semantics follow the backing store contract: a record whose deadline
// (ExpireAt while uploading, PurgeAt after soft delete) has passed is
// invisible to reads. The clock is injectable so tests can drive expiry.
type Repository struct {
	mu      sync.RWMutex
	records map[string]*photoflow.PhotoRecord
	now     func() time.Time
	feed    FeedFunc

	// unprocessed scripts BatchDeleteRecords to report a photo id as
	// unprocessed for the next n calls. Test hook.
	unprocessed map[string]int
}

// Option represents a functional option for configuring the repository
type Option func(*Repository)

// WithClock overrides the time source used for TTL visibility
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// WithFeed sets the change-feed sink
func WithFeed(feed FeedFunc) Option {
	return func(r *Repository) {
		r.feed = feed
	}
}

// New creates a new in-memory repository
func New(options ...Option) *Repository {
	r := &Repository{
		records:     make(map[string]*photoflow.PhotoRecord),
		now:         time.Now,
		unprocessed: make(map[string]int),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

func (r *Repository) CreateRecord(ctx context.Context, record *photoflow.PhotoRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Last-write-wins: retried pending-record creation just overwrites.
	recordCopy := *record
	r.records[record.PhotoID] = &recordCopy

	return nil
}

func (r *Repository) GetRecord(ctx context.Context, photoID string) (*photoflow.PhotoRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.records[photoID]
	if !exists || r.expired(record) {
		return nil, photoflow.ErrRecordNotFound
	}

	recordCopy := *record
	return &recordCopy, nil
}

func (r *Repository) ListRecords(ctx context.Context) ([]*photoflow.PhotoRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*photoflow.PhotoRecord
	for _, record := range r.records {
		if record.Status != photoflow.PhotoStatusComplete || r.expired(record) || record.DeletedAt != nil {
			continue
		}
		recordCopy := *record
		result = append(result, &recordCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

func (r *Repository) FinalizeRecord(ctx context.Context, photoID string, fin photoflow.RecordFinalization) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.records[photoID]
	if !exists || r.expired(record) {
		return photoflow.ErrRecordNotFound
	}

	metadata := fin.Metadata
	urls := make(map[string]string, len(fin.URLs))
	for k, v := range fin.URLs {
		urls[k] = v
	}

	record.Status = photoflow.PhotoStatusComplete
	record.Metadata = &metadata
	record.URLs = urls
	record.Width = fin.Width
	record.Height = fin.Height
	record.AspectRatio = fin.AspectRatio
	record.ExpireAt = nil

	return nil
}

func (r *Repository) SoftDeleteRecord(ctx context.Context, photoID string, purgeAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.records[photoID]
	if !exists || r.expired(record) {
		return photoflow.ErrRecordNotFound
	}

	now := r.now().UTC()
	record.DeletedAt = &now
	record.PurgeAt = &purgeAt

	return nil
}

func (r *Repository) BatchDeleteRecords(ctx context.Context, photoIDs []string) ([]string, error) {
	r.mu.Lock()

	var unprocessed []string
	var removed []photoflow.FeedEvent

	for _, id := range photoIDs {
		if n := r.unprocessed[id]; n > 0 {
			r.unprocessed[id] = n - 1
			unprocessed = append(unprocessed, id)
			continue
		}

		record, exists := r.records[id]
		if !exists {
			continue
		}
		delete(r.records, id)

		preImage, err := json.Marshal(record)
		if err != nil {
			continue
		}
		removed = append(removed, photoflow.FeedEvent{
			EventName: photoflow.FeedEventRemove,
			PhotoID:   id,
			OldImage:  preImage,
		})
	}

	feed := r.feed
	r.mu.Unlock()

	// Feed delivery happens outside the lock so a sink may call back in.
	if feed != nil {
		for _, event := range removed {
			feed(event)
		}
	}

	return unprocessed, nil
}

// SetFeed swaps the change-feed sink after construction.
func (r *Repository) SetFeed(feed FeedFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feed = feed
}

// ScriptUnprocessed makes the next n BatchDeleteRecords calls report the
// given photo id as unprocessed. Test hook.
func (r *Repository) ScriptUnprocessed(photoID string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unprocessed[photoID] = n
}

func (r *Repository) expired(record *photoflow.PhotoRecord) bool {
	now := r.now().UTC()
	if record.PurgeAt != nil {
		return !record.PurgeAt.After(now)
	}
	if record.ExpireAt != nil {
		return !record.ExpireAt.After(now)
	}
	return false
}
