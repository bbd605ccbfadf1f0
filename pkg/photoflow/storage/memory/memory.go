package memory

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/galleri/photoflow/pkg/photoflow"
)

// Backend is an in-memory implementation of the photoflow.BlobStore
// interface, used by tests and local development.
type Backend struct {
	mu      sync.RWMutex
	objects map[string]storedObject
}

type storedObject struct {
	data         []byte
	contentType  string
	cacheControl string
	metadata     map[string]string
	updatedAt    time.Time
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects: make(map[string]storedObject),
	}
}

// GetUploadURL returns a pseudo presigned URL. There is no HTTP surface to
// honor it; callers upload directly instead.
func (b *Backend) GetUploadURL(ctx context.Context, objectKey string, opts photoflow.UploadURLOptions) (string, error) {
	return "memory://upload/" + objectKey, nil
}

// GetDownloadURL returns a pseudo presigned URL
func (b *Backend) GetDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	return "memory://download/" + objectKey, nil
}

// Upload stores content directly
func (b *Backend) Upload(ctx context.Context, reader io.Reader, params photoflow.UploadParams) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	contentType := params.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	b.objects[params.ObjectKey] = storedObject{
		data:         data,
		contentType:  contentType,
		cacheControl: params.CacheControl,
		metadata:     params.Metadata,
		updatedAt:    time.Now().UTC(),
	}
	return nil
}

// Download returns stored content
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[objectKey]
	if !exists {
		return nil, photoflow.ErrObjectNotFound
	}

	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// GetObjectMeta retrieves metadata for a stored object
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*photoflow.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[objectKey]
	if !exists {
		return nil, photoflow.ErrObjectNotFound
	}

	meta := &photoflow.ObjectMeta{
		Key:         objectKey,
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
		UpdatedAt:   obj.updatedAt,
		Metadata:    obj.metadata,
	}
	return meta, nil
}

// Delete deletes a stored object
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return photoflow.ErrObjectNotFound
	}

	delete(b.objects, objectKey)
	return nil
}

// Keys returns the stored object keys. Test helper.
func (b *Backend) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	return keys
}

// CacheControl returns the cache directive recorded for a key. Test helper.
func (b *Backend) CacheControl(objectKey string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.objects[objectKey].cacheControl
}
