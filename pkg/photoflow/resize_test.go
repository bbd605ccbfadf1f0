package photoflow_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galleri/photoflow/pkg/photoflow"
)

// seedOriginal uploads a rendered JPEG and creates its pending record.
func seedOriginal(t *testing.T, env *testEnv, photoID string, width, height int) string {
	t.Helper()

	key := photoflow.OriginalKey(photoID, "jpg")
	data := makeJPEG(t, width, height)

	err := env.blobs.Upload(context.Background(), bytes.NewReader(data), photoflow.UploadParams{
		ObjectKey:   key,
		ContentType: "image/jpeg",
	})
	require.NoError(t, err)

	_, err = env.service.CreatePendingRecord(context.Background(), photoflow.CreatePendingRecordRequest{
		PhotoID:     photoID,
		Filename:    photoID + ".jpg",
		Size:        int64(len(data)),
		ContentType: "image/jpeg",
		StorageKey:  key,
	})
	require.NoError(t, err)

	return key
}

func TestProcessOriginal(t *testing.T) {
	env := setupTestService(t)
	key := seedOriginal(t, env, "ab12cd34", 1200, 800)

	record, err := env.service.ProcessOriginal(context.Background(), key)
	require.NoError(t, err)

	assert.Equal(t, photoflow.PhotoStatusComplete, record.Status)
	assert.Nil(t, record.ExpireAt)
	assert.Equal(t, 1200, record.Width)
	assert.Equal(t, 800, record.Height)
	assert.InDelta(t, 1.5, record.AspectRatio, 0.0001)

	require.NotNil(t, record.Metadata)
	assert.Equal(t, "jpeg", record.Metadata.Format)
	assert.Equal(t, 1200, record.Metadata.Width)
	assert.Equal(t, 800, record.Metadata.Height)

	// The urls map covers every variant plus the untouched original.
	wantKeys := append([]string{photoflow.VariantOriginal}, photoflow.VariantNames()...)
	require.Len(t, record.URLs, len(wantKeys))
	for _, name := range wantKeys {
		assert.Contains(t, record.URLs, name)
	}
	assert.Equal(t, key, record.URLs[photoflow.VariantOriginal])
	assert.Equal(t, "thumb/ab12cd34.jpg", record.URLs["thumb"])

	// Cover crops to exactly the target box.
	w, h := decodeDims(t, env.blobs, record.URLs["thumb"])
	assert.Equal(t, 200, w)
	assert.Equal(t, 200, h)

	// Inside variants fit the box while keeping aspect ratio.
	w, h = decodeDims(t, env.blobs, record.URLs["sm"])
	assert.Equal(t, 400, w)
	assert.Equal(t, 266, h)

	w, h = decodeDims(t, env.blobs, record.URLs["md"])
	assert.Equal(t, 800, w)
	assert.Equal(t, 533, h)

	// Inside never upscales past the source.
	for _, name := range []string{"lg", "display", "full"} {
		w, h = decodeDims(t, env.blobs, record.URLs[name])
		assert.Equal(t, 1200, w, name)
		assert.Equal(t, 800, h, name)
	}

	// Derived objects carry the immutable cache directive; the original
	// does not.
	for _, name := range photoflow.VariantNames() {
		assert.Equal(t, "public, max-age=31536000, immutable", env.blobs.CacheControl(record.URLs[name]), name)
	}
	assert.Empty(t, env.blobs.CacheControl(key))
}

func TestProcessOriginalPortrait(t *testing.T) {
	env := setupTestService(t)
	key := seedOriginal(t, env, "ef56gh78", 600, 900)

	record, err := env.service.ProcessOriginal(context.Background(), key)
	require.NoError(t, err)

	assert.Equal(t, 600, record.Width)
	assert.Equal(t, 900, record.Height)
	assert.InDelta(t, 600.0/900.0, record.AspectRatio, 0.0001)

	w, h := decodeDims(t, env.blobs, record.URLs["thumb"])
	assert.Equal(t, 200, w)
	assert.Equal(t, 200, h)

	w, h = decodeDims(t, env.blobs, record.URLs["sm"])
	assert.Equal(t, 266, w)
	assert.Equal(t, 400, h)
}

func TestProcessOriginalIsRepeatable(t *testing.T) {
	env := setupTestService(t)
	key := seedOriginal(t, env, "ab12cd34", 1200, 800)

	first, err := env.service.ProcessOriginal(context.Background(), key)
	require.NoError(t, err)

	// Redelivered events replay the whole invocation and converge on the
	// same record state.
	second, err := env.service.ProcessOriginal(context.Background(), key)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.URLs, second.URLs)
	assert.Equal(t, first.Width, second.Width)
	assert.Equal(t, first.Height, second.Height)
}

func TestProcessOriginalMissingObject(t *testing.T) {
	env := setupTestService(t)

	_, err := env.service.ProcessOriginal(context.Background(), "original/ab12cd34.jpg")
	require.Error(t, err)

	var pipelineErr *photoflow.PipelineError
	require.True(t, errors.As(err, &pipelineErr))
	assert.Equal(t, "fetch", pipelineErr.Op)
	assert.True(t, errors.Is(err, photoflow.ErrObjectNotFound))
}

func TestProcessOriginalUnparseableKey(t *testing.T) {
	env := setupTestService(t)

	_, err := env.service.ProcessOriginal(context.Background(), "original/.jpg")
	require.Error(t, err)

	var pipelineErr *photoflow.PipelineError
	require.True(t, errors.As(err, &pipelineErr))
	assert.Equal(t, "identify", pipelineErr.Op)
	assert.True(t, errors.Is(err, photoflow.ErrUnparseableKey))
}

func TestProcessOriginalCorruptImage(t *testing.T) {
	env := setupTestService(t)

	key := photoflow.OriginalKey("ab12cd34", "jpg")
	err := env.blobs.Upload(context.Background(), bytes.NewReader([]byte("not an image")), photoflow.UploadParams{
		ObjectKey:   key,
		ContentType: "image/jpeg",
	})
	require.NoError(t, err)

	_, err = env.service.ProcessOriginal(context.Background(), key)
	require.Error(t, err)

	var pipelineErr *photoflow.PipelineError
	require.True(t, errors.As(err, &pipelineErr))
	assert.Equal(t, "decode", pipelineErr.Op)

	// The pending record, if any, is never finalized.
	_, err = env.service.GetPhoto(context.Background(), "ab12cd34")
	assert.True(t, errors.Is(err, photoflow.ErrRecordNotFound))
}

// minimalWebP is a 1x1 lossy WebP (RIFF/VP8 keyframe), small enough to
// inline.
var minimalWebP = []byte{
	0x52, 0x49, 0x46, 0x46, 0x24, 0x00, 0x00, 0x00, // RIFF, size 36
	0x57, 0x45, 0x42, 0x50, 0x56, 0x50, 0x38, 0x20, // WEBP, "VP8 "
	0x18, 0x00, 0x00, 0x00, 0x30, 0x01, 0x00, 0x9D,
	0x01, 0x2A, 0x01, 0x00, 0x01, 0x00, 0x02, 0x00,
	0x34, 0x25, 0xA4, 0x00, 0x03, 0x70, 0x00, 0xFE,
	0xFB, 0xFD, 0x50, 0x00,
}

func TestProcessOriginalWebP(t *testing.T) {
	env := setupTestService(t)
	key := photoflow.OriginalKey("webp0001", "webp")

	err := env.blobs.Upload(context.Background(), bytes.NewReader(minimalWebP), photoflow.UploadParams{
		ObjectKey:   key,
		ContentType: "image/webp",
	})
	require.NoError(t, err)

	_, err = env.service.CreatePendingRecord(context.Background(), photoflow.CreatePendingRecordRequest{
		PhotoID:     "webp0001",
		Filename:    "sticker.webp",
		Size:        int64(len(minimalWebP)),
		ContentType: "image/webp",
		StorageKey:  key,
	})
	require.NoError(t, err)

	record, err := env.service.ProcessOriginal(context.Background(), key)
	require.NoError(t, err)

	assert.Equal(t, photoflow.PhotoStatusComplete, record.Status)
	assert.Equal(t, 1, record.Width)
	assert.Equal(t, 1, record.Height)
	require.NotNil(t, record.Metadata)
	assert.Equal(t, "webp", record.Metadata.Format)

	// Variant keys carry the source extension; the bytes behind them are
	// JPEG renditions.
	assert.Equal(t, "thumb/webp0001.webp", record.URLs["thumb"])
	w, h := decodeDims(t, env.blobs, record.URLs["thumb"])
	assert.Equal(t, 200, w)
	assert.Equal(t, 200, h)
}

// exifApp1 builds an APP1 segment whose TIFF block carries only the
// orientation tag.
func exifApp1(orientation uint16) []byte {
	tiff := []byte{
		'I', 'I', 0x2A, 0x00, // little-endian TIFF header
		0x08, 0x00, 0x00, 0x00, // IFD0 at offset 8
		0x01, 0x00, // one entry
		0x12, 0x01, // orientation tag (0x0112)
		0x03, 0x00, // SHORT
		0x01, 0x00, 0x00, 0x00, // count 1
		byte(orientation), byte(orientation >> 8), 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, // no next IFD
	}
	payload := append([]byte("Exif\x00\x00"), tiff...)
	segment := []byte{0xFF, 0xE1, byte((len(payload) + 2) >> 8), byte(len(payload) + 2)}
	return append(segment, payload...)
}

// makeOrientedJPEG renders a gradient JPEG and injects an EXIF orientation
// tag right after the SOI marker.
func makeOrientedJPEG(t *testing.T, width, height int, orientation uint16) []byte {
	t.Helper()

	data := makeJPEG(t, width, height)
	require.True(t, bytes.HasPrefix(data, []byte{0xFF, 0xD8}))

	out := make([]byte, 0, len(data)+40)
	out = append(out, data[:2]...)
	out = append(out, exifApp1(orientation)...)
	return append(out, data[2:]...)
}

func TestProcessOriginalAutoOrientation(t *testing.T) {
	env := setupTestService(t)
	key := photoflow.OriginalKey("rot00001", "jpg")

	// Orientation 6: camera held sideways, stored landscape, displayed
	// portrait.
	data := makeOrientedJPEG(t, 1200, 800, 6)
	err := env.blobs.Upload(context.Background(), bytes.NewReader(data), photoflow.UploadParams{
		ObjectKey:   key,
		ContentType: "image/jpeg",
	})
	require.NoError(t, err)

	_, err = env.service.CreatePendingRecord(context.Background(), photoflow.CreatePendingRecordRequest{
		PhotoID:     "rot00001",
		Filename:    "sideways.jpg",
		Size:        int64(len(data)),
		ContentType: "image/jpeg",
		StorageKey:  key,
	})
	require.NoError(t, err)

	record, err := env.service.ProcessOriginal(context.Background(), key)
	require.NoError(t, err)

	// Record dimensions come from the normalized render: rotation swapped
	// width and height.
	assert.Equal(t, 800, record.Width)
	assert.Equal(t, 1200, record.Height)
	assert.InDelta(t, 800.0/1200.0, record.AspectRatio, 0.0001)

	// Metadata keeps the declared (pre-rotation) dimensions and the tag.
	require.NotNil(t, record.Metadata)
	assert.Equal(t, 6, record.Metadata.Orientation)
	assert.Equal(t, 1200, record.Metadata.Width)
	assert.Equal(t, 800, record.Metadata.Height)

	// Derived variants are rotated too.
	w, h := decodeDims(t, env.blobs, record.URLs["sm"])
	assert.Equal(t, 266, w)
	assert.Equal(t, 400, h)

	w, h = decodeDims(t, env.blobs, record.URLs["full"])
	assert.Equal(t, 800, w)
	assert.Equal(t, 1200, h)
}

// contentTypeStripper hides the stored content type, simulating an upload
// that bypassed the credential's content-type binding.
type contentTypeStripper struct {
	photoflow.BlobStore
}

func (s *contentTypeStripper) GetObjectMeta(ctx context.Context, objectKey string) (*photoflow.ObjectMeta, error) {
	meta, err := s.BlobStore.GetObjectMeta(ctx, objectKey)
	if err != nil {
		return nil, err
	}
	meta.ContentType = ""
	return meta, nil
}

func TestProcessOriginalMissingContentType(t *testing.T) {
	env := setupTestService(t)
	key := seedOriginal(t, env, "ab12cd34", 1200, 800)

	stripped := setupTestService(t, photoflow.WithBlobStore(&contentTypeStripper{BlobStore: env.blobs}))

	_, err := stripped.service.ProcessOriginal(context.Background(), key)
	require.Error(t, err)

	var pipelineErr *photoflow.PipelineError
	require.True(t, errors.As(err, &pipelineErr))
	assert.Equal(t, "fetch", pipelineErr.Op)
	assert.True(t, errors.Is(err, photoflow.ErrMissingContentType))
}
