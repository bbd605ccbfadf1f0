package photoflow

import (
	"bytes"
	"context"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ProcessOriginal runs one resize-pipeline invocation for a newly created
// original object.
//
// All variant derivations run concurrently against a single normalized
// decode of the source. Finalization is gated on every derivation
// succeeding: a record never references a variant that failed to upload, so
// any error aborts the whole invocation without committing a partial urls
// map. The external delivery layer is expected to redrive failed events;
// variants uploaded before the failure are left behind (the record never
// points at them).
func (s *service) ProcessOriginal(ctx context.Context, storageKey string) (*PhotoRecord, error) {
	photoID, err := PhotoIDFromKey(storageKey)
	if err != nil {
		return nil, &PipelineError{Op: "identify", Err: err}
	}

	log := s.logger.With("photo_id", photoID, "key", storageKey)
	log.Info("processing original")

	meta, err := s.blobs.GetObjectMeta(ctx, storageKey)
	if err != nil {
		return nil, &PipelineError{PhotoID: photoID, Op: "fetch", Err: err}
	}
	if meta.ContentType == "" {
		return nil, &PipelineError{PhotoID: photoID, Op: "fetch", Err: ErrMissingContentType}
	}

	body, err := s.blobs.Download(ctx, storageKey)
	if err != nil {
		return nil, &PipelineError{PhotoID: photoID, Op: "fetch", Err: err}
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &PipelineError{PhotoID: photoID, Op: "fetch", Err: err}
	}

	info, err := readImageInfo(data)
	if err != nil {
		return nil, &PipelineError{PhotoID: photoID, Op: "decode", Err: err}
	}

	// One decode+rotate shared by every variant. Read-only from here on.
	src, err := decodeNormalized(data)
	if err != nil {
		return nil, &PipelineError{PhotoID: photoID, Op: "decode", Err: err}
	}

	extension := ExtensionForContentType(meta.ContentType)

	urls := map[string]string{
		VariantOriginal: storageKey,
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, spec := range Variants() {
		spec := spec
		variantKey := VariantKey(spec.Name, photoID, extension)

		g.Go(func() error {
			rendered := renderVariant(src, spec)

			encoded, err := encodeJPEG(rendered, spec.Quality)
			if err != nil {
				return &StorageError{Key: variantKey, Op: "encode", Err: err}
			}

			params := UploadParams{
				ObjectKey:    variantKey,
				ContentType:  meta.ContentType,
				CacheControl: derivedCacheControl,
			}
			if err := s.blobs.Upload(gctx, bytes.NewReader(encoded), params); err != nil {
				return err
			}

			mu.Lock()
			urls[spec.Name] = variantKey
			mu.Unlock()

			log.Debug("derived variant", "variant", spec.Name)
			return nil
		})
	}

	// Barrier: finalize must not run unless every derivation succeeded.
	if err := g.Wait(); err != nil {
		return nil, &PipelineError{PhotoID: photoID, Op: "derive", Err: err}
	}

	// Post-rotation dimensions come from the normalized render, not the
	// declared ones: EXIF rotation may have swapped width and height.
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	aspectRatio := 1.0
	if height > 0 {
		aspectRatio = float64(width) / float64(height)
	}

	fin := RecordFinalization{
		Metadata:    *info,
		URLs:        urls,
		Width:       width,
		Height:      height,
		AspectRatio: aspectRatio,
	}
	if err := s.records.FinalizeRecord(ctx, photoID, fin); err != nil {
		return nil, &PipelineError{PhotoID: photoID, Op: "finalize", Err: err}
	}

	record, err := s.records.GetRecord(ctx, photoID)
	if err != nil {
		return nil, &PipelineError{PhotoID: photoID, Op: "finalize", Err: err}
	}

	log.Info("processed original", "width", width, "height", height)
	return record, nil
}
