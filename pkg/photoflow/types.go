package photoflow

import (
	"time"
)

// PhotoStatus is the domain type for photo lifecycle states.
type PhotoStatus string

// Photo status constants (typed).
const (
	PhotoStatusUploading PhotoStatus = "uploading"
	PhotoStatusComplete  PhotoStatus = "complete"
)

// Variant name for the untouched upload. The derived variant names live in
// the variant table (see Variants).
const VariantOriginal = "original"

// ImageMetadata holds image properties derived from the raw upload bytes.
// Dimensions here are the declared (pre-rotation) ones; the post-rotation
// dimensions live on the PhotoRecord itself.
type ImageMetadata struct {
	Format      string `json:"format"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Channels    int    `json:"channels"`
	Space       string `json:"space"`
	Orientation int    `json:"orientation"`
	HasAlpha    bool   `json:"hasAlpha"`
	HasProfile  bool   `json:"hasProfile"`
}

// PhotoRecord is the metadata record for one uploaded photo.
//
// A record is created in status "uploading" with ExpireAt set, and moves to
// "complete" exactly once when the resize pipeline finalizes it. The
// completion-only fields (Metadata, Width, Height, AspectRatio, URLs) are
// set atomically by that finalize and are never partially present.
//
// ExpireAt and PurgeAt are two distinct TTL lifecycles: ExpireAt lets an
// abandoned pending upload self-delete; PurgeAt schedules the eventual hard
// delete of a soft-deleted record. The record store maps whichever is set
// onto the backing store's TTL attribute.
type PhotoRecord struct {
	PhotoID          string      `json:"photoId"`
	OriginalFilename string      `json:"originalFilename"`
	Size             int64       `json:"size"`
	ContentType      string      `json:"contentType"`
	Status           PhotoStatus `json:"status"`
	StorageKey       string      `json:"storageKey"`
	CreatedAt        time.Time   `json:"createdAt"`

	ExpireAt  *time.Time `json:"expireAt,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	PurgeAt   *time.Time `json:"purgeAt,omitempty"`

	Metadata    *ImageMetadata    `json:"metadata,omitempty"`
	Width       int               `json:"width,omitempty"`
	Height      int               `json:"height,omitempty"`
	AspectRatio float64           `json:"aspectRatio,omitempty"`
	URLs        map[string]string `json:"urls,omitempty"`
}

// RecordFinalization carries everything the resize pipeline commits in its
// single atomic update.
type RecordFinalization struct {
	Metadata    ImageMetadata
	URLs        map[string]string
	Width       int
	Height      int
	AspectRatio float64
}
