package photoflow

import (
	"fmt"
	"path"
	"strings"
)

// FitPolicy describes how a source image is mapped onto a variant's box.
type FitPolicy string

// Fit policy constants (typed).
const (
	// FitCover crops to exactly fill the target box
	FitCover FitPolicy = "cover"
	// FitInside scales down to fit within the box, never upscaling
	FitInside FitPolicy = "inside"
	// FitNone re-encodes at the source resolution without resizing
	FitNone FitPolicy = "none"
)

// VariantSpec declares one derived rendition of an uploaded photo.
type VariantSpec struct {
	Name    string
	Width   int
	Height  int
	Fit     FitPolicy
	Quality int
}

// variants is the fixed derivation table. Order is stable but derivations
// run concurrently, so nothing may depend on it.
var variants = []VariantSpec{
	{Name: "thumb", Width: 200, Height: 200, Fit: FitCover, Quality: 80},
	{Name: "sm", Width: 400, Height: 400, Fit: FitInside, Quality: 80},
	{Name: "md", Width: 800, Height: 800, Fit: FitInside, Quality: 80},
	{Name: "lg", Width: 1600, Height: 1600, Fit: FitInside, Quality: 80},
	{Name: "display", Width: 2400, Height: 2400, Fit: FitInside, Quality: 90},
	{Name: "full", Fit: FitNone, Quality: 100},
}

// Variants returns the fixed set of derived variants.
func Variants() []VariantSpec {
	out := make([]VariantSpec, len(variants))
	copy(out, variants)
	return out
}

// VariantNames returns the names of every derived variant, excluding
// "original".
func VariantNames() []string {
	names := make([]string, len(variants))
	for i, v := range variants {
		names[i] = v.Name
	}
	return names
}

// OriginalKey returns the storage key for a photo's uploaded original.
func OriginalKey(photoID, extension string) string {
	return fmt.Sprintf("original/%s.%s", photoID, extension)
}

// VariantKey returns the storage key for one derived variant.
func VariantKey(variantName, photoID, extension string) string {
	return fmt.Sprintf("%s/%s.%s", variantName, photoID, extension)
}

// PhotoIDFromKey extracts the photo id from a storage key of the form
// ".../<photoId>.<ext>". Returns ErrUnparseableKey when the key does not
// carry an id.
func PhotoIDFromKey(key string) (string, error) {
	base := path.Base(key)
	id := strings.SplitN(base, ".", 2)[0]
	if id == "" || id == "." || id == "/" {
		return "", &StorageError{Key: key, Op: "identify", Err: ErrUnparseableKey}
	}
	return id, nil
}
