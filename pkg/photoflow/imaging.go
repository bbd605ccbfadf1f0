package photoflow

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"

	// WebP is decode-only: uploads are admitted as image/webp but every
	// derived rendition is encoded as JPEG.
	_ "golang.org/x/image/webp"
)

// decodeNormalized decodes the raw upload and applies EXIF orientation
// normalization once. The result is shared read-only by every variant
// derivation, so all renditions end up consistently rotated.
func decodeNormalized(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// renderVariant maps the normalized source onto one variant's box according
// to its fit policy.
func renderVariant(src image.Image, spec VariantSpec) image.Image {
	switch spec.Fit {
	case FitCover:
		return imaging.Fill(src, spec.Width, spec.Height, imaging.Center, imaging.Lanczos)
	case FitInside:
		// Fit never upscales: a source smaller than the box passes through.
		return imaging.Fit(src, spec.Width, spec.Height, imaging.Lanczos)
	default:
		return src
	}
}

// encodeJPEG encodes a rendition as baseline JPEG at the given quality.
func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// readImageInfo extracts image properties from the raw upload bytes without
// a full pixel decode.
func readImageInfo(data []byte) (*ImageMetadata, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read image config: %w", err)
	}

	channels, space, hasAlpha := colorInfo(cfg.ColorModel)

	return &ImageMetadata{
		Format:      format,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Channels:    channels,
		Space:       space,
		Orientation: exifOrientation(data),
		HasAlpha:    hasAlpha,
		HasProfile:  hasICCProfile(data),
	}, nil
}

func colorInfo(model color.Model) (channels int, space string, hasAlpha bool) {
	switch model {
	case color.GrayModel, color.Gray16Model:
		return 1, "b-w", false
	case color.CMYKModel:
		return 4, "cmyk", false
	case color.YCbCrModel:
		return 3, "srgb", false
	case color.NRGBAModel, color.NRGBA64Model, color.RGBAModel, color.RGBA64Model:
		return 4, "srgb", true
	default:
		return 3, "srgb", false
	}
}

// exifOrientation returns the EXIF orientation tag, defaulting to 1 (upright)
// for images without EXIF data.
func exifOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orientation, err := tag.Int(0)
	if err != nil || orientation < 1 || orientation > 8 {
		return 1
	}
	return orientation
}

var iccProfileMarker = []byte("ICC_PROFILE")

// hasICCProfile reports whether the raw bytes embed an ICC color profile
// (JPEG APP2 segment marker).
func hasICCProfile(data []byte) bool {
	return bytes.Contains(data, iccProfileMarker)
}
