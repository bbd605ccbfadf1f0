package photoflow_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galleri/photoflow/pkg/photoflow"
)

func TestVariantTable(t *testing.T) {
	specs := photoflow.Variants()
	require.Len(t, specs, 6)

	byName := make(map[string]photoflow.VariantSpec, len(specs))
	for _, spec := range specs {
		byName[spec.Name] = spec
	}

	assert.Equal(t, []string{"thumb", "sm", "md", "lg", "display", "full"}, photoflow.VariantNames())

	thumb := byName["thumb"]
	assert.Equal(t, photoflow.FitCover, thumb.Fit)
	assert.Equal(t, 200, thumb.Width)
	assert.Equal(t, 200, thumb.Height)
	assert.Equal(t, 80, thumb.Quality)

	for _, name := range []string{"sm", "md", "lg", "display"} {
		assert.Equal(t, photoflow.FitInside, byName[name].Fit, name)
	}
	assert.Equal(t, 90, byName["display"].Quality)

	full := byName["full"]
	assert.Equal(t, photoflow.FitNone, full.Fit)
	assert.Equal(t, 100, full.Quality)
	assert.Zero(t, full.Width)
	assert.Zero(t, full.Height)
}

func TestVariantKeys(t *testing.T) {
	assert.Equal(t, "original/ab12cd34.jpg", photoflow.OriginalKey("ab12cd34", "jpg"))
	assert.Equal(t, "thumb/ab12cd34.jpg", photoflow.VariantKey("thumb", "ab12cd34", "jpg"))
	assert.Equal(t, "display/ab12cd34.png", photoflow.VariantKey("display", "ab12cd34", "png"))
}

func TestPhotoIDFromKey(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		expected string
		wantErr  bool
	}{
		{"plain original key", "original/ab12cd34.jpg", "ab12cd34", false},
		{"nested prefix", "photos/originals/ab12cd34.jpg", "ab12cd34", false},
		{"no extension", "original/ab12cd34", "ab12cd34", false},
		{"missing id", "original/.jpg", "", true},
		{"empty key", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := photoflow.PhotoIDFromKey(tt.key)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, photoflow.ErrUnparseableKey))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, id)
		})
	}
}
