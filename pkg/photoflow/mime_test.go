package photoflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/galleri/photoflow/pkg/photoflow"
)

func TestExtensionForContentType(t *testing.T) {
	tests := []struct {
		contentType string
		expected    string
	}{
		{"image/jpeg", "jpg"},
		{"image/jpg", "jpg"},
		{"image/png", "png"},
		{"image/webp", "webp"},
		{"image/gif", "gif"},
		{"image/tiff", "jpg"},
		{"application/octet-stream", "jpg"},
		{"", "jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.expected, photoflow.ExtensionForContentType(tt.contentType))
		})
	}
}

func TestExtensionForContentTypeIsDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.Equal(t, "webp", photoflow.ExtensionForContentType("image/webp"))
	}
}
