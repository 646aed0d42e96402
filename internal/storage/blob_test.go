package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPutImage(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalBlobStore(dir, "http://localhost:8080/attachments/", zap.NewNop())
	require.NoError(t, err)

	jpeg := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00}
	url, err := store.PutImage(context.Background(), jpeg, "20001/2026/08/30")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/attachments/20001-2026-08-30.jpg", url)

	written, err := os.ReadFile(filepath.Join(dir, "20001-2026-08-30.jpg"))
	require.NoError(t, err)
	assert.Equal(t, jpeg, written)
}

func TestPutImageExtensions(t *testing.T) {
	store, err := NewLocalBlobStore(t.TempDir(), "http://example.com", zap.NewNop())
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}, ".png"},
		{"gif", []byte("GIF89a trailing"), ".gif"},
		{"unknown", []byte{0x00, 0x01, 0x02}, ".bin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, err := store.PutImage(context.Background(), tt.data, "20002/2026/08/30")
			require.NoError(t, err)
			assert.True(t, len(url) > len(tt.want))
			assert.Equal(t, tt.want, url[len(url)-len(tt.want):])
		})
	}
}

func TestPutImageRejectsEmptyData(t *testing.T) {
	store, err := NewLocalBlobStore(t.TempDir(), "http://example.com", zap.NewNop())
	require.NoError(t, err)

	_, err = store.PutImage(context.Background(), nil, "20001/2026/08/30")
	assert.Error(t, err)
}
