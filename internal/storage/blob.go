// Package storage persists ticket attachments
package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// BlobStore persists an image for a ticket and returns its public URL
type BlobStore interface {
	PutImage(ctx context.Context, data []byte, ticketNumber string) (string, error)
}

// LocalBlobStore writes attachments to a directory on disk and serves them
// under a public base URL
type LocalBlobStore struct {
	dir     string
	baseURL string
	logger  *zap.Logger
}

// NewLocalBlobStore creates the attachment directory if needed
func NewLocalBlobStore(dir, baseURL string, logger *zap.Logger) (*LocalBlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create attachment directory: %w", err)
	}
	return &LocalBlobStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}, nil
}

// PutImage stores the image under a name derived from the ticket number
func (s *LocalBlobStore) PutImage(_ context.Context, data []byte, ticketNumber string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty image data")
	}

	filename := sanitizeTicketNumber(ticketNumber) + extensionFor(data)
	path := filepath.Join(s.dir, filename)

	// the ticket number is produced by us, but keep writes inside the
	// attachment directory regardless
	if !strings.HasPrefix(filepath.Clean(path), filepath.Clean(s.dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid attachment path: %s", filename)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write attachment: %w", err)
	}

	s.logger.Debug("Attachment stored",
		zap.String("ticket_number", ticketNumber),
		zap.String("path", path))

	return s.baseURL + "/" + filename, nil
}

// sanitizeTicketNumber turns "20001/2026/08/30" into "20001-2026-08-30"
func sanitizeTicketNumber(ticketNumber string) string {
	return strings.ReplaceAll(ticketNumber, "/", "-")
}

func extensionFor(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G'}):
		return ".png"
	case bytes.HasPrefix(data, []byte{0xff, 0xd8, 0xff}):
		return ".jpg"
	case bytes.HasPrefix(data, []byte("GIF8")):
		return ".gif"
	default:
		return ".bin"
	}
}
