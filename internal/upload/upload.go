// Package upload stores product images on local disk.
package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PublicPrefix is the URL path the upload directory is served under
const PublicPrefix = "/uploads/"

var (
	ErrNotAnImage = errors.New("images only")
	ErrTooLarge   = errors.New("file too large")
)

var allowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// Store writes uploaded images into a directory
type Store struct {
	dir      string
	maxBytes int64
	logger   *zap.Logger
}

// NewStore creates the upload directory if needed
func NewStore(dir string, maxBytes int64, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes, logger: logger}, nil
}

// Dir returns the directory files are written to
func (s *Store) Dir() string {
	return s.dir
}

// MaxBytes returns the size limit for a single image
func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

// Save sniffs the content type of r, rejects anything that is not a supported
// image or exceeds the size limit, and writes it under a fresh name. It returns
// the public URL path of the stored file.
func (s *Store) Save(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", ErrTooLarge
	}

	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), allowedTypes...) {
		s.logger.Debug("Rejected upload", zap.String("detected_type", mtype.String()))
		return "", ErrNotAnImage
	}

	name := "image-" + uuid.NewString() + mtype.Extension()
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}

	s.logger.Info("Image stored",
		zap.String("file", name),
		zap.String("type", mtype.String()),
		zap.Int("bytes", len(data)),
	)

	return PublicPrefix + name, nil
}
