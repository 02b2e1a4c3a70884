package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hotelops/backoffice/internal/domain"
)

// LocalStorage keeps blobs on the local filesystem
type LocalStorage struct {
	basePath  string
	urlPrefix string
}

// NewLocalStorage creates a local storage driver rooted at basePath
func NewLocalStorage(basePath, urlPrefix string) *LocalStorage {
	return &LocalStorage{
		basePath:  basePath,
		urlPrefix: strings.TrimSuffix(urlPrefix, "/"),
	}
}

// BasePath returns the directory blobs are written to
func (s *LocalStorage) BasePath() string {
	return s.basePath
}

// Put writes the blob to disk
func (s *LocalStorage) Put(ctx context.Context, key string, body io.Reader) (string, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	out, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, body); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return s.PublicURL(key), nil
}

// Delete removes the blob from disk
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// PublicURL returns the URL the HTTP server serves the blob under
func (s *LocalStorage) PublicURL(key string) string {
	return s.urlPrefix + "/" + strings.TrimPrefix(key, "/")
}

// resolve maps a key to a path below basePath, rejecting traversal
func (s *LocalStorage) resolve(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: invalid blob key %q", domain.ErrInvalidInput, key)
	}
	return filepath.Join(s.basePath, filepath.FromSlash(strings.TrimPrefix(key, "/"))), nil
}
