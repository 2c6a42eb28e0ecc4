// Package blob provides local blob storage for uploaded document
// bytes.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/deepread-labs/deepread-core/internal/core/ports/driven"
)

// Ensure FilesystemStore implements the interface.
var _ driven.BlobStore = (*FilesystemStore)(nil)

// FilesystemStore keeps uploaded blobs under a local directory,
// mirroring the logical path layout (userID/timestamp_name).
type FilesystemStore struct {
	root string
}

// NewFilesystemStore creates a blob store rooted at dir.
// If dir is empty, defaults to ~/.deepread/blobs.
func NewFilesystemStore(dir string) (*FilesystemStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".deepread", "blobs")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}

	return &FilesystemStore{root: dir}, nil
}

// Store writes data under the logical path and returns the stored
// reference.
func (s *FilesystemStore) Store(ctx context.Context, path string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if path == "" {
		return "", fmt.Errorf("blob: path is empty")
	}

	full := filepath.Join(s.root, filepath.FromSlash(path))

	// Paths must stay inside the root.
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("blob: invalid path %q", path)
	}

	if err := os.MkdirAll(filepath.Dir(full), 0700); err != nil {
		return "", fmt.Errorf("creating blob subdirectory: %w", err)
	}
	if err := os.WriteFile(full, data, 0600); err != nil {
		return "", fmt.Errorf("writing blob: %w", err)
	}
	return path, nil
}

// Read returns the bytes stored under a logical path.
func (s *FilesystemStore) Read(path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.root, filepath.FromSlash(path)))
}

// Root returns the blob root directory.
func (s *FilesystemStore) Root() string {
	return s.root
}
