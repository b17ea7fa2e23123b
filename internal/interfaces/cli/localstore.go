package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/turtacn/CiteDisrupt/internal/application/export"
	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

// DirStore writes run artifacts under a local directory, mirroring the
// object-store key layout. It backs the run command when no object
// storage is involved.
type DirStore struct {
	root string
}

var _ export.ArtifactStore = (*DirStore)(nil)

// NewDirStore creates a store rooted at dir. The directory is created
// on first save.
func NewDirStore(dir string) *DirStore {
	return &DirStore{root: dir}
}

// Save writes data to root/key, creating parent directories as needed.
// The content type is implied by the key's extension and ignored here.
func (s *DirStore) Save(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errors.New(errors.ErrCodeValidation, "artifact key is empty")
	}
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreWriteFailed, "failed to create artifact directory")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreWriteFailed, "failed to write artifact "+key)
	}
	return nil
}
