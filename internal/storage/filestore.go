package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FileStore keeps uploaded result files on local disk under a single
// directory. Stored names are server-generated, so client file names can
// neither collide nor escape the directory.
type FileStore struct {
	dir    string
	logger *zap.Logger
}

// StoredFile describes a file after it has been written to the store.
type StoredFile struct {
	// Path is the store-relative name persisted with the owning row.
	Path        string
	Name        string
	ContentType string
	Size        int64
}

// NewFileStore creates the upload directory if needed and returns the store.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// Save writes an uploaded file under a fresh name, keeping the client's
// extension, and returns its stored descriptor.
func (s *FileStore) Save(header *multipart.FileHeader) (StoredFile, error) {
	src, err := header.Open()
	if err != nil {
		return StoredFile{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := uuid.NewString() + filepath.Ext(header.Filename)
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return StoredFile{}, fmt.Errorf("create stored file: %w", err)
	}
	defer dst.Close()

	size, err := io.Copy(dst, src)
	if err != nil {
		return StoredFile{}, fmt.Errorf("write stored file: %w", err)
	}

	s.logger.Debug("file stored", zap.String("name", name), zap.Int64("size", size))
	return StoredFile{
		Path:        name,
		Name:        filepath.Base(header.Filename),
		ContentType: header.Header.Get("Content-Type"),
		Size:        size,
	}, nil
}

// Remove deletes a stored file. Removing the empty path is a no-op.
func (s *FileStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	return os.Remove(filepath.Join(s.dir, filepath.Base(path)))
}

// Resolve maps a stored name to the on-disk path used for serving downloads.
func (s *FileStore) Resolve(path string) string {
	return filepath.Join(s.dir, filepath.Base(path))
}
