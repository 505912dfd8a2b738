package objectstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"roster/internal/sentinel"
)

// FilesystemStore keeps objects under root/<bucket>/<key> with a sidecar
// metadata file for the content type. Keys are flattened so a caller cannot
// escape the bucket directory.
type FilesystemStore struct {
	root string
}

type objectMeta struct {
	ContentType string `json:"content_type"`
}

// NewFilesystem creates the root directory if needed.
func NewFilesystem(root string) (*FilesystemStore, error) {
	if root == "" {
		return nil, fmt.Errorf("object store root is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create object store root: %w", err)
	}
	return &FilesystemStore{root: root}, nil
}

func (s *FilesystemStore) Put(_ context.Context, bucket, key, contentType string, body io.Reader) error {
	path, err := s.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create bucket dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create object: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close() //nolint:errcheck // write already failed
		return fmt.Errorf("write object: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close object: %w", err)
	}

	meta, err := json.Marshal(objectMeta{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("encode object metadata: %w", err)
	}
	if err := os.WriteFile(path+".meta", meta, 0o640); err != nil {
		return fmt.Errorf("write object metadata: %w", err)
	}
	return nil
}

func (s *FilesystemStore) Get(_ context.Context, bucket, key string) (*Object, error) {
	path, err := s.path(bucket, key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("object %s/%s: %w", bucket, key, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("open object: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close() //nolint:errcheck
		return nil, fmt.Errorf("stat object: %w", err)
	}

	contentType := "application/octet-stream"
	if raw, err := os.ReadFile(path + ".meta"); err == nil {
		var meta objectMeta
		if json.Unmarshal(raw, &meta) == nil && meta.ContentType != "" {
			contentType = meta.ContentType
		}
	}

	return &Object{Body: f, ContentType: contentType, Size: info.Size()}, nil
}

func (s *FilesystemStore) Remove(_ context.Context, bucket, key string) error {
	path, err := s.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("object %s/%s: %w", bucket, key, sentinel.ErrNotFound)
		}
		return fmt.Errorf("remove object: %w", err)
	}
	_ = os.Remove(path + ".meta") // best effort
	return nil
}

func (s *FilesystemStore) path(bucket, key string) (string, error) {
	if bucket == "" || key == "" {
		return "", fmt.Errorf("bucket and key are required: %w", sentinel.ErrInvalidInput)
	}
	// Flatten any path separators so the key cannot traverse out of the bucket.
	flat := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(key)
	return filepath.Join(s.root, filepath.Base(bucket), flat), nil
}
