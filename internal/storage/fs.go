// Package storage provides the artifact store adapters. The filesystem
// adapter is the default; S3 serves deployments where the processing engine
// runs elsewhere.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/georgisalene/gnss-rt/internal/ports"
)

// fsStorage implements ports.Storage on the local filesystem.
type fsStorage struct {
	basePath string
	logger   ports.Logger
	metrics  ports.Metrics
}

// NewFilesystem creates a filesystem-backed artifact store rooted at basePath.
func NewFilesystem(basePath string, logger ports.Logger, metrics ports.Metrics) (ports.Storage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		logger.Error("Failed to create base path", "path", basePath, "error", err)
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}

	logger.Info("Filesystem storage initialized", "base_path", basePath)
	metrics.IncrementCounter("storage.filesystem.initialized", nil)

	return &fsStorage{
		basePath: basePath,
		logger:   logger.WithFields(map[string]interface{}{"adapter": "filesystem"}),
		metrics:  metrics.WithTags(map[string]string{"storage": "filesystem"}),
	}, nil
}

// Put writes to a temp file in the target directory and renames it into
// place, so a crash mid-write never leaves a partial artifact under the key.
func (s *fsStorage) Put(ctx context.Context, bucket, key string, reader io.Reader) (int64, error) {
	startTime := time.Now()
	s.metrics.IncrementCounter("storage.put.attempts", map[string]string{"bucket": bucket})

	objectPath := s.objectPath(bucket, key)
	if err := os.MkdirAll(filepath.Dir(objectPath), 0755); err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"bucket": bucket, "error": "mkdir"})
		return 0, fmt.Errorf("failed to create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(objectPath), ".partial-*")
	if err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"bucket": bucket, "error": "create"})
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	bytesWritten, err := io.Copy(tmp, reader)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.logger.Error("Failed to write data", "bucket", bucket, "key", key, "error", err)
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"bucket": bucket, "error": "write"})
		return 0, fmt.Errorf("failed to write data: %w", err)
	}

	if err := os.Rename(tmp.Name(), objectPath); err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"bucket": bucket, "error": "rename"})
		return 0, fmt.Errorf("failed to commit object: %w", err)
	}

	duration := time.Since(startTime)
	s.logger.Info("Object stored",
		"bucket", bucket,
		"key", key,
		"bytes", bytesWritten,
		"duration_ms", duration.Milliseconds())
	s.metrics.IncrementCounter("storage.put.success", map[string]string{"bucket": bucket})
	s.metrics.RecordHistogram("storage.put.bytes", float64(bytesWritten), map[string]string{"bucket": bucket})

	return bytesWritten, nil
}

// Get retrieves an object
func (s *fsStorage) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	s.metrics.IncrementCounter("storage.get.attempts", map[string]string{"bucket": bucket})

	file, err := os.Open(s.objectPath(bucket, key))
	if err != nil {
		if os.IsNotExist(err) {
			s.metrics.IncrementCounter("storage.get.errors", map[string]string{"bucket": bucket, "error": "not_found"})
			return nil, ports.ErrObjectNotFound
		}
		s.metrics.IncrementCounter("storage.get.errors", map[string]string{"bucket": bucket, "error": "open"})
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	return file, nil
}

// Exists checks if an object exists
func (s *fsStorage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := os.Stat(s.objectPath(bucket, key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat object: %w", err)
}

// Delete removes an object
func (s *fsStorage) Delete(ctx context.Context, bucket, key string) error {
	err := os.Remove(s.objectPath(bucket, key))
	if os.IsNotExist(err) {
		return ports.ErrObjectNotFound
	}
	return err
}

// List returns the objects under the given prefix
func (s *fsStorage) List(ctx context.Context, bucket, prefix string) ([]ports.ObjectInfo, error) {
	root := filepath.Join(s.basePath, bucket)
	var out []ports.ObjectInfo

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || strings.HasPrefix(info.Name(), ".partial-") {
			return nil
		}
		key := strings.TrimPrefix(strings.TrimPrefix(path, root), string(os.PathSeparator))
		key = filepath.ToSlash(key)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		out = append(out, ports.ObjectInfo{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	return out, nil
}

// Location returns the absolute filesystem path of the object.
func (s *fsStorage) Location(bucket, key string) string {
	return s.objectPath(bucket, key)
}

func (s *fsStorage) objectPath(bucket, key string) string {
	return filepath.Join(s.basePath, bucket, filepath.FromSlash(key))
}
