package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// LocalStore keeps objects on the local filesystem, one directory per bucket.
type LocalStore struct {
	rootPath      string
	publicBaseURL string
	logger        *zap.Logger
}

// NewLocalStore creates a LocalStore rooted at rootPath.
func NewLocalStore(rootPath, publicBaseURL string, logger *zap.Logger) (*LocalStore, error) {
	if rootPath == "" {
		return nil, fmt.Errorf("storage path cannot be empty")
	}
	if err := os.MkdirAll(rootPath, os.ModePerm); err != nil {
		logger.Error("Failed to create storage path directory", zap.String("path", rootPath), zap.Error(err))
		return nil, fmt.Errorf("failed to create storage path %s: %w", rootPath, err)
	}
	logger.Info("LocalStore initialized", zap.String("rootPath", rootPath))
	return &LocalStore{
		rootPath:      rootPath,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}, nil
}

// RootPath is the directory the store writes to.
func (s *LocalStore) RootPath() string { return s.rootPath }

func (s *LocalStore) resolve(bucket Bucket, key string) (string, error) {
	cleanKey := filepath.Clean(filepath.FromSlash(key))
	if cleanKey == "." || strings.HasPrefix(cleanKey, "..") || filepath.IsAbs(cleanKey) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.rootPath, string(bucket), cleanKey), nil
}

// Put writes body to <root>/<bucket>/<key>.
func (s *LocalStore) Put(ctx context.Context, bucket Bucket, key string, body io.Reader, size int64, contentType string) (*Object, error) {
	dest, err := s.resolve(bucket, key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dest), os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", dest, err)
	}

	dst, err := os.Create(dest)
	if err != nil {
		s.logger.Error("Failed to create destination file", zap.String("path", dest), zap.Error(err))
		return nil, fmt.Errorf("failed to create file %s: %w", dest, err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, body)
	if err != nil {
		os.Remove(dest)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	s.logger.Debug("Object stored", zap.String("bucket", string(bucket)), zap.String("key", key))
	return &Object{
		Bucket:      bucket,
		Key:         key,
		URL:         s.PublicURL(bucket, key),
		ContentType: contentType,
		Size:        written,
	}, nil
}

// Delete removes an object. Deleting a missing object is not an error.
func (s *LocalStore) Delete(ctx context.Context, bucket Bucket, key string) error {
	path, err := s.resolve(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Error("Failed to delete file", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("failed to delete file %s: %w", path, err)
	}
	return nil
}

// PublicURL is <base>/<bucket>/<key>.
func (s *LocalStore) PublicURL(bucket Bucket, key string) string {
	return s.publicBaseURL + "/" + string(bucket) + "/" + key
}
