package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/archivesocial/archive/backend/internal/logger"
	"go.uber.org/zap"
)

// LocalStore writes images under a directory served at /uploads
type LocalStore struct {
	basePath string
	baseURL  string
}

// NewLocalStore creates basePath if needed
func NewLocalStore(basePath, publicBaseURL string) (*LocalStore, error) {
	if basePath == "" {
		basePath = "./uploads"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{
		basePath: basePath,
		baseURL:  strings.TrimSuffix(publicBaseURL, "/") + "/uploads",
	}, nil
}

// BasePath is the directory to mount under /uploads
func (s *LocalStore) BasePath() string {
	return s.basePath
}

// UploadImage copies img to disk under a generated key
func (s *LocalStore) UploadImage(ctx context.Context, bucket Bucket, ownerID string, img Image) (*UploadResult, error) {
	key, err := prepare(bucket, ownerID, img, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	fullPath := filepath.Join(s.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return nil, fmt.Errorf("create dir: %w", err)
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	// One byte past the limit is enough to detect an oversized body
	written, err := io.Copy(dst, io.LimitReader(img.Body, MaxImageSize+1))
	if err != nil {
		_ = os.Remove(fullPath)
		return nil, fmt.Errorf("write file: %w", err)
	}
	if written > MaxImageSize {
		_ = os.Remove(fullPath)
		return nil, ErrImageTooLarge
	}

	logger.Log.Debug("Stored image", zap.String("key", key), zap.Int64("size", written))

	return &UploadResult{
		Key:    key,
		URL:    s.baseURL + "/" + key,
		Bucket: string(bucket),
		Size:   written,
	}, nil
}

// DeleteFile removes the file; a missing file is not an error
func (s *LocalStore) DeleteFile(ctx context.Context, key string) error {
	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return fmt.Errorf("invalid key %q", key)
	}
	err := os.Remove(filepath.Join(s.basePath, clean))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// KeyFromURL recovers the key from a /uploads URL
func (s *LocalStore) KeyFromURL(url string) (string, bool) {
	return keyFromURL(s.baseURL, url)
}
