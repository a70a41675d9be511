package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/archivesocial/archive/backend/internal/config"
)

// Bucket is the logical folder an image lives in
type Bucket string

const (
	BucketPostImages Bucket = "post_images"
	BucketStories    Bucket = "stories"
	BucketAvatars    Bucket = "avatars"
)

// MaxImageSize caps any single upload
const MaxImageSize = 10 << 20

var (
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrImageTooLarge    = errors.New("image exceeds 10MB")
	ErrUnknownBucket    = errors.New("unknown bucket")
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var buckets = map[Bucket]bool{
	BucketPostImages: true,
	BucketStories:    true,
	BucketAvatars:    true,
}

// Image is an upload waiting to be stored
type Image struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadResult contains the result of an upload
type UploadResult struct {
	Key    string `json:"key"`
	URL    string `json:"url"`
	Bucket string `json:"bucket"`
	Size   int64  `json:"size"`
}

// ImageStore persists user images and hands back public URLs
type ImageStore interface {
	UploadImage(ctx context.Context, bucket Bucket, ownerID string, img Image) (*UploadResult, error)
	DeleteFile(ctx context.Context, key string) error
	KeyFromURL(url string) (string, bool)
}

// New builds the store selected by cfg.Driver
func New(ctx context.Context, cfg config.StorageConfig) (ImageStore, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Store(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.CDNBaseURL)
	case "local", "":
		return NewLocalStore(cfg.LocalPath, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// ValidateImage checks type and size and returns the file extension to use
func ValidateImage(contentType string, size int64) (string, error) {
	if size > MaxImageSize {
		return "", ErrImageTooLarge
	}
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	ext, ok := imageExtensions[ct]
	if !ok {
		return "", ErrUnsupportedImage
	}
	return ext, nil
}

// BuildKey lays out {bucket}/{yyyy}/{mm}/{ownerID}-{unixms}{ext}
func BuildKey(bucket Bucket, ownerID, ext string, now time.Time) string {
	return fmt.Sprintf("%s/%d/%02d/%s-%d%s",
		bucket, now.Year(), now.Month(), ownerID, now.UnixMilli(), ext)
}

// ImageFromMultipart opens an uploaded form file. The content type is sniffed
// from the bytes rather than trusted from the client. Callers close the file.
func ImageFromMultipart(fh *multipart.FileHeader) (Image, io.Closer, error) {
	if fh.Size > MaxImageSize {
		return Image{}, nil, ErrImageTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return Image{}, nil, fmt.Errorf("open upload: %w", err)
	}

	br := bufio.NewReaderSize(f, 512)
	head, _ := br.Peek(512)
	contentType := http.DetectContentType(head)

	return Image{
		Filename:    fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		Body:        br,
	}, f, nil
}

func prepare(bucket Bucket, ownerID string, img Image, now time.Time) (string, error) {
	if !buckets[bucket] {
		return "", ErrUnknownBucket
	}
	ext, err := ValidateImage(img.ContentType, img.Size)
	if err != nil {
		return "", err
	}
	return BuildKey(bucket, ownerID, ext, now), nil
}

func keyFromURL(baseURL, url string) (string, bool) {
	prefix := strings.TrimSuffix(baseURL, "/") + "/"
	if baseURL == "" || !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	return key, key != ""
}
