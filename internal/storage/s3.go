package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store uploads images to AWS S3 and serves them through a CDN base URL
type S3Store struct {
	client  *s3.Client
	bucket  string
	region  string
	baseURL string
}

// NewS3Store creates a new S3 image store
func NewS3Store(ctx context.Context, region, bucket, baseURL string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}

	return &S3Store{
		client:  s3.NewFromConfig(cfg),
		bucket:  bucket,
		region:  region,
		baseURL: baseURL,
	}, nil
}

// UploadImage stores img under a generated key
func (u *S3Store) UploadImage(ctx context.Context, bucket Bucket, ownerID string, img Image) (*UploadResult, error) {
	now := time.Now().UTC()
	key, err := prepare(bucket, ownerID, img, now)
	if err != nil {
		return nil, err
	}

	putObjectInput := &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          img.Body,
		ContentType:   aws.String(img.ContentType),
		ContentLength: aws.Int64(img.Size),

		// Keys are never reused
		CacheControl: aws.String("max-age=31536000, immutable"),

		Metadata: map[string]string{
			"owner-id":          ownerID,
			"original-filename": img.Filename,
			"upload-timestamp":  now.Format(time.RFC3339),
			"bucket":            string(bucket),
		},
	}

	if _, err := u.client.PutObject(ctx, putObjectInput); err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{
		Key:    key,
		URL:    fmt.Sprintf("%s/%s", strings.TrimSuffix(u.baseURL, "/"), key),
		Bucket: string(bucket),
		Size:   img.Size,
	}, nil
}

// DeleteFile deletes a file from S3
func (u *S3Store) DeleteFile(ctx context.Context, key string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}

	return nil
}

// KeyFromURL recovers the object key from a CDN URL
func (u *S3Store) KeyFromURL(url string) (string, bool) {
	return keyFromURL(u.baseURL, url)
}

// CheckBucketAccess verifies that we can access the S3 bucket
func (u *S3Store) CheckBucketAccess(ctx context.Context) error {
	_, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(u.bucket),
	})
	if err != nil {
		return fmt.Errorf("cannot access S3 bucket %s: %w", u.bucket, err)
	}

	return nil
}
