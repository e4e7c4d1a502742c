// Package attachstore persists ticket attachments on local disk with an
// optional mirror to S3-compatible object storage.
package attachstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

// ErrFileTooLarge rejects uploads beyond the configured size limit.
var ErrFileTooLarge = errors.New("attachment exceeds the maximum file size")

// Store writes attachments to disk and optionally mirrors them to S3.
type Store struct {
	config   *Config
	s3Client *s3.Client
	now      func() time.Time
}

// SaveResult describes where an attachment ended up.
type SaveResult struct {
	// FilePath is the local path the attachment was written to.
	FilePath string
	// Size is the number of bytes written.
	Size int64
	// ObjectKey is set when the attachment was mirrored to S3.
	ObjectKey string
}

// NewStore creates an attachment store. When the S3 mirror is enabled the
// bucket must be reachable at startup.
func NewStore(cfg *Config) (*Store, error) {
	if err := os.MkdirAll(cfg.LocalDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create attachment dir %s: %w", cfg.LocalDir, err)
	}

	store := &Store{config: cfg, now: time.Now}

	if cfg.MirrorEnabled {
		awsConfig, err := awsconfig.LoadDefaultConfig(context.TODO(),
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"",
			)),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		store.s3Client = s3.NewFromConfig(awsConfig, func(o *s3.Options) {
			if cfg.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.EndpointURL)
				// Backblaze B2 needs path-style URLs.
				o.UsePathStyle = true
				o.UseAccelerate = false
			}
		})

		if err := store.testConnection(); err != nil {
			return nil, fmt.Errorf("failed to connect to S3: %w", err)
		}
		log.Infof("[AttachStore] S3 mirror enabled for bucket: %s", cfg.BucketName)
	}

	return store, nil
}

func (s *Store) testConnection() error {
	_, err := s.s3Client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(s.config.BucketName),
	})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", s.config.BucketName, err)
	}
	return nil
}

// Save writes an attachment to local disk and mirrors it to S3 when enabled.
// The caller supplies the original filename only for its extension; the
// stored name is a fresh UUID.
func (s *Store) Save(r io.Reader, originalFilename string) (*SaveResult, error) {
	ext := filepath.Ext(originalFilename)
	id := uuid.New().String()
	localPath := filepath.Join(s.config.LocalDir, id+ext)

	file, err := os.Create(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create attachment file: %w", err)
	}

	// +1 so an oversized upload is detectable after the copy.
	size, err := io.Copy(file, io.LimitReader(r, s.config.MaxFileBytes+1))
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(localPath)
		return nil, fmt.Errorf("failed to write attachment: %w", err)
	}
	if size > s.config.MaxFileBytes {
		_ = os.Remove(localPath)
		return nil, fmt.Errorf("%w (%d byte limit)", ErrFileTooLarge, s.config.MaxFileBytes)
	}

	result := &SaveResult{FilePath: localPath, Size: size}

	if s.s3Client != nil {
		now := s.now()
		objectKey := s.config.ObjectKey(id, ext, now.Year(), int(now.Month()))
		if err := s.mirror(localPath, objectKey, size); err != nil {
			// The local copy is authoritative; a failed mirror is
			// logged and retried by the next housekeeping run.
			log.Errorf("[AttachStore] mirror of %s failed: %v", localPath, err)
		} else {
			result.ObjectKey = objectKey
		}
	}

	return result, nil
}

func (s *Store) mirror(localPath, objectKey string, size int64) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer file.Close()

	_, err = s.s3Client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket:        aws.String(s.config.BucketName),
		Key:           aws.String(objectKey),
		Body:          file,
		ContentType:   aws.String("application/octet-stream"),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	log.Infof("[AttachStore] mirrored: s3://%s/%s", s.config.BucketName, objectKey)
	return nil
}

// Delete removes an attachment from disk and, when mirrored, from S3.
func (s *Store) Delete(localPath, objectKey string) error {
	if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", localPath, err)
	}

	if s.s3Client != nil && objectKey != "" {
		_, err := s.s3Client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
			Bucket: aws.String(s.config.BucketName),
			Key:    aws.String(objectKey),
		})
		if err != nil {
			return fmt.Errorf("failed to delete object from S3: %w", err)
		}
	}

	return nil
}
