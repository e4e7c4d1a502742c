package attachstore

import (
	"errors"
	"fmt"

	"github.com/plexdev/plexaddons-api/internal/pkg/env"
)

// Config holds the attachment storage configuration.
type Config struct {
	// LocalDir is where attachments land on disk.
	LocalDir string

	// S3 mirror settings, optional.
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // for S3-compatible services
	MirrorEnabled   bool

	// MaxFileBytes caps a single attachment upload.
	MaxFileBytes int64
}

// LoadConfig loads attachment storage configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		LocalDir:        env.GetEnv("ATTACHMENT_DIR", "./data/attachments"),
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-west-001"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		MirrorEnabled:   env.GetEnvBool("S3_MIRROR_ENABLED", false),
		MaxFileBytes:    env.GetEnvInt64("ATTACHMENT_MAX_BYTES", 10*1024*1024),
	}

	if config.MirrorEnabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when the S3 mirror is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when the S3 mirror is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when the S3 mirror is enabled")
		}
	}

	return config, nil
}

// ObjectKey generates the S3 object key for a ticket attachment.
// Format: attachments/YYYY/MM/<id><ext>
func (c *Config) ObjectKey(attachmentID string, fileExtension string, year, month int) string {
	return fmt.Sprintf("attachments/%04d/%02d/%s%s", year, month, attachmentID, fileExtension)
}
