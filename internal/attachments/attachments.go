// Package attachments stores complaint attachments in an S3-compatible bucket
// (Cloudflare R2 in production) and hands back their public URL.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"kiitcms/backend/internal/apperr"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const (
	MaxSize = 10 << 20
	Folder  = "complaints"
)

var ErrNotConfigured = errors.New("attachment storage not configured")

var allowedTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// ObjectPutter is the single S3 call the uploader makes.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicURL       string
}

type Uploader struct {
	Client    ObjectPutter
	Bucket    string
	PublicURL string
}

// Attachment describes a stored object.
type Attachment struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	ContentType string `json:"mimetype"`
	Size        int64  `json:"size"`
}

// NewR2Uploader builds an uploader against the account's R2 endpoint.
func NewR2Uploader(ctx context.Context, cfg R2Config) (*Uploader, error) {
	if cfg.AccountID == "" || cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
	})

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.r2.dev", cfg.Bucket)
	}
	return &Uploader{Client: client, Bucket: cfg.Bucket, PublicURL: strings.TrimRight(publicURL, "/")}, nil
}

// Upload stores body under a fresh key. Oversized files and unsupported
// types are rejected before anything is sent.
func (u *Uploader) Upload(ctx context.Context, filename, contentType string, size int64, body io.Reader) (*Attachment, error) {
	if u == nil || u.Client == nil {
		return nil, apperr.Wrap(apperr.KindTransientIO, "attachment uploads are unavailable", ErrNotConfigured)
	}
	if size <= 0 || size > MaxSize {
		return nil, apperr.Validation(fmt.Sprintf("attachment must be between 1 byte and %d MB", MaxSize>>20))
	}
	contentType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if !allowedTypes[contentType] {
		return nil, apperr.Validation("attachment must be a JPEG, PNG, WebP image or a PDF")
	}

	key := fmt.Sprintf("%s/%s%s", Folder, uuid.NewString(), strings.ToLower(filepath.Ext(filename)))
	_, err := u.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.Bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransientIO, "attachment upload failed", err)
	}

	return &Attachment{
		URL:         u.PublicURL + "/" + key,
		Key:         key,
		ContentType: contentType,
		Size:        size,
	}, nil
}
