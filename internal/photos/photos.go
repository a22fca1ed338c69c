// Package photos stores equipment photos in an S3 compatible bucket. Clients upload and download the photos
// directly with presigned URLs.
package photos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultURLExpiry is used when Config.URLExpiry is not positive.
const DefaultURLExpiry = 15 * time.Minute

// ErrNoBucket is returned when the bucket is not configured.
var ErrNoBucket = errors.New("photo bucket not configured")

type Config struct {
	Bucket string
	Region string
	// Endpoint points to an S3 compatible service such as MinIO. Empty uses AWS.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	URLExpiry       time.Duration
}

// Storage implements the photo storage of the workout service.
type Storage struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	expiry  time.Duration
	logger  *slog.Logger
}

// New creates an S3 client. Static credentials are used when both keys are set, otherwise the default AWS
// credential chain.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Storage, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// S3 compatible services rarely support virtual hosted buckets.
			o.UsePathStyle = true
		}
	})

	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = DefaultURLExpiry
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "photo storage configured",
		slog.String("bucket", cfg.Bucket), slog.String("endpoint", cfg.Endpoint))

	return &Storage{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		expiry:  expiry,
		logger:  logger,
	}, nil
}

// PresignUpload returns a URL the client can PUT the photo to.
func (s *Storage) PresignUpload(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{ //nolint:exhaustruct // optional fields.
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", key, err)
	}
	return req.URL, nil
}

// PresignDownload returns a URL the client can GET the photo from.
func (s *Storage) PresignDownload(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{ //nolint:exhaustruct // optional fields.
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{ //nolint:exhaustruct // optional fields.
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	s.logger.LogAttrs(ctx, slog.LevelDebug, "deleted photo", slog.String("key", key))
	return nil
}
