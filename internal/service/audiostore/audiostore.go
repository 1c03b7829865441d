package audiostore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/husainf4l/baridai-sub000/common"
	"github.com/husainf4l/baridai-sub000/common/logger"
)

var ErrEmptyKey = errors.New("object key cannot be empty")

type Config struct {
	Bucket    string
	Region    string
	Endpoint  string // S3-compatible endpoint; forces path-style addressing
	AccessKey string
	SecretKey string
	Prefix    string
	URLExpiry time.Duration
}

// Store keeps synthesized voice replies in S3 and hands out presigned GET
// URLs the messaging platform can fetch.
type Store struct {
	bucket    string
	prefix    string
	expiry    time.Duration
	uploader  *manager.Uploader
	presigner *s3.PresignClient
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("audio store bucket is required")
	}
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = time.Hour
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{
		bucket:    cfg.Bucket,
		prefix:    common.SlugPath(strings.Split(cfg.Prefix, "/")...),
		expiry:    cfg.URLExpiry,
		uploader:  manager.NewUploader(client),
		presigner: s3.NewPresignClient(client),
	}, nil
}

// Upload stores data under prefix/key and returns a presigned URL for it.
func (s *Store) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "relay.service.audiostore"})

	key = strings.Trim(key, "/")
	if key == "" {
		return "", ErrEmptyKey
	}
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}

	if _, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}); err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("presigning %s: %w", key, err)
	}

	slog.DebugContext(ctx, "audio uploaded", "key", key, "bytes", len(data))
	return req.URL, nil
}
