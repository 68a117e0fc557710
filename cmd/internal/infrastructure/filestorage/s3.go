package filestorage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/labstack/gommon/log"

	"clinicalnotes/cmd/internal/config"
)

type S3Backend struct {
	bucket string
	client *s3.Client
}

// NewS3Backend builds the client once. Path-style addressing keeps
// S3-compatible endpoints (MinIO and friends) working.
func NewS3Backend(ctx context.Context, cfg config.S3Config) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
		o.Retryer = aws.NopRetryer{}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	return NewS3BackendWithClient(client, cfg.Bucket), nil
}

func NewS3BackendWithClient(client *s3.Client, bucket string) *S3Backend {
	return &S3Backend{bucket: bucket, client: client}
}

func (s *S3Backend) Save(ctx context.Context, data []byte, relPath, contentType string) (string, error) {
	if relPath == "" {
		return "", fmt.Errorf("%w: object key is empty", ErrStorageFault)
	}

	mimeType := resolveContentType(data, relPath, contentType)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(relPath),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(mimeType),
		ContentLength: aws.Int64(int64(len(data))),
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("%w: s3 upload: %v", ErrStorageFault, err)
	}

	log.Debugf("uploaded %d bytes to s3://%s/%s", len(data), s.bucket, relPath)
	return relPath, nil
}

func (s *S3Backend) Open(ctx context.Context, relPath string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(relPath),
	})

	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, relPath)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: s3 download: %v", ErrStorageFault, err)
	}
	return out.Body, nil
}

func resolveContentType(data []byte, name, given string) string {
	if given != "" {
		return given
	}

	if byExt := mime.TypeByExtension(filepath.Ext(name)); byExt != "" {
		return byExt
	}
	return http.DetectContentType(data)
}

var _ Backend = (*S3Backend)(nil)
