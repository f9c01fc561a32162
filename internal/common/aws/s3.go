// internal/common/aws/s3.go
package aws

import (
	"context"
	"errors"
	"fmt"
	"io"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3API is the narrow slice of the S3 client used for run archives.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

type S3Config struct {
	ClientConfig
	// UsePathStyle forces path-style addressing for S3-compatible providers.
	UsePathStyle bool
}

type S3Client struct {
	client S3API
}

func NewS3Client(ctx context.Context, cfg S3Config) (*S3Client, error) {
	awsCfg, err := loadConfig(ctx, cfg.ClientConfig)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	c := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3Client{client: c}, nil
}

func NewS3ClientWithAPI(api S3API) *S3Client {
	return &S3Client{client: api}
}

// Put uploads body to bucket/key. contentType is optional.
func (s *S3Client) Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket: awssdk.String(bucket),
		Key:    awssdk.String(key),
		Body:   body,
	}
	if contentType != "" {
		in.ContentType = awssdk.String(contentType)
	}
	_, err := s.client.PutObject(ctx, in)
	return err
}

// Exists reports whether bucket/key is present.
func (s *S3Client) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: awssdk.String(bucket),
		Key:    awssdk.String(key),
	})
	if err == nil {
		return true, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey") {
		return false, nil
	}
	return false, err
}
