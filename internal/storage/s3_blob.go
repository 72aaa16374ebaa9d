// Package storage provides blob-based persistence with pluggable backends.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/bobmcallan/assessor/internal/common"
)

// S3BlobStore implements BlobStore against an S3-compatible bucket, built
// on the AWS SDK v2 client.
type S3BlobStore struct {
	client *s3.Client
	bucket string
	prefix string
	logger *common.Logger
}

// NewS3BlobStore creates a new S3-backed blob store. An Endpoint is
// honored for S3-compatible stores (MinIO, R2); AccessKey/SecretKey are
// optional and fall back to the default AWS credential chain when unset.
func NewS3BlobStore(ctx context.Context, logger *common.Logger, cfg *S3BlobConfig) (*S3BlobStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 blob store bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) {
				return aws.Credentials{AccessKeyID: cfg.AccessKey, SecretAccessKey: cfg.SecretKey}, nil
			})))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Debug().Str("bucket", cfg.Bucket).Str("endpoint", cfg.Endpoint).Msg("S3BlobStore initialized")

	return &S3BlobStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, logger: logger}, nil
}

func (sb *S3BlobStore) objectKey(key string) string {
	if sb.prefix == "" {
		return key
	}
	return strings.TrimSuffix(sb.prefix, "/") + "/" + key
}

func (sb *S3BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := sb.GetReader(ctx, key)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (sb *S3BlobStore) GetReader(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := sb.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(sb.bucket),
		Key:    aws.String(sb.objectKey(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("s3 get object %s: %w", key, err)
	}
	return out.Body, nil
}

func (sb *S3BlobStore) Put(ctx context.Context, key string, data []byte) error {
	return sb.PutReader(ctx, key, bytes.NewReader(data), int64(len(data)))
}

func (sb *S3BlobStore) PutReader(ctx context.Context, key string, r io.Reader, size int64) error {
	_, err := sb.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(sb.bucket),
		Key:    aws.String(sb.objectKey(key)),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("s3 put object %s: %w", key, err)
	}
	return nil
}

func (sb *S3BlobStore) Delete(ctx context.Context, key string) error {
	_, err := sb.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(sb.bucket),
		Key:    aws.String(sb.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("s3 delete object %s: %w", key, err)
	}
	return nil
}

func (sb *S3BlobStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := sb.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(sb.bucket),
		Key:    aws.String(sb.objectKey(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("s3 head object %s: %w", key, err)
	}
	return true, nil
}

func (sb *S3BlobStore) Metadata(ctx context.Context, key string) (*BlobMetadata, error) {
	out, err := sb.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(sb.bucket),
		Key:    aws.String(sb.objectKey(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("s3 head object %s: %w", key, err)
	}
	meta := &BlobMetadata{Key: key}
	if out.ContentLength != nil {
		meta.Size = *out.ContentLength
	}
	if out.LastModified != nil {
		meta.LastModified = *out.LastModified
	}
	if out.ETag != nil {
		meta.ETag = strings.Trim(*out.ETag, `"`)
	}
	return meta, nil
}

func (sb *S3BlobStore) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	maxKeys := int32(opts.MaxKeys)
	if maxKeys <= 0 {
		maxKeys = 1000
	}
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(sb.bucket),
		Prefix:  aws.String(sb.objectKey(opts.Prefix)),
		MaxKeys: aws.Int32(maxKeys),
	}
	if opts.Cursor != "" {
		input.ContinuationToken = aws.String(opts.Cursor)
	}
	out, err := sb.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("s3 list objects: %w", err)
	}

	result := &ListResult{}
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		if sb.prefix != "" {
			key = strings.TrimPrefix(key, strings.TrimSuffix(sb.prefix, "/")+"/")
		}
		meta := BlobMetadata{Key: key}
		if obj.Size != nil {
			meta.Size = *obj.Size
		}
		if obj.LastModified != nil {
			meta.LastModified = *obj.LastModified
		}
		result.Blobs = append(result.Blobs, meta)
	}
	if out.IsTruncated != nil {
		result.Truncated = *out.IsTruncated
	}
	result.NextCursor = aws.ToString(out.NextContinuationToken)
	return result, nil
}

func (sb *S3BlobStore) Close() error { return nil }

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if ok := errors.As(err, &apiErr); ok {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

var _ BlobStore = (*S3BlobStore)(nil)
