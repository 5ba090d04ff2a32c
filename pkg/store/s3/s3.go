package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/marmos91/bucketfs/pkg/store"
)

// Client is the subset of the S3 API the store calls. *s3.Client satisfies it.
type Client interface {
	s3.ListObjectsV2APIClient
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
}

// S3ObjectStore implements store.ObjectStore on an S3 bucket.
//
// Keys map one to one onto S3 object keys. Listing uses ListObjectsV2 with
// transparent pagination, Stat uses HeadObject and Copy uses the native
// CopyObject so content never travels through this process.
//
// Compatible with AWS S3 and S3-compatible services (MinIO, Localstack,
// Ceph RGW).
//
// Thread Safety:
// The AWS SDK client is safe for concurrent use and the store keeps no
// mutable state of its own.
type S3ObjectStore struct {
	client Client
	bucket string
}

// S3ObjectStoreConfig contains configuration for the S3 store.
type S3ObjectStoreConfig struct {
	// Client is the configured S3 client (required).
	Client Client

	// Bucket is the bucket holding the namespace (required).
	Bucket string

	// SkipBucketCheck disables the HeadBucket probe at construction.
	SkipBucketCheck bool
}

// NewS3ObjectStore creates an S3-backed object store.
//
// Unless SkipBucketCheck is set the bucket is probed with HeadBucket so
// misconfiguration surfaces at startup instead of on the first request.
func NewS3ObjectStore(ctx context.Context, cfg S3ObjectStoreConfig) (*S3ObjectStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	if !cfg.SkipBucketCheck {
		_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
			Bucket: aws.String(cfg.Bucket),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &S3ObjectStore{client: cfg.Client, bucket: cfg.Bucket}, nil
}

// isNotFound recognises the different ways S3 reports a missing key:
// GetObject and CopyObject return NoSuchKey, HeadObject has no body and
// comes back as a bare NotFound.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

func translate(key string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("object %q: %w", key, store.ErrNotFound)
	}
	return err
}

func etag(tag *string) string {
	return strings.Trim(aws.ToString(tag), `"`)
}

// ============================================================================
// Reads
// ============================================================================

func (s *S3ObjectStore) List(ctx context.Context, prefix string) ([]store.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var result []store.ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %q: %w", prefix, err)
		}

		for _, obj := range page.Contents {
			result = append(result, store.ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				Hash:         etag(obj.ETag),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	return result, nil
}

func (s *S3ObjectStore) HasPrefix(ctx context.Context, prefix string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("failed to probe prefix %q: %w", prefix, err)
	}
	return len(out.Contents) > 0, nil
}

func (s *S3ObjectStore) Stat(ctx context.Context, key string) (store.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return store.ObjectInfo{}, err
	}

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return store.ObjectInfo{}, translate(key, err)
	}

	return store.ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		Hash:         etag(out.ETag),
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

func (s *S3ObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translate(key, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %q: %w", key, err)
	}
	return data, nil
}

// ============================================================================
// Writes
// ============================================================================

func (s *S3ObjectStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return store.ErrInvalidKey
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %q: %w", key, err)
	}
	return nil
}

func (s *S3ObjectStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete object %q: %w", key, err)
	}
	return nil
}

func (s *S3ObjectStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dstKey == "" {
		return store.ErrInvalidKey
	}

	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(copySource(s.bucket, srcKey)),
	})
	if err != nil {
		if isNotFound(err) {
			return translate(srcKey, err)
		}
		return fmt.Errorf("failed to copy %q to %q: %w", srcKey, dstKey, err)
	}
	return nil
}

// copySource builds the URL-encoded "bucket/key" value CopyObject expects.
// Segments are escaped individually so the delimiter survives.
func copySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return bucket + "/" + strings.Join(segments, "/")
}

// Close is a no-op, the SDK client has no resources to release.
func (s *S3ObjectStore) Close() error {
	return nil
}
