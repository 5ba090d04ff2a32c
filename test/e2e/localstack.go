//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/bucketfs/pkg/config"
)

// localstackEndpoint returns the S3 endpoint to test against, or "" when
// the S3 suite is not enabled (LOCALSTACK_ENDPOINT unset).
func localstackEndpoint() string {
	return os.Getenv("LOCALSTACK_ENDPOINT")
}

// NewS3StoreConfig creates a fresh bucket on Localstack and returns a
// store configuration pointing at it. The bucket is emptied and removed on
// cleanup.
func NewS3StoreConfig(t *testing.T, endpoint string) config.StoreConfig {
	t.Helper()

	ctx := t.Context()
	awsCfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	if err != nil {
		t.Fatalf("failed to load AWS config: %v", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	bucket := fmt.Sprintf("bucketfs-e2e-%d", time.Now().UnixNano())
	if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		t.Fatalf("failed to create bucket %s: %v", bucket, err)
	}

	t.Cleanup(func() {
		// t.Context is already cancelled during cleanup.
		cleanupCtx := context.Background()
		out, err := client.ListObjectsV2(cleanupCtx, &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})
		if err == nil {
			for _, obj := range out.Contents {
				_, _ = client.DeleteObject(cleanupCtx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: obj.Key})
			}
		}
		_, _ = client.DeleteBucket(cleanupCtx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)})
	})

	return config.StoreConfig{
		Type:      "s3",
		KeyPrefix: "e2e",
		S3: map[string]any{
			"bucket":            bucket,
			"region":            "us-east-1",
			"endpoint":          endpoint,
			"access_key_id":     "test",
			"secret_access_key": "test",
		},
	}
}
