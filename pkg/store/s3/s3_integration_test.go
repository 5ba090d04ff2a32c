//go:build integration

package s3

import (
	"context"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/marmos91/bucketfs/pkg/store"
	storetesting "github.com/marmos91/bucketfs/pkg/store/testing"
	"github.com/stretchr/testify/require"
)

// TestS3ObjectStore_Integration runs the conformance suite against a real
// S3-compatible service (Localstack).
//
// Prerequisites:
//   - Localstack running on localhost:4566
//   - Run with: go test -tags=integration ./pkg/store/s3/...
//
// To start Localstack:
//
//	docker run --rm -p 4566:4566 localstack/localstack
func TestS3ObjectStore_Integration(t *testing.T) {
	ctx := context.Background()

	endpoint := os.Getenv("LOCALSTACK_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}

	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	require.NoError(t, err)

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	bucketName := "bucketfs-test-" + uuid.NewString()[:8]
	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucketName)})
	require.NoError(t, err)

	backend, err := NewS3ObjectStore(ctx, S3ObjectStoreConfig{Client: client, Bucket: bucketName})
	require.NoError(t, err)

	t.Cleanup(func() {
		objects, _ := backend.List(ctx, "")
		for _, obj := range objects {
			_ = backend.Delete(ctx, obj.Key)
		}
		_, _ = client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucketName)})
	})

	suite := &storetesting.StoreTestSuite{
		// Subtests share the bucket, each gets its own key prefix.
		NewStore: func(t *testing.T) store.ObjectStore {
			return store.Prefixed(backend, "suite/"+uuid.NewString())
		},
	}

	suite.Run(t)
}
