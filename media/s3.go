package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds configuration for the S3-backed blob store.
type S3Config struct {
	Bucket string
	Region string
	// Endpoint overrides the AWS endpoint, for MinIO or LocalStack.
	Endpoint string
	// PublicBaseURL is the reader-facing prefix embedded in documents,
	// e.g. a CDN or the bucket website endpoint. Defaults to the virtual
	// hosted bucket URL.
	PublicBaseURL string
}

// S3Store keeps user media in an S3 bucket. Objects are addressed by content
// digest under their folder, so re-uploading identical bytes is idempotent.
type S3Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // required for MinIO/LocalStack
		}
	})

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &S3Store{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *S3Store) Upload(ctx context.Context, data []byte, contentType, folder string) (BlobRef, error) {
	sum := sha256.Sum256(data)
	key := folder + "/" + hex.EncodeToString(sum[:]) + extensionFor(contentType)

	ref := BlobRef{
		URL:        s.baseURL + "/" + key,
		StorageKey: key,
	}

	// identical bytes under the same folder are already there
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return ref, nil
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return BlobRef{}, fmt.Errorf("s3 put failed: %w", err)
	}

	return ref, nil
}

func (s *S3Store) Delete(ctx context.Context, storageKey string) error {
	if storageKey == "" {
		return fmt.Errorf("storage key is required")
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storageKey),
	})
	if err != nil {
		return fmt.Errorf("s3 delete failed for %s: %w", storageKey, err)
	}
	return nil
}
