package storage

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PresignedURLExpiry is the default expiration time for presigned URLs
const PresignedURLExpiry = 1 * time.Hour

// PresignClient wraps the S3 presign client
type PresignClient struct {
	client *s3.PresignClient
}

// NewPresignClient creates a new presign client, nil when storage is
// disabled.
func NewPresignClient() *PresignClient {
	if !IsEnabled() {
		return nil
	}
	return &PresignClient{
		client: s3.NewPresignClient(s3Client),
	}
}

// GenerateUploadURL generates a presigned URL for uploading an object
func (p *PresignClient) GenerateUploadURL(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	if expiry == 0 {
		expiry = PresignedURLExpiry
	}

	result, err := p.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expiry))

	if err != nil {
		return "", err
	}

	return result.URL, nil
}

// GenerateDownloadURL generates a presigned URL for downloading an
// object
func (p *PresignClient) GenerateDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry == 0 {
		expiry = PresignedURLExpiry
	}

	result, err := p.client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))

	if err != nil {
		return "", err
	}

	return result.URL, nil
}
