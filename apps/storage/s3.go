package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/getevo/evo/v2/lib/log"
	"github.com/getevo/evo/v2/lib/settings"
	"github.com/google/uuid"
)

var (
	s3Client *s3.Client
	bucket   string
	enabled  bool
)

// Initialize sets up the S3 client from settings. Attachments are
// disabled, not broken, when S3 is not configured.
func Initialize() error {
	enabled = settings.Get("S3.ENABLED").Bool()
	if !enabled {
		log.Info("S3 storage is disabled")
		return nil
	}

	bucket = settings.Get("S3.BUCKET").String()
	endpoint := settings.Get("S3.ENDPOINT").String()
	region := settings.Get("S3.REGION").String()
	accessKey := settings.Get("S3.ACCESS_KEY").String()
	secretKey := settings.Get("S3.SECRET_KEY").String()

	if bucket == "" || endpoint == "" || accessKey == "" || secretKey == "" {
		return fmt.Errorf("S3 configuration incomplete")
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	cfg := aws.Config{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		EndpointResolverWithOptions: aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               endpoint,
					SigningRegion:     region,
					HostnameImmutable: true,
				}, nil
			},
		),
	}

	s3Client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true // Required for S3-compatible services
	})

	log.Info("S3 storage initialized: bucket=%s, endpoint=%s", bucket, endpoint)
	return nil
}

// IsEnabled returns whether S3 storage is enabled
func IsEnabled() bool {
	return enabled && s3Client != nil
}

// Upload uploads an object to S3
func Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if !IsEnabled() {
		return fmt.Errorf("S3 storage not enabled")
	}

	_, err := s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})

	return err
}

// Download downloads an object from S3
func Download(ctx context.Context, key string) ([]byte, string, error) {
	if !IsEnabled() {
		return nil, "", fmt.Errorf("S3 storage not enabled")
	}

	result, err := s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", err
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, "", err
	}

	contentType := ""
	if result.ContentType != nil {
		contentType = *result.ContentType
	}

	return data, contentType, nil
}

// Delete deletes an object from S3
func Delete(ctx context.Context, key string) error {
	if !IsEnabled() {
		return fmt.Errorf("S3 storage not enabled")
	}

	_, err := s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})

	return err
}

// Exists checks whether an object exists in S3
func Exists(ctx context.Context, key string) (bool, error) {
	if !IsEnabled() {
		return false, fmt.Errorf("S3 storage not enabled")
	}

	_, err := s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		// S3-compatible services report absence through the message
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404") {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// ObjectSize returns the size of an object in bytes.
func ObjectSize(ctx context.Context, key string) (int64, error) {
	if !IsEnabled() {
		return 0, fmt.Errorf("S3 storage not enabled")
	}

	result, err := s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, err
	}
	if result.ContentLength == nil {
		return 0, nil
	}
	return *result.ContentLength, nil
}

// GenerateKey builds a unique object key under prefix, keeping the
// original file extension.
func GenerateKey(prefix, filename string) string {
	ext := filepath.Ext(filename)
	return fmt.Sprintf("%s/%s%s", prefix, uuid.New().String(), ext)
}

// GetUploadPrefix returns the configured attachment prefix.
func GetUploadPrefix() string {
	prefix := settings.Get("S3.UPLOAD_PREFIX").String()
	if prefix == "" {
		prefix = "attachments"
	}
	return prefix
}

// GetBucket returns the configured bucket name
func GetBucket() string {
	return bucket
}
