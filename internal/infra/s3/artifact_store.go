package s3

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Options describes an S3-compatible bucket (AWS, Spaces, MinIO).
type Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// PublicBaseURL overrides the URL prefix handed back for stored objects.
	PublicBaseURL string
}

// ArtifactStore uploads proof artifacts as public-read objects.
type ArtifactStore struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func NewArtifactStore(ctx context.Context, opts Options) (*ArtifactStore, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket is required")
	}
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &ArtifactStore{
		client:  client,
		bucket:  opts.Bucket,
		baseURL: publicBaseURL(opts),
	}, nil
}

func (s *ArtifactStore) Put(ctx context.Context, path, contentType string, data []byte) (string, error) {
	key := strings.TrimLeft(path, "/")
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.URL(key), nil
}

// URL is the public reference of an object key.
func (s *ArtifactStore) URL(key string) string {
	return s.baseURL + "/" + strings.TrimLeft(key, "/")
}

func publicBaseURL(opts Options) string {
	switch {
	case opts.PublicBaseURL != "":
		return strings.TrimRight(opts.PublicBaseURL, "/")
	case opts.Endpoint != "":
		return strings.TrimRight(opts.Endpoint, "/") + "/" + opts.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
	}
}
