package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/hearthline/chartpress/internal/config"
	"github.com/hearthline/chartpress/internal/domain"
)

// S3Config holds explicit construction parameters. Credentials default to
// the SDK chain; static keys are only for pointing at MinIO in development.
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// s3API is the slice of the S3 client the store calls, so tests can swap in
// a fake.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3 writes artifacts to a single bucket under an optional key prefix.
type S3 struct {
	client s3API
	bucket string
	prefix string
}

func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 artifact store: bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = os.Getenv("ARTIFACT_S3_ENDPOINT")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3 artifact store: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
			o.UsePathStyle = true
		}
	})
	return &S3{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *S3) Driver() string { return config.DriverS3 }

func (s *S3) Put(ctx context.Context, a domain.Artifact) error {
	if a.Key == "" {
		return fmt.Errorf("empty artifact key")
	}
	key := s.objectKey(a.Key)
	in := &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
		Body:   bytes.NewReader(a.Body),
	}
	if a.ContentType != "" {
		in.ContentType = &a.ContentType
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("artifact %s: %w", a.Key, err)
	}
	return nil
}

func (s *S3) Get(ctx context.Context, key string) (domain.Artifact, error) {
	objKey := s.objectKey(key)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &objKey})
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("artifact %s: %w", key, err)
	}
	defer out.Body.Close()
	body, err := io.ReadAll(out.Body)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("artifact %s: %w", key, err)
	}
	a := domain.Artifact{Key: key, Body: body}
	if out.ContentType != nil {
		a.ContentType = *out.ContentType
	}
	if out.LastModified != nil {
		a.RenderedAt = *out.LastModified
	}
	return a, nil
}

func (s *S3) List(ctx context.Context, prefix string) ([]string, error) {
	objPrefix := s.objectKey(prefix)
	var keys []string
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &s.bucket,
			Prefix:            &objPrefix,
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list artifacts: %w", err)
		}
		for _, obj := range out.Contents {
			if obj.Key != nil {
				keys = append(keys, strings.TrimPrefix(*obj.Key, s.keyPrefix()))
			}
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		token = out.NextContinuationToken
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *S3) objectKey(key string) string {
	return s.keyPrefix() + path.Clean("/"+key)[1:]
}

func (s *S3) keyPrefix() string {
	if s.prefix == "" {
		return ""
	}
	return strings.TrimSuffix(s.prefix, "/") + "/"
}
