package publish

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter is the part of the S3 API the sink uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads the markdown, and the note snapshot beside it, to S3.
type S3Sink struct {
	Bucket string
	Key    string
	Client ObjectPutter
}

// ParseS3URL splits s3://bucket/key. A key ending in "/" is a prefix.
func ParseS3URL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parsing %q: %w", raw, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid S3 target %q, want s3://bucket/key", raw)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// NewS3Sink builds an S3 sink using the default AWS credential chain.
func NewS3Sink(ctx context.Context, target, region string) (*S3Sink, error) {
	bucket, key, err := ParseS3URL(target)
	if err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	return &S3Sink{Bucket: bucket, Key: key, Client: s3.NewFromConfig(cfg)}, nil
}

func (s *S3Sink) objectKey(tag string) string {
	if s.Key == "" || strings.HasSuffix(s.Key, "/") {
		name := tag
		if name == "" {
			name = "release-note"
		}
		return s.Key + name + ".md"
	}
	return s.Key
}

func (s *S3Sink) Publish(ctx context.Context, a Artifact) (string, error) {
	key := s.objectKey(a.Tag)
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(a.Markdown),
		ContentType: aws.String("text/markdown; charset=utf-8"),
	})
	if err != nil {
		return "", fmt.Errorf("uploading s3://%s/%s: %w", s.Bucket, key, err)
	}

	if a.Note != nil {
		data, err := marshalNote(a.Note)
		if err != nil {
			return "", err
		}
		jsonKey := strings.TrimSuffix(key, path.Ext(key)) + ".json"
		_, err = s.Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.Bucket),
			Key:         aws.String(jsonKey),
			Body:        strings.NewReader(string(data)),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return "", fmt.Errorf("uploading s3://%s/%s: %w", s.Bucket, jsonKey, err)
		}
	}
	return fmt.Sprintf("s3://%s/%s", s.Bucket, key), nil
}
