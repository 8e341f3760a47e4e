package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/aq2208/gstore-api/internal/usecase"
)

type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string // for MinIO or localstack; empty uses AWS
	PublicURL string // prefix of returned refs; defaults to the virtual-hosted bucket URL
	Prefix    string // key prefix inside the bucket
}

// ObjectAPI is the part of *s3.Client used here.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3 struct {
	api       ObjectAPI
	bucket    string
	prefix    string
	publicURL string
}

// NewS3 loads credentials from the default AWS chain.
func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3WithClient(client, opts), nil
}

func NewS3WithClient(api ObjectAPI, opts S3Options) *S3 {
	public := opts.PublicURL
	if public == "" {
		public = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
	}
	return &S3{
		api:       api,
		bucket:    opts.Bucket,
		prefix:    strings.Trim(opts.Prefix, "/"),
		publicURL: strings.TrimRight(public, "/"),
	}
}

func (s *S3) key(container, file string) string {
	return path.Join(s.prefix, container, file)
}

func (s *S3) Save(ctx context.Context, data []byte, contentType, ext, container, name string) (string, error) {
	file, err := cleanName(name + ext)
	if err != nil {
		return "", err
	}
	key := s.key(container, file)
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	return s.publicURL + "/" + key, nil
}

func (s *S3) Delete(ctx context.Context, ref, container string) error {
	file, err := fileFromRef(ref)
	if err != nil {
		return err
	}
	key := s.key(container, file)
	if _, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

var _ usecase.FileStorage = (*S3)(nil)
