package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/gophauth/internal/filex"
	sc "github.com/dmitrijs2005/gophauth/internal/server/config"
)

// LocalURLPrefix is the path under which the local store's files are served.
const LocalURLPrefix = "uploads"

// PhotoStore persists an encoded profile photo and returns the URL that is
// written to users.photo_url.
type PhotoStore interface {
	Save(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}

// LocalPhotoStore writes photos into a directory on disk.
type LocalPhotoStore struct {
	dir string
}

func NewLocalPhotoStore(dir string) (*LocalPhotoStore, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	return &LocalPhotoStore{dir: abs}, nil
}

// Dir is the absolute directory photos are written to.
func (s *LocalPhotoStore) Dir() string { return s.dir }

func (s *LocalPhotoStore) Save(_ context.Context, key, _ string, r io.Reader) (string, error) {
	if strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("invalid photo key %q", key)
	}
	if _, err := filex.WriteFile(s.dir, key, r); err != nil {
		return "", err
	}
	return path.Join(LocalURLPrefix, key), nil
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

// S3PhotoStore uploads photos to an S3-compatible bucket (MinIO in
// development).
type S3PhotoStore struct {
	client   *s3.Client
	bucket   string
	endpoint string
}

func NewS3PhotoStore(ctx context.Context, cfg *sc.Config) (*S3PhotoStore, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("error loading s3 config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3PhotoStore{
		client:   client,
		bucket:   cfg.S3Bucket,
		endpoint: strings.TrimRight(cfg.S3BaseEndpoint, "/"),
	}, nil
}

func (s *S3PhotoStore) Save(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("error reading photo: %w", err)
	}

	_, err = putObject(s.client, ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("error uploading photo: %w", err)
	}

	return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key), nil
}
