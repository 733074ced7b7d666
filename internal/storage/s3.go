package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/tallyform/tallyform/internal/shared"
)

// markerName materializes an otherwise-empty prefix as a container.
const markerName = ".keep"

// S3Config holds explicit construction parameters for the S3 store.
// Endpoint and PathStyle support S3-compatible backends such as MinIO.
type S3Config struct {
	Bucket          string
	Root            string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
}

// S3Store maps containers onto key prefixes in a single bucket. A
// container exists when its marker object does; blobs are objects under
// the container's prefix.
type S3Store struct {
	client *s3.Client
	bucket string
	root   string
}

// NewS3 creates an S3-backed Store.
func NewS3(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 bucket required", shared.ErrConfiguration)
	}
	if cfg.Root == "" {
		return nil, fmt.Errorf("%w: storage root required", shared.ErrConfiguration)
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %v", shared.ErrConfiguration, err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3Store{client: client, bucket: cfg.Bucket, root: strings.Trim(cfg.Root, "/")}, nil
}

func (s *S3Store) Root() Container {
	return Container{Path: s.root, Name: s.root}
}

func (s *S3Store) markerKey(path string) string {
	return path + "/" + markerName
}

func (s *S3Store) Child(ctx context.Context, parent Container, name string) (Container, bool, error) {
	key := s.markerKey(childPath(parent, name))
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		if isS3NotFound(err) {
			return Container{}, false, nil
		}
		return Container{}, false, fmt.Errorf("%w: head %s: %v", shared.ErrProvisioning, key, err)
	}
	return Container{Path: childPath(parent, name), Name: name}, true, nil
}

func (s *S3Store) CreateChild(ctx context.Context, parent Container, name string) (Container, error) {
	key := s.markerKey(childPath(parent, name))
	// Create-only: IfNoneMatch makes a lost race surface as a
	// precondition failure instead of a silent double create.
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(nil),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		if isS3PreconditionFailed(err) {
			return Container{}, fmt.Errorf("%w: container %s/%s", shared.ErrDuplicate, parent.Path, name)
		}
		return Container{}, fmt.Errorf("%w: put %s: %v", shared.ErrProvisioning, key, err)
	}
	return Container{Path: childPath(parent, name), Name: name}, nil
}

func (s *S3Store) Children(ctx context.Context, parent Container) ([]Container, error) {
	prefix := parent.Path + "/"
	delimiter := "/"
	var out []Container
	var token *string
	for {
		resp, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &s.bucket,
			Prefix:            &prefix,
			Delimiter:         &delimiter,
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: list %s: %v", shared.ErrProvisioning, parent.Path, err)
		}
		for _, cp := range resp.CommonPrefixes {
			if cp.Prefix == nil {
				continue
			}
			name := strings.TrimSuffix(strings.TrimPrefix(*cp.Prefix, prefix), "/")
			out = append(out, Container{Path: childPath(parent, name), Name: name})
		}
		if resp.IsTruncated == nil || !*resp.IsTruncated {
			break
		}
		token = resp.NextContinuationToken
	}
	return out, nil
}

func (s *S3Store) Put(ctx context.Context, c Container, name string, data io.Reader) (string, error) {
	key := c.Path + "/" + name
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{Bucket: &s.bucket, Key: &key, Body: data}); err != nil {
		return "", fmt.Errorf("put blob %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey" || code == "404"
	}
	return false
}

func isS3PreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "PreconditionFailed"
	}
	return false
}
