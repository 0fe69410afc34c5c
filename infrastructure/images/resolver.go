// Package images resolves image references to readable content.
package images

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	stdErrors "errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	fileScheme = "file://"
	s3Scheme   = "s3://"
)

// FileResolver opens local paths, with or without the file:// prefix.
type FileResolver struct{}

var _ contract.ImageResolver = FileResolver{}

func (FileResolver) Open(_ context.Context, ref string) (domain.ImageSource, error) {
	path := strings.TrimPrefix(ref, fileScheme)
	info, err := os.Stat(path)
	if err != nil {
		if stdErrors.Is(err, fs.ErrNotExist) {
			return domain.ImageSource{}, fmt.Errorf("%w: %s", errors.ErrImageNotFound, path)
		}
		return domain.ImageSource{}, err
	}
	if !info.Mode().IsRegular() {
		return domain.ImageSource{}, fmt.Errorf("%w: %s is not a regular file", errors.ErrImageNotFound, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return domain.ImageSource{}, err
	}
	return domain.ImageSource{Ref: ref, Size: info.Size(), Body: f}, nil
}

// ObjectGetter is the subset of the S3 client the resolver needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Resolver opens s3://bucket/key references.
type S3Resolver struct {
	client ObjectGetter
}

var _ contract.ImageResolver = (*S3Resolver)(nil)

func NewS3Resolver(client ObjectGetter) *S3Resolver {
	return &S3Resolver{client: client}
}

type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewS3Client builds a path-style client so MinIO endpoints work as well as AWS.
func NewS3Client(ctx context.Context, c S3Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(c.Region)}
	if c.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3 config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
		o.UsePathStyle = true
	}), nil
}

func (r *S3Resolver) Open(ctx context.Context, ref string) (domain.ImageSource, error) {
	bucket, key, ok := strings.Cut(strings.TrimPrefix(ref, s3Scheme), "/")
	if !ok || bucket == "" || key == "" {
		return domain.ImageSource{}, fmt.Errorf("%w: malformed reference %s", errors.ErrImageNotFound, ref)
	}
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		var noKey *types.NoSuchKey
		var notFound *types.NotFound
		var noBucket *types.NoSuchBucket
		if stdErrors.As(err, &noKey) || stdErrors.As(err, &notFound) || stdErrors.As(err, &noBucket) {
			return domain.ImageSource{}, fmt.Errorf("%w: %s", errors.ErrImageNotFound, ref)
		}
		return domain.ImageSource{}, fmt.Errorf("s3 get %s: %w", ref, err)
	}
	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return domain.ImageSource{Ref: ref, Size: size, Body: out.Body}, nil
}

// SchemeResolver dispatches s3:// references to S3 and everything else to files.
// Without an S3 resolver, s3:// references are reported as not found.
type SchemeResolver struct {
	files   FileResolver
	objects contract.ImageResolver
}

var _ contract.ImageResolver = (*SchemeResolver)(nil)

func NewSchemeResolver(objects contract.ImageResolver) *SchemeResolver {
	return &SchemeResolver{objects: objects}
}

func (r *SchemeResolver) Open(ctx context.Context, ref string) (domain.ImageSource, error) {
	if strings.HasPrefix(ref, s3Scheme) {
		if r.objects == nil {
			return domain.ImageSource{}, fmt.Errorf("%w: no object storage configured for %s", errors.ErrImageNotFound, ref)
		}
		return r.objects.Open(ctx, ref)
	}
	return r.files.Open(ctx, ref)
}
