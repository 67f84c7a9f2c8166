package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of *s3.Client that S3Store uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	s3.ListObjectsV2APIClient
}

// S3Store stores recordings in AWS S3 or an S3-compatible service.
//
// Example usage:
//
//	client := upload.NewS3Client(upload.S3Options{Region: "eu-west-1"})
//	store := upload.NewS3Store(client, "my-bucket", "recs/", 32<<20)
//
//	r.Post("/recs", upload.Handler(store))
type S3Store struct {
	client  S3API
	bucket  string
	prefix  string
	maxSize int64
}

// NewS3Store creates a new S3 recording store.
//
// Parameters:
//   - client: AWS S3 client from aws-sdk-go-v2
//   - bucket: S3 bucket name
//   - prefix: Key prefix for recordings (e.g., "recs/")
//   - maxSize: Maximum recording size in bytes (0 = no limit)
func NewS3Store(client S3API, bucket, prefix string, maxSize int64) *S3Store {
	return &S3Store{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		maxSize: maxSize,
	}
}

// S3Options configures NewS3Client.
type S3Options struct {
	Region string

	// Endpoint overrides the service endpoint, for S3-compatible stores.
	Endpoint string

	// AccessKeyID and SecretAccessKey are static credentials. When empty
	// the client is anonymous.
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Client builds an S3 client from explicit options.
func NewS3Client(opts S3Options) *s3.Client {
	o := s3.Options{Region: opts.Region}
	if opts.Endpoint != "" {
		o.BaseEndpoint = aws.String(opts.Endpoint)
		o.UsePathStyle = true
	}
	if opts.AccessKeyID != "" {
		creds := aws.Credentials{
			AccessKeyID:     opts.AccessKeyID,
			SecretAccessKey: opts.SecretAccessKey,
			Source:          "mgxrec",
		}
		o.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil },
		))
	}
	return s3.New(o)
}

const (
	metaFilename = "original-filename"
	metaSize     = "size"
)

// Save uploads a recording to S3 and returns its ID.
func (s *S3Store) Save(ctx context.Context, filename string, size int64, r io.Reader) (string, error) {
	if s.maxSize > 0 && size > s.maxSize {
		return "", ErrTooLarge
	}

	// Buffer the body so PutObject gets a seekable reader with a known length
	var buf bytes.Buffer
	var reader io.Reader = r
	if s.maxSize > 0 {
		reader = io.LimitReader(r, s.maxSize+1)
	}
	n, err := io.Copy(&buf, reader)
	if err != nil {
		return "", err
	}
	if s.maxSize > 0 && n > s.maxSize {
		return "", ErrTooLarge
	}
	if n == 0 {
		return "", ErrEmpty
	}

	id := NewID()
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(id)),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(n),
		ContentType:   aws.String("application/octet-stream"),
		Metadata: map[string]string{
			metaFilename: filename,
			metaSize:     strconv.FormatInt(n, 10),
		},
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}

	return id, nil
}

// Open returns a recording for reading.
func (s *S3Store) Open(ctx context.Context, id string) (*File, error) {
	if !ValidID(id) {
		return nil, ErrNotFound
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		return nil, notFound(err)
	}

	f := &File{ID: id, Filename: id, Reader: out.Body}
	if fn, ok := out.Metadata[metaFilename]; ok {
		f.Filename = fn
	}
	if out.ContentLength != nil {
		f.Size = *out.ContentLength
	}
	if out.LastModified != nil {
		f.CreatedAt = *out.LastModified
	}
	return f, nil
}

// Delete removes a recording.
func (s *S3Store) Delete(ctx context.Context, id string) error {
	if !ValidID(id) {
		return ErrNotFound
	}
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	}); err != nil {
		return notFound(err)
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	return err
}

// List returns every recording under the store's prefix.
func (s *S3Store) List(ctx context.Context) ([]*File, error) {
	var files []*File
	err := s.eachObject(ctx, func(obj types.Object) {
		id := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
		if !ValidID(id) {
			return
		}
		f := &File{ID: id, Filename: id, Size: aws.ToInt64(obj.Size)}
		if obj.LastModified != nil {
			f.CreatedAt = *obj.LastModified
		}
		files = append(files, f)
	})
	return files, err
}

// Cleanup removes recordings older than maxAge.
func (s *S3Store) Cleanup(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)

	var expired []string
	err := s.eachObject(ctx, func(obj types.Object) {
		if obj.Key != nil && obj.LastModified != nil && obj.LastModified.Before(cutoff) {
			expired = append(expired, *obj.Key)
		}
	})
	if err != nil {
		return err
	}

	var errs []error
	for _, key := range expired {
		if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *S3Store) eachObject(ctx context.Context, fn func(types.Object)) error {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, obj := range page.Contents {
			fn(obj)
		}
	}
	return nil
}

func (s *S3Store) key(id string) string {
	return s.prefix + id
}

// notFound maps missing-object errors to ErrNotFound.
func notFound(err error) error {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return ErrNotFound
	}
	return err
}
