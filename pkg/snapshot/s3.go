package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of *s3.Client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

const s3ContentType = "application/vnd.msgpack"

// S3Store keeps snapshots as objects in an S3 bucket.
//
// Example usage:
//
//	client := s3.NewFromConfig(cfg)
//	store := snapshot.NewS3Store(client, "my-bucket", "snapshots/")
type S3Store struct {
	client S3API
	bucket string
	prefix string
	closed atomic.Bool
}

// NewS3Store creates a store writing objects under prefix in bucket.
func NewS3Store(client S3API, bucket, prefix string) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

func (s *S3Store) Save(ctx context.Context, key string, snap *Snapshot) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.prefix + key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(s3ContentType),
		Metadata: map[string]string{
			"page-url": snap.URL,
			"taken-at": snap.TakenAt.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Load(ctx context.Context, key string) (*Snapshot, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s: %w", key, err)
	}
	return Decode(data)
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Close() error {
	s.closed.Store(true)
	return nil
}
