package main

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"

	"github.com/vango-dev/tx/internal/config"
	"github.com/vango-dev/tx/internal/errors"
	"github.com/vango-dev/tx/pkg/snapshot"
)

const (
	s3Prefix      = "snapshots/"
	defaultRegion = "us-east-1"
)

// openStore builds the snapshot store named by the config.
func openStore(ctx context.Context, sc config.SnapshotConfig) (snapshot.Store, error) {
	switch sc.Store {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: sc.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, errors.New("E041").
				WithDetail("Cannot reach redis at " + sc.RedisAddr).
				Wrap(err)
		}
		return &ownedStore{Store: snapshot.NewRedisStore(client), client: client}, nil

	case config.StoreS3:
		region := sc.S3Region
		if region == "" {
			region = defaultRegion
		}
		opts := s3.Options{
			Region:      region,
			Credentials: aws.NewCredentialsCache(envCredentials()),
		}
		if sc.S3Endpoint != "" {
			opts.BaseEndpoint = aws.String(sc.S3Endpoint)
			opts.UsePathStyle = true
		}
		return snapshot.NewS3Store(s3.New(opts), sc.S3Bucket, s3Prefix), nil

	default:
		return snapshot.NewMemoryStore(), nil
	}
}

// envCredentials reads static credentials from the standard AWS variables.
func envCredentials() aws.CredentialsProvider {
	return aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		creds := aws.Credentials{
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "environment",
		}
		if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
			return aws.Credentials{}, errors.New("E041").
				WithDetail("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set for the s3 store")
		}
		return creds, nil
	})
}

// ownedStore closes the redis client it was opened with.
type ownedStore struct {
	snapshot.Store
	client *redis.Client
}

func (s *ownedStore) Close() error {
	err := s.Store.Close()
	if cerr := s.client.Close(); err == nil {
		err = cerr
	}
	return err
}
