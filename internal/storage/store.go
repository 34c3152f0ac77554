// Package storage provides object storage access for dataset zones: an S3
// client backed by minio-go, a disk-backed store for local runs and tests,
// a scheme router and a prefix-aware copier.
package storage

import "context"

// ObjectStore abstracts the object operations needed to move and read datasets.
type ObjectStore interface {
	Ping(ctx context.Context) error
	PutObject(ctx context.Context, bucket, key string, data []byte) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	ListPrefix(ctx context.Context, bucket, prefix string) ([]string, error)
	CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error
}

// Config configures the S3-compatible store.
type Config struct {
	Endpoint        string `koanf:"endpoint"`
	Region          string `koanf:"region"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
	SessionToken    string `koanf:"session_token"`
	UseSSL          bool   `koanf:"use_ssl"`
	LocalRoot       string `koanf:"local_root"`
}
