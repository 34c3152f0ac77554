package storage

import (
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyMinioError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  string
		retryable bool
	}{
		{name: "no such key", err: minio.ErrorResponse{Code: "NoSuchKey"}, wantCode: CodeObjectNotFound},
		{name: "no such bucket", err: minio.ErrorResponse{Code: "NoSuchBucket"}, wantCode: CodeBucketNotFound},
		{name: "access denied", err: minio.ErrorResponse{Code: "AccessDenied"}, wantCode: CodePermissionDenied},
		{name: "bad key", err: minio.ErrorResponse{Code: "InvalidAccessKeyId"}, wantCode: CodeAuthInvalid},
		{name: "slow down", err: minio.ErrorResponse{Code: "SlowDown"}, wantCode: CodeReadFailed, retryable: true},
		{name: "timeout text", err: errors.New("i/o timeout"), wantCode: CodeTimeout, retryable: true},
		{name: "refused", err: errors.New("dial tcp: connection refused"), wantCode: CodeEndpointUnreachable, retryable: true},
		{name: "unknown", err: errors.New("boom"), wantCode: CodeReadFailed, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyMinioError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.retryable, got.Retryable)
			assert.Equal(t, tt.retryable, IsRetryable(got))
		})
	}

	assert.Nil(t, classifyMinioError(nil))
}

func TestNewS3ClientValidation(t *testing.T) {
	_, err := NewS3Client(Config{})
	require.Error(t, err)

	c, err := NewS3Client(Config{Endpoint: "https://s3.amazonaws.com", Region: "us-east-1", AccessKeyID: "a", SecretAccessKey: "b"})
	require.NoError(t, err)
	assert.NotNil(t, c)

	c, err = NewS3Client(Config{Endpoint: "s3.amazonaws.com", Region: "us-east-1"})
	require.NoError(t, err)
	assert.NotNil(t, c)
}
