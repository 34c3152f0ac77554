package storage

import (
	"context"
	"testing"

	"github.com/leapstack-labs/zonehop/internal/location"
	"github.com/leapstack-labs/zonehop/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopierPrefix(t *testing.T) {
	ctx := context.Background()
	local := NewLocalStore(t.TempDir())
	router := NewRouter().Handle(local, "s3")

	require.NoError(t, local.PutObject(ctx, "land", "ds/part-0.parquet", []byte("a")))
	require.NoError(t, local.PutObject(ctx, "land", "ds/2024/part-1.parquet", []byte("b")))
	require.NoError(t, local.PutObject(ctx, "land", "dsx/ignored", []byte("z")))

	c := NewCopier(router, 2, testutil.NewTestLogger(t))
	report, err := c.Copy(ctx, location.MustParse("s3://land/ds"), location.MustParse("s3://raw/ds"))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Objects)
	assert.ElementsMatch(t, []string{"ds/2024/part-1.parquet", "ds/part-0.parquet"}, report.Keys)

	keys, err := local.ListPrefix(ctx, "raw", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"ds/2024/part-1.parquet", "ds/part-0.parquet"}, keys)
}

func TestCopierSingleObject(t *testing.T) {
	ctx := context.Background()
	local := NewLocalStore(t.TempDir())
	router := NewRouter().Handle(local, "s3")
	require.NoError(t, local.PutObject(ctx, "land", "ds/part-0.parquet", []byte("a")))

	c := NewCopier(router, 0, nil)

	_, err := c.Copy(ctx, location.MustParse("s3://land/ds/part-0.parquet"), location.MustParse("s3://raw/ds"))
	require.NoError(t, err)
	data, err := local.GetObject(ctx, "raw", "ds/part-0.parquet")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), data)

	_, err = c.Copy(ctx, location.MustParse("s3://land/ds/part-0.parquet"), location.MustParse("s3://raw/renamed.parquet"))
	require.NoError(t, err)
	_, err = local.GetObject(ctx, "raw", "renamed.parquet")
	require.NoError(t, err)
}

func TestCopierDottedPrefix(t *testing.T) {
	ctx := context.Background()
	local := NewLocalStore(t.TempDir())
	router := NewRouter().Handle(local, "s3")
	require.NoError(t, local.PutObject(ctx, "land", "sales.v2/part-0.parquet", []byte("a")))
	require.NoError(t, local.PutObject(ctx, "land", "sales.v2/part-1.parquet", []byte("b")))

	c := NewCopier(router, 2, nil)
	report, err := c.Copy(ctx, location.MustParse("s3://land/sales.v2"), location.MustParse("s3://raw/sales.v2"))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Objects)

	keys, err := local.ListPrefix(ctx, "raw", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"sales.v2/part-0.parquet", "sales.v2/part-1.parquet"}, keys)

	// A single object copied into a dotted prefix keeps its name.
	_, err = c.Copy(ctx, location.MustParse("s3://land/sales.v2/part-0.parquet"), location.MustParse("s3://stage/ds.v3"))
	require.NoError(t, err)
	_, err = local.GetObject(ctx, "stage", "ds.v3/part-0.parquet")
	require.NoError(t, err)
}

func TestCopierCrossStore(t *testing.T) {
	ctx := context.Background()
	src := NewLocalStore(t.TempDir())
	dst := NewLocalStore(t.TempDir())
	router := NewRouter().Handle(src, "file").Handle(dst, "s3")
	require.NoError(t, src.PutObject(ctx, "fixtures", "orders/a.parquet", []byte("a")))

	c := NewCopier(router, 1, nil)
	_, err := c.Copy(ctx, location.MustParse("file://fixtures/orders"), location.MustParse("s3://raw/orders"))
	require.NoError(t, err)

	data, err := dst.GetObject(ctx, "raw", "orders/a.parquet")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), data)
}

func TestCopierErrors(t *testing.T) {
	ctx := context.Background()
	local := NewLocalStore(t.TempDir())
	require.NoError(t, local.PutObject(ctx, "land", "other/x", []byte("a")))
	c := NewCopier(NewRouter().Handle(local, "s3"), 1, nil)

	_, err := c.Copy(ctx, location.MustParse("s3://land/ds"), location.MustParse("s3://raw/ds"))
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	_, err = c.Copy(ctx, location.MustParse("gs://land/ds"), location.MustParse("s3://raw/ds"))
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, CodeUnsupportedScheme, se.Code)
}

func TestNewDefaultRouter(t *testing.T) {
	r, err := NewDefaultRouter(Config{LocalRoot: t.TempDir()})
	require.NoError(t, err)

	_, err = r.StoreFor(location.MustParse("file://b/k"))
	require.NoError(t, err)
	_, err = r.StoreFor(location.MustParse("s3://b/k"))
	require.Error(t, err)

	r, err = NewDefaultRouter(Config{Endpoint: "http://localhost:9000", AccessKeyID: "a", SecretAccessKey: "b", LocalRoot: t.TempDir()})
	require.NoError(t, err)
	s, err := r.StoreFor(location.MustParse("s3a://b/k"))
	require.NoError(t, err)
	assert.IsType(t, &S3Client{}, s)
}
