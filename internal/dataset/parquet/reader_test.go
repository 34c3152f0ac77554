package parquet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/zonehop/internal/dataset"
	"github.com/leapstack-labs/zonehop/internal/location"
	"github.com/leapstack-labs/zonehop/internal/storage"
	"github.com/leapstack-labs/zonehop/internal/testutil"
)

type saleRow struct {
	ID     int64    `parquet:"name=id, type=INT64"`
	Name   *string  `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Amount *int64   `parquet:"name=amount, type=INT64, convertedtype=DECIMAL, scale=2, precision=10"`
	Tags   []string `parquet:"name=tags, type=LIST, valuetype=BYTE_ARRAY, valueconvertedtype=UTF8"`
}

func strPtr(s string) *string { return &s }
func intPtr(i int64) *int64   { return &i }

func newTestReader(t *testing.T) (*Reader, *storage.LocalStore) {
	t.Helper()
	store := storage.NewLocalStore(t.TempDir())
	router := storage.NewRouter().Handle(store, "file", "s3")
	r, err := New(dataset.Deps{Stores: router, Logger: testutil.NewTestLogger(t), Concurrency: 2})
	require.NoError(t, err)
	return r, store
}

func TestReader_ReadPrefix(t *testing.T) {
	r, store := newTestReader(t)
	ctx := context.Background()

	part0 := testutil.ParquetBytes(t, []saleRow{
		{ID: 1, Name: strPtr("alpha"), Amount: intPtr(1050), Tags: []string{"a", "b"}},
		{ID: 2, Name: nil, Amount: intPtr(-25), Tags: []string{}},
	})
	part1 := testutil.ParquetBytes(t, []saleRow{
		{ID: 3, Name: strPtr("gamma"), Amount: nil, Tags: []string{"c"}},
	})
	require.NoError(t, store.PutObject(ctx, "lake", "sales/part-00000.parquet", part0))
	require.NoError(t, store.PutObject(ctx, "lake", "sales/part-00001.parquet", part1))
	require.NoError(t, store.PutObject(ctx, "lake", "sales/_SUCCESS", nil))

	table, err := r.Read(ctx, location.MustParse("s3://lake/sales"))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "amount", "tags"}, table.ColumnNames())
	assert.Equal(t, 3, table.NumRows())

	id, ok := table.Column("id")
	require.True(t, ok)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, id.Values)

	name, _ := table.Column("name")
	assert.Equal(t, dataset.TypeText, name.Type.Kind)
	assert.Equal(t, 2, name.NonNullCount())

	amount, _ := table.Column("amount")
	assert.Equal(t, "decimal(10,2)", amount.Type.String())
	require.IsType(t, dataset.Decimal{}, amount.Values[0])
	assert.Equal(t, "10.50", amount.Values[0].(dataset.Decimal).String())
	assert.Equal(t, "-0.25", amount.Values[1].(dataset.Decimal).String())
	assert.Nil(t, amount.Values[2])

	tags, _ := table.Column("tags")
	assert.Equal(t, "list<text>", tags.Type.String())
	assert.Equal(t, []any{"a", "b"}, tags.Values[0])
	assert.Equal(t, []any{}, tags.Values[1])
	assert.Equal(t, []any{"c"}, tags.Values[2])
}

func TestReader_SingleObject(t *testing.T) {
	r, store := newTestReader(t)
	ctx := context.Background()

	data := testutil.ParquetBytes(t, []saleRow{{ID: 7, Name: strPtr("x"), Amount: intPtr(1)}})
	require.NoError(t, store.PutObject(ctx, "lake", "one/file.parquet", data))

	table, err := r.Read(ctx, location.MustParse("s3://lake/one/file.parquet"))
	require.NoError(t, err)
	assert.Equal(t, 1, table.NumRows())
}

func TestReader_DottedPrefix(t *testing.T) {
	r, store := newTestReader(t)
	ctx := context.Background()

	rows := []saleRow{{ID: 1, Name: strPtr("a")}, {ID: 2, Name: strPtr("b")}}
	require.NoError(t, store.PutObject(ctx, "lake", "sales.v2/part-00000.parquet", testutil.ParquetBytes(t, rows)))
	require.NoError(t, store.PutObject(ctx, "lake", "sales.v2/part-00001.parquet", testutil.ParquetBytes(t, rows)))

	table, err := r.Read(ctx, location.MustParse("s3://lake/sales.v2"))
	require.NoError(t, err)
	assert.Equal(t, 4, table.NumRows())
}

func TestReader_NoParquetFiles(t *testing.T) {
	r, store := newTestReader(t)
	ctx := context.Background()
	require.NoError(t, store.PutObject(ctx, "lake", "empty/_SUCCESS", nil))

	_, err := r.Read(ctx, location.MustParse("s3://lake/empty"))
	require.Error(t, err)
	assert.True(t, storage.IsNotFound(err))
}

func TestReader_UnknownScheme(t *testing.T) {
	r, _ := newTestReader(t)
	_, err := r.Read(context.Background(), location.MustParse("gs://lake/sales"))
	require.Error(t, err)
}

func TestNew_RequiresStores(t *testing.T) {
	_, err := New(dataset.Deps{})
	require.Error(t, err)
}

func TestRegistered(t *testing.T) {
	assert.Contains(t, dataset.ListReaders(), "parquet")
}
