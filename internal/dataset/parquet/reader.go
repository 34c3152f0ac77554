// Package parquet reads parquet datasets from object storage with
// parquet-go. Flat primitive columns and lists of primitives are supported.
package parquet

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/leapstack-labs/zonehop/internal/dataset"
	"github.com/leapstack-labs/zonehop/internal/location"
	"github.com/leapstack-labs/zonehop/internal/storage"
	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/common"
	pq "github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"golang.org/x/sync/errgroup"
)

func init() {
	dataset.Register("parquet", func(deps dataset.Deps) (dataset.Reader, error) {
		return New(deps)
	})
}

// Reader reads every parquet object under a location into one table.
type Reader struct {
	stores      storage.Resolver
	concurrency int
	logger      *slog.Logger
}

// New creates a parquet reader.
func New(deps dataset.Deps) (*Reader, error) {
	if deps.Stores == nil {
		return nil, fmt.Errorf("parquet reader: object store resolver is required")
	}
	if deps.Concurrency < 1 {
		deps.Concurrency = 4
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return &Reader{
		stores:      deps.Stores,
		concurrency: deps.Concurrency,
		logger:      deps.Logger.With("component", "parquet-reader"),
	}, nil
}

// Close is a no-op.
func (r *Reader) Close() error { return nil }

// Read loads the dataset at loc.
func (r *Reader) Read(ctx context.Context, loc location.Location) (*dataset.Table, error) {
	store, err := r.stores.StoreFor(loc)
	if err != nil {
		return nil, err
	}

	keys, err := r.dataFiles(ctx, store, loc)
	if err != nil {
		return nil, err
	}

	tables := make([]*dataset.Table, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, key := range keys {
		g.Go(func() error {
			data, err := store.GetObject(gctx, loc.Bucket, key)
			if err != nil {
				return fmt.Errorf("fetch %s/%s: %w", loc.Bucket, key, err)
			}
			t, err := decode(data)
			if err != nil {
				return fmt.Errorf("decode %s/%s: %w", loc.Bucket, key, err)
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := tables[0]
	for i, t := range tables[1:] {
		if err := out.Append(t); err != nil {
			return nil, fmt.Errorf("%s: %w", keys[i+1], err)
		}
	}

	r.logger.Debug("read dataset", "location", loc.String(), "files", len(keys), "rows", out.NumRows())
	return out, nil
}

// dataFiles lists the parquet objects making up the dataset, in key order.
func (r *Reader) dataFiles(ctx context.Context, store storage.ObjectStore, loc location.Location) ([]string, error) {
	listing, err := storage.List(ctx, store, loc)
	if err != nil {
		return nil, err
	}
	if listing.IsObject() {
		return listing.Keys, nil
	}
	var keys []string
	for _, k := range listing.Keys {
		base := path.Base(k)
		if strings.HasPrefix(base, "_") || strings.HasPrefix(base, ".") {
			continue
		}
		if strings.HasSuffix(base, ".parquet") {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, &storage.Error{Code: storage.CodeObjectNotFound, Err: fmt.Errorf("no parquet files under %s", loc)}
	}
	sort.Strings(keys)
	return keys, nil
}

// decode reads one parquet file held in memory.
func decode(data []byte) (*dataset.Table, error) {
	pf, err := buffer.NewBufferFile(data)
	if err != nil {
		return nil, err
	}
	defer func() { _ = pf.Close() }()

	pr, err := reader.NewParquetReader(pf, nil, 1)
	if err != nil {
		return nil, err
	}
	defer pr.ReadStop()

	return readColumns(pr)
}

func readColumns(pr *reader.ParquetReader) (*dataset.Table, error) {
	sh := pr.SchemaHandler
	num := pr.GetNumRows()
	delim := common.PAR_GO_PATH_DELIMITER

	// Group leaves by top-level field, preserving schema order.
	var order []string
	leaves := make(map[string][]string)
	for _, inPath := range sh.ValueColumns {
		segs := strings.Split(inPath, delim)
		if len(segs) < 2 {
			continue
		}
		top := strings.Join(segs[:2], delim)
		if _, ok := leaves[top]; !ok {
			order = append(order, top)
		}
		leaves[top] = append(leaves[top], inPath)
	}

	t := &dataset.Table{}
	for _, top := range order {
		// Element names are rewritten to Go identifiers on read; the tag
		// keeps the name stored in the file.
		name := sh.Infos[sh.MapIndex[top]].ExName
		if len(leaves[top]) > 1 {
			return nil, fmt.Errorf("unsupported nested column %q", name)
		}
		leafPath := leaves[top][0]
		leafEl := sh.SchemaElements[sh.MapIndex[leafPath]]

		f := levels(sh.SchemaElements, sh.MapIndex, leafPath, delim)
		if !f.list && leafPath != top {
			return nil, fmt.Errorf("unsupported nested column %q", name)
		}

		lt := leafType(leafEl)
		colType := lt
		if f.list {
			colType = dataset.ListOf(lt)
		}

		col := &dataset.Column{Name: name, Type: colType}
		if num > 0 {
			values, rls, dls, err := pr.ReadColumnByPath(leafPath, num)
			if err != nil {
				return nil, fmt.Errorf("read column %q: %w", col.Name, err)
			}
			col.Values = assemble(values, rls, dls, f, func(v any) any {
				return convertValue(v, lt, leafEl)
			})
		}
		if err := t.AddColumn(col); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// levels walks from the top-level field to the leaf accumulating
// definition levels.
func levels(elements []*pq.SchemaElement, index map[string]int32, leafPath, delim string) field {
	segs := strings.Split(leafPath, delim)
	var f field
	var dl int32
	for i := 2; i <= len(segs); i++ {
		el := elements[index[strings.Join(segs[:i], delim)]]
		rep := el.GetRepetitionType()
		switch rep {
		case pq.FieldRepetitionType_OPTIONAL:
			dl++
		case pq.FieldRepetitionType_REPEATED:
			dl++
			if !f.list {
				f.list = true
				f.repDL = dl
			}
		}
		if i == 2 {
			f.topDL = dl
			if rep == pq.FieldRepetitionType_REPEATED {
				f.topDL = 0
			}
		}
	}
	f.maxDL = dl
	return f
}
