// Package duckdb reads parquet datasets through an embedded DuckDB
// connection. Object storage access goes through DuckDB's httpfs extension
// and the secrets configured in reader.params.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/marcboeker/go-duckdb"

	"github.com/leapstack-labs/zonehop/internal/dataset"
	"github.com/leapstack-labs/zonehop/internal/location"
	"github.com/leapstack-labs/zonehop/internal/storage"
)

func init() {
	dataset.Register("duckdb", func(deps dataset.Deps) (dataset.Reader, error) {
		return New(context.Background(), deps)
	})
}

// Reader runs read_parquet queries against an embedded DuckDB database.
type Reader struct {
	db     *sql.DB
	stores storage.Resolver
	logger *slog.Logger
}

// New opens the DuckDB database and applies extensions, settings and
// secrets from deps.Params. An empty database path opens an in-memory
// database.
func New(ctx context.Context, deps dataset.Deps) (*Reader, error) {
	params, err := parseParams(deps.Params)
	if err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}

	path := deps.Database
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	r := &Reader{db: db, stores: deps.Stores, logger: deps.Logger.With("component", "duckdb-reader")}
	if err := r.apply(ctx, params); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) apply(ctx context.Context, p *Params) error {
	for _, ext := range p.Extensions {
		if _, err := r.db.ExecContext(ctx, fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}
	for key, value := range p.Settings {
		if _, err := r.db.ExecContext(ctx, fmt.Sprintf("SET %s = %s", key, quote(value))); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", key, err)
		}
	}
	for _, s := range p.Secrets {
		if _, err := r.db.ExecContext(ctx, buildCreateSecretSQL(s)); err != nil {
			return fmt.Errorf("failed to create %s secret: %w", s.Type, err)
		}
	}
	return nil
}

// Close closes the database.
func (r *Reader) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Read loads the dataset at loc.
func (r *Reader) Read(ctx context.Context, loc location.Location) (*dataset.Table, error) {
	source, err := r.sourcePath(ctx, loc)
	if err != nil {
		return nil, err
	}
	scan := fmt.Sprintf("read_parquet(%s)", quote(source))

	types, err := r.describe(ctx, scan)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, "SELECT * FROM "+scan) //nolint:gosec // source is quoted
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", loc, err)
	}
	defer func() { _ = rows.Close() }()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	cols := make([]*dataset.Column, len(names))
	for i, name := range names {
		cols[i] = &dataset.Column{Name: name, Type: types[name]}
	}

	scratch := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range scratch {
		ptrs[i] = &scratch[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range scratch {
			cols[i].Values = append(cols[i].Values, convertValue(v))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	table, err := dataset.NewTable(cols...)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("read dataset", "location", loc.String(), "rows", table.NumRows())
	return table, nil
}

func (r *Reader) describe(ctx context.Context, scan string) (map[string]dataset.LogicalType, error) {
	rows, err := r.db.QueryContext(ctx, "DESCRIBE SELECT * FROM "+scan) //nolint:gosec // source is quoted
	if err != nil {
		return nil, fmt.Errorf("failed to describe %s: %w", scan, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := make(map[string]dataset.LogicalType)
	for rows.Next() {
		// column_name, column_type, null, key, default, extra
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		name, _ := vals[0].(string)
		typ, _ := vals[1].(string)
		out[name] = parseType(typ)
	}
	return out, rows.Err()
}

// sourcePath maps a location onto a path DuckDB can scan. Local locations
// resolve through the local store root; S3-style schemes use s3://.
func (r *Reader) sourcePath(ctx context.Context, loc location.Location) (string, error) {
	var store storage.ObjectStore
	if r.stores != nil {
		store, _ = r.stores.StoreFor(loc)
	}

	var base string
	switch {
	case loc.Scheme == "file":
		local, ok := store.(*storage.LocalStore)
		if !ok {
			return "", fmt.Errorf("duckdb reader: file locations need a local store")
		}
		base = local.Path(loc.Bucket, loc.Key)
	case isS3Scheme(loc.Scheme):
		base = "s3://" + loc.Bucket + "/" + loc.Key
	default:
		return "", &storage.Error{Code: storage.CodeUnsupportedScheme, Err: fmt.Errorf("duckdb reader cannot scan %s", loc)}
	}

	object := loc.IsObject()
	if store != nil {
		listing, err := storage.List(ctx, store, loc)
		if err != nil {
			return "", err
		}
		object = listing.IsObject()
	}
	if object {
		return base, nil
	}
	return strings.TrimSuffix(base, "/") + "/**/*.parquet", nil
}

func isS3Scheme(scheme string) bool {
	for _, s := range storage.S3Schemes {
		if s == scheme {
			return true
		}
	}
	return false
}

var decimalType = regexp.MustCompile(`^DECIMAL\((\d+),\s*(\d+)\)$`)

// parseType maps a DuckDB type name onto a logical type.
func parseType(s string) dataset.LogicalType {
	s = strings.ToUpper(strings.TrimSpace(s))
	if strings.HasSuffix(s, "[]") {
		return dataset.ListOf(parseType(strings.TrimSuffix(s, "[]")))
	}
	if m := decimalType.FindStringSubmatch(s); m != nil {
		p, _ := strconv.Atoi(m[1])
		sc, _ := strconv.Atoi(m[2])
		return dataset.LogicalType{Kind: dataset.TypeDecimal, Precision: p, Scale: sc}
	}
	switch {
	case s == "VARCHAR" || s == "TEXT" || s == "UUID" || s == "JSON" || strings.HasPrefix(s, "ENUM"):
		return dataset.LogicalType{Kind: dataset.TypeText}
	case s == "BOOLEAN":
		return dataset.LogicalType{Kind: dataset.TypeBoolean}
	case s == "TINYINT" || s == "SMALLINT" || s == "INTEGER" || s == "BIGINT" || s == "HUGEINT" ||
		s == "UTINYINT" || s == "USMALLINT" || s == "UINTEGER" || s == "UBIGINT":
		return dataset.LogicalType{Kind: dataset.TypeInteger}
	case s == "FLOAT" || s == "DOUBLE" || s == "REAL":
		return dataset.LogicalType{Kind: dataset.TypeFloat}
	case s == "DATE":
		return dataset.LogicalType{Kind: dataset.TypeDate}
	case strings.HasPrefix(s, "TIMESTAMP"):
		return dataset.LogicalType{Kind: dataset.TypeTimestamp}
	case s == "BLOB":
		return dataset.LogicalType{Kind: dataset.TypeBinary}
	case strings.HasPrefix(s, "STRUCT"):
		return dataset.LogicalType{Kind: dataset.TypeStruct}
	}
	return dataset.LogicalType{Kind: dataset.TypeUnknown}
}

func convertValue(v any) any {
	switch x := v.(type) {
	case duckdb.Decimal:
		return dataset.Decimal{Unscaled: x.Value, Scale: int(x.Scale)}
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = convertValue(e)
		}
		return out
	}
	return dataset.NormalizeValue(v)
}
