// Package zoneconfig loads the per-dataset configuration document that names
// the storage zones of a hop and the declared types of transformed columns.
//
// The document is JSON:
//
//	{
//	  "ingest-dataset": {
//	    "source":      {"data-location": "s3://land/ds"},
//	    "destination": {"data-location": "s3://raw/ds"}
//	  },
//	  "masked-dataset": {
//	    "source":      {"data-location": "s3://raw/masked"},
//	    "destination": {"data-location": "s3://staging/masked"},
//	    "transformation-cols": {"amount": "DecimalType,2", "email": "StringType"}
//	  }
//	}
package zoneconfig

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/zonehop/internal/location"
	"github.com/leapstack-labs/zonehop/internal/storage"
	"github.com/leapstack-labs/zonehop/internal/validate"
)

// ErrConfigParse is returned when the document is malformed.
var ErrConfigParse = errors.New("config parse error")

// ParseError describes a malformed document.
type ParseError struct {
	Key string
	Err error
}

func (e *ParseError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("invalid dataset config: %v", e.Err)
	}
	return fmt.Sprintf("invalid dataset config at %q: %v", e.Key, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is matches ErrConfigParse.
func (e *ParseError) Is(target error) bool { return target == ErrConfigParse }

// ZonePair is a source and destination data location.
type ZonePair struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// Document is a parsed configuration document.
type Document struct {
	Ingest ZonePair `json:"ingest"`
	Masked ZonePair `json:"masked"`
	// TransformationCols is sorted by column name.
	TransformationCols []validate.ColumnTypeSpec `json:"transformation_cols"`
}

// Hop holds the four dataset descriptors of one pipeline invocation.
type Hop struct {
	Source            location.Descriptor
	Destination       location.Descriptor
	MaskedSource      location.Descriptor
	MaskedDestination location.Descriptor
}

// All returns the descriptors in zone order.
func (h Hop) All() []location.Descriptor {
	return []location.Descriptor{h.Source, h.Destination, h.MaskedSource, h.MaskedDestination}
}

// Descriptors resolves the zones for datasetPath. The masked zones are read
// at the parent of datasetPath, where the transform writes its output.
// Every resulting location is parsed so a bad URI fails here rather than
// mid-pipeline.
func (d *Document) Descriptors(datasetPath string) (Hop, error) {
	parent := location.Parent(datasetPath)
	h := Hop{
		Source:            location.Descriptor{Zone: location.ZoneSource, URI: d.Ingest.Source, DatasetPath: datasetPath},
		Destination:       location.Descriptor{Zone: location.ZoneDestination, URI: d.Ingest.Destination, DatasetPath: datasetPath},
		MaskedSource:      location.Descriptor{Zone: location.ZoneMaskedSource, URI: d.Masked.Source, DatasetPath: parent},
		MaskedDestination: location.Descriptor{Zone: location.ZoneMaskedDestination, URI: d.Masked.Destination, DatasetPath: parent},
	}
	for _, desc := range h.All() {
		if _, err := desc.Location(); err != nil {
			return Hop{}, fmt.Errorf("%s zone: %w", desc.Zone, err)
		}
	}
	return h, nil
}

type endpoint struct {
	DataLocation string `koanf:"data-location"`
}

type rawDocument struct {
	Ingest struct {
		Source      endpoint `koanf:"source"`
		Destination endpoint `koanf:"destination"`
	} `koanf:"ingest-dataset"`
	Masked struct {
		Source             endpoint       `koanf:"source"`
		Destination        endpoint       `koanf:"destination"`
		TransformationCols map[string]any `koanf:"transformation-cols"`
	} `koanf:"masked-dataset"`
}

const keyDelim = "\x00"

// Parse decodes and validates a JSON document.
func Parse(data []byte) (*Document, error) {
	// Column names may contain "." or "/", so key paths split on NUL.
	k := koanf.New(keyDelim)
	if err := k.Load(rawbytes.Provider(data), json.Parser()); err != nil {
		return nil, &ParseError{Err: err}
	}

	var raw rawDocument
	if err := k.UnmarshalWithConf("", &raw, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, &ParseError{Err: err}
	}

	doc := &Document{
		Ingest: ZonePair{Source: raw.Ingest.Source.DataLocation, Destination: raw.Ingest.Destination.DataLocation},
		Masked: ZonePair{Source: raw.Masked.Source.DataLocation, Destination: raw.Masked.Destination.DataLocation},
	}

	required := []struct {
		key, value string
	}{
		{"ingest-dataset/source/data-location", doc.Ingest.Source},
		{"ingest-dataset/destination/data-location", doc.Ingest.Destination},
		{"masked-dataset/source/data-location", doc.Masked.Source},
		{"masked-dataset/destination/data-location", doc.Masked.Destination},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, &ParseError{Key: r.key, Err: errors.New("required")}
		}
		if !strings.Contains(r.value, "://") {
			return nil, &ParseError{Key: r.key, Err: fmt.Errorf("%q is not a storage URI", r.value)}
		}
	}

	cols := make([]string, 0, len(raw.Masked.TransformationCols))
	for c := range raw.Masked.TransformationCols {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	for _, c := range cols {
		key := "masked-dataset/transformation-cols/" + c
		s, ok := raw.Masked.TransformationCols[c].(string)
		if !ok {
			return nil, &ParseError{Key: key, Err: fmt.Errorf("expected string, got %T", raw.Masked.TransformationCols[c])}
		}
		spec, err := validate.ParseColumnTypeSpec(c, s)
		if err != nil {
			return nil, &ParseError{Key: key, Err: err}
		}
		doc.TransformationCols = append(doc.TransformationCols, spec)
	}

	return doc, nil
}

// Load fetches the document at uri and parses it.
func Load(ctx context.Context, stores storage.Resolver, uri string) (*Document, error) {
	loc, err := location.Parse(uri)
	if err != nil {
		return nil, err
	}
	store, err := stores.StoreFor(loc)
	if err != nil {
		return nil, err
	}
	data, err := store.GetObject(ctx, loc.Bucket, loc.Key)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset config %s: %w", uri, err)
	}
	return Parse(data)
}
