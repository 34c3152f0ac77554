// Package location parses storage URIs of the form scheme://bucket/key/path
// and describes where each zone of a dataset hop lives.
package location

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrLocationParse is returned when a storage URI cannot be split into
// a non-empty scheme, bucket and key.
var ErrLocationParse = errors.New("location parse error")

// ParseError describes a rejected storage URI.
type ParseError struct {
	URI    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid storage location %q: %s", e.URI, e.Reason)
}

// Unwrap allows errors.Is(err, ErrLocationParse).
func (e *ParseError) Unwrap() error { return ErrLocationParse }

// Location is a parsed storage URI.
type Location struct {
	Scheme string
	Bucket string
	Key    string
}

// Parse splits uri into scheme, bucket and key. Empty path segments are
// dropped, so "s3://bucket//a/b/" yields key "a/b".
func Parse(uri string) (Location, error) {
	scheme, rest, ok := strings.Cut(strings.TrimSpace(uri), "://")
	if !ok {
		return Location{}, &ParseError{URI: uri, Reason: "missing scheme delimiter"}
	}
	if scheme == "" {
		return Location{}, &ParseError{URI: uri, Reason: "empty scheme"}
	}

	segments := splitSegments(rest)
	if len(segments) == 0 {
		return Location{}, &ParseError{URI: uri, Reason: "empty bucket"}
	}
	if len(segments) == 1 {
		return Location{}, &ParseError{URI: uri, Reason: "empty key"}
	}

	return Location{
		Scheme: strings.ToLower(scheme),
		Bucket: segments[0],
		Key:    strings.Join(segments[1:], "/"),
	}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(uri string) Location {
	loc, err := Parse(uri)
	if err != nil {
		panic(err)
	}
	return loc
}

// String renders the location back into URI form.
func (l Location) String() string {
	return l.Scheme + "://" + l.Bucket + "/" + l.Key
}

// IsObject reports whether the last key segment has a file extension. It is
// only a naming hint; storage.List asks the store.
func (l Location) IsObject() bool {
	return path.Ext(path.Base(l.Key)) != ""
}

// Child returns a location for rel below l.
func (l Location) Child(rel string) Location {
	return Location{Scheme: l.Scheme, Bucket: l.Bucket, Key: Join(l.Key, rel)}
}

// Join joins a base URI or key with a relative dataset path using exactly
// one "/" between them. An empty rel returns base unchanged.
func Join(base, rel string) string {
	rel = strings.Trim(rel, "/")
	if rel == "" {
		return base
	}
	if base == "" {
		return rel
	}
	return strings.TrimRight(base, "/") + "/" + rel
}

// Parent drops the last "/"-separated segment of p.
// Parent("a/b/c") is "a/b"; Parent("a") is "".
func Parent(p string) string {
	p = strings.TrimRight(p, "/")
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	return p[:i]
}

func splitSegments(s string) []string {
	parts := strings.Split(s, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
