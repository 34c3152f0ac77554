package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-labs/zonehop/internal/location"
)

// Listing is what a location resolves to in a store.
type Listing struct {
	// Prefix ends in "/" when the location names a prefix and is empty when
	// it names a single object.
	Prefix string
	Keys   []string
}

// IsObject reports whether the location named a single object.
func (l *Listing) IsObject() bool { return l.Prefix == "" }

// List resolves loc against store. A key with objects below it is a prefix,
// whatever its last segment looks like. Otherwise it must name an existing
// object. Keys are returned in listing order.
func List(ctx context.Context, store ObjectStore, loc location.Location) (*Listing, error) {
	key := strings.TrimSuffix(loc.Key, "/")
	all, err := store.ListPrefix(ctx, loc.Bucket, key)
	if err != nil {
		return nil, err
	}

	prefix := key + "/"
	var under []string
	exact := false
	for _, k := range all {
		switch {
		case strings.HasPrefix(k, prefix):
			if !strings.HasSuffix(k, "/") {
				under = append(under, k)
			}
		case k == key:
			exact = true
		}
	}
	if len(under) > 0 {
		return &Listing{Prefix: prefix, Keys: under}, nil
	}
	if exact {
		return &Listing{Keys: []string{key}}, nil
	}
	return nil, wrapError(CodeObjectNotFound, false, fmt.Errorf("no objects at %s", loc))
}
