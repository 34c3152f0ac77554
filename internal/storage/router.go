package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/zonehop/internal/location"
)

// Resolver picks the object store serving a location.
type Resolver interface {
	StoreFor(loc location.Location) (ObjectStore, error)
}

// Router maps location schemes to object stores.
type Router struct {
	mu     sync.RWMutex
	stores map[string]ObjectStore
}

// S3Schemes are the schemes served by an S3-compatible store.
var S3Schemes = []string{"s3", "s3a", "s3n", "minio"}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{stores: make(map[string]ObjectStore)}
}

// Handle registers store for the given schemes.
func (r *Router) Handle(store ObjectStore, schemes ...string) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range schemes {
		r.stores[strings.ToLower(s)] = store
	}
	return r
}

// StoreFor returns the store registered for loc's scheme.
func (r *Router) StoreFor(loc location.Location) (ObjectStore, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.stores[loc.Scheme]; ok {
		return s, nil
	}
	return nil, wrapError(CodeUnsupportedScheme, false,
		fmt.Errorf("no object store for scheme %q (configured: %v)", loc.Scheme, r.schemesLocked()))
}

func (r *Router) schemesLocked() []string {
	out := make([]string, 0, len(r.stores))
	for s := range r.stores {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// NewDefaultRouter wires the S3 schemes to an S3 client built from cfg and
// the file scheme to a LocalStore rooted at cfg.LocalRoot. The S3 client is
// only built when an endpoint is configured.
func NewDefaultRouter(cfg Config) (*Router, error) {
	r := NewRouter()
	r.Handle(NewLocalStore(cfg.LocalRoot), "file")
	if cfg.Endpoint == "" {
		return r, nil
	}
	s3, err := NewS3Client(cfg)
	if err != nil {
		return nil, err
	}
	r.Handle(s3, S3Schemes...)
	return r, nil
}
