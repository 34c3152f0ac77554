package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/leapstack-labs/zonehop/internal/location"
	"github.com/leapstack-labs/zonehop/internal/storage"
)

// Reader loads the dataset stored at a location into memory. A location
// naming a single object reads that object; a prefix reads every data file
// below it.
type Reader interface {
	Read(ctx context.Context, loc location.Location) (*Table, error)
	Close() error
}

// Deps are the collaborators a reader factory may use.
type Deps struct {
	Stores      storage.Resolver
	Logger      *slog.Logger
	Concurrency int
	Params      map[string]any
	Database    string
}

// Factory constructs a reader.
type Factory func(deps Deps) (Reader, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a reader factory to the registry.
// Called by reader implementations in their init() functions.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// NewReader creates a reader of the named type.
func NewReader(name string, deps Deps) (Reader, error) {
	if name == "" {
		return nil, fmt.Errorf("reader type not specified")
	}
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownReaderError{Type: name, Available: ListReaders()}
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return factory(deps)
}

// ListReaders returns all registered reader names (sorted).
func ListReaders() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownReaderError is returned when an unknown reader type is requested.
type UnknownReaderError struct {
	Type      string
	Available []string
}

func (e *UnknownReaderError) Error() string {
	return fmt.Sprintf("unknown reader type %q\nAvailable readers: %v\nHint: Check reader.type in zonehop.yaml", e.Type, e.Available)
}
