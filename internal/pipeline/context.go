package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrOutputExists is returned when a stage output is written twice in one
// invocation.
var ErrOutputExists = errors.New("stage output already recorded")

// Context carries stage outputs between the stages of one invocation.
// Each key is written once; values are never replaced.
type Context struct {
	mu      sync.RWMutex
	outputs map[string]any
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{outputs: make(map[string]any)}
}

// Put records the output of stage.
func (c *Context) Put(stage string, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.outputs[stage]; ok {
		return fmt.Errorf("%w: %s", ErrOutputExists, stage)
	}
	c.outputs[stage] = v
	return nil
}

// Get returns the output of stage.
func (c *Context) Get(stage string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.outputs[stage]
	return v, ok
}

// Keys returns the recorded stage names, sorted.
func (c *Context) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.outputs))
	for k := range c.outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Output returns the output of stage as a T.
func Output[T any](c *Context, stage string) (T, error) {
	var zero T
	v, ok := c.Get(stage)
	if !ok {
		return zero, fmt.Errorf("no output from stage %s", stage)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("stage %s output is %T, want %T", stage, v, zero)
	}
	return t, nil
}
