package widget

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"netinsights/internal/cache"

	"github.com/rs/zerolog/log"
)

// Params are the caller-supplied computation parameters. Order never
// matters: the cache key canonicalizes them.
type Params map[string]string

// ComputeFunc produces one widget payload from a snapshot read.
type ComputeFunc func(ctx context.Context, params Params) (any, error)

// Descriptor declares a named computation. Registered once at process
// start and immutable thereafter.
type Descriptor struct {
	Name            string
	RefreshInterval time.Duration
	Compute         ComputeFunc
	ConfigKeys      []string
}

func (d Descriptor) validate() error {
	if d.Name == "" {
		return fmt.Errorf("widget descriptor missing name")
	}
	if d.Compute == nil {
		return fmt.Errorf("widget %q has no compute function", d.Name)
	}
	if d.RefreshInterval <= 0 {
		return fmt.Errorf("widget %q refresh interval must be positive", d.Name)
	}
	return nil
}

// WidgetResult is the envelope every computation returns, regardless of
// widget, so callers need no widget-specific handling.
type WidgetResult struct {
	Status      string    `json:"status"` // "ok" or "error"
	Data        any       `json:"data"`
	Error       *string   `json:"error"`
	LastUpdated time.Time `json:"last_updated"`
	FromCache   bool      `json:"from_cache"`
}

// Registry maps widget names to descriptors and dispatches computations
// through the cache layer.
type Registry struct {
	mu      sync.RWMutex
	widgets map[string]Descriptor
	cache   *cache.Service
}

// NewRegistry creates a registry dispatching through the given cache service.
func NewRegistry(c *cache.Service) *Registry {
	return &Registry{
		widgets: make(map[string]Descriptor),
		cache:   c,
	}
}

// Register adds a descriptor. Registration is idempotent by name:
// re-registering replaces the previous descriptor. Invalid descriptors are
// rejected so configuration errors surface at startup, not per-request.
func (r *Registry) Register(d Descriptor) error {
	if err := d.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.widgets[d.Name]; exists {
		log.Debug().Str("widget", d.Name).Msg("Replacing widget descriptor")
	}
	r.widgets[d.Name] = d
	return nil
}

// Descriptors returns the registered descriptors sorted by name.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.widgets))
	for _, d := range r.widgets {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Compute resolves a widget by name and delegates to the cache layer with
// the descriptor's refresh interval as TTL. A widget that cannot compute
// reports its last good value together with the error, never a blank state.
func (r *Registry) Compute(ctx context.Context, name string, params Params) WidgetResult {
	r.mu.RLock()
	d, ok := r.widgets[name]
	r.mu.RUnlock()
	if !ok {
		return errorResult(fmt.Sprintf("unknown widget %q", name))
	}

	key := cache.Key(name, params)
	res, err := r.cache.GetOrCompute(ctx, key, d.RefreshInterval, func(ctx context.Context) (any, error) {
		return d.Compute(ctx, params)
	})

	if err != nil {
		msg := err.Error()
		log.Error().Str("widget", name).Err(err).Msg("Widget computation failed")
		return WidgetResult{
			Status:      "error",
			Data:        res.Value,
			Error:       &msg,
			LastUpdated: res.ComputedAt,
			FromCache:   res.FromCache,
		}
	}

	return WidgetResult{
		Status:      "ok",
		Data:        res.Value,
		LastUpdated: res.ComputedAt,
		FromCache:   res.FromCache,
	}
}

// Invalidate drops the cached result for one widget and parameter set.
func (r *Registry) Invalidate(name string, params Params) {
	r.cache.Invalidate(cache.Key(name, params))
}

// InvalidateAll clears every cached result; used on configuration change.
func (r *Registry) InvalidateAll() {
	r.cache.InvalidateAll()
}

func errorResult(msg string) WidgetResult {
	return WidgetResult{Status: "error", Error: &msg}
}
