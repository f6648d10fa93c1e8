// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package ceed

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/ceed/internal/lru"
)

// MatchKind says how a descriptor pattern is compared to a backend name.
type MatchKind uint8

const (
	// MatchExact matches a backend name equal to the pattern.
	MatchExact MatchKind = iota

	// MatchPrefix matches a backend name equal to the pattern or continuing
	// it after a '/' boundary: "/cpu/self/ref" matches "/cpu/self/ref/serial"
	// but not "/cpu/self/reference".
	MatchPrefix
)

// String returns the match kind name.
func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchPrefix:
		return "prefix"
	default:
		return "unknown"
	}
}

// Standard priorities used by the bundled backends (higher = preferred).
const (
	PriorityDevice    = 100
	PriorityOptimized = 70
	PriorityReference = 50
	PriorityDebug     = 30
)

// Factory creates a backend instance for one Ceed.
// A returned error becomes ErrBackendInit and no Ceed is produced.
type Factory func(req InitRequest) (Backend, error)

// InitRequest is what a Factory receives.
type InitRequest struct {
	// Resource is the parsed resource string.
	Resource ResourceSpec

	// Descriptor is a copy of the winning descriptor.
	Descriptor Descriptor

	// Logger is the logger of the Ceed being created.
	Logger *slog.Logger

	// DeviceProvider is the shared GPU device passed via WithDeviceProvider,
	// or nil.
	DeviceProvider gpucontext.DeviceProvider
}

// Descriptor describes one registered backend.
type Descriptor struct {
	// Name identifies the backend implementation, e.g. "ref" or "wgpu".
	Name string

	// Pattern is compared to the backend-name part of a resource.
	Pattern string

	// Match selects exact or prefix matching.
	Match MatchKind

	// Priority orders competing matches (higher = preferred).
	Priority int

	// PreferredMemType is the memory space callers should stage data in.
	PreferredMemType MemType

	// Deterministic reports whether the backend produces bit-identical
	// results across runs.
	Deterministic bool

	// Factory creates backend instances.
	Factory Factory
}

// Matches reports whether the descriptor pattern matches a backend name.
func (d *Descriptor) Matches(name string) bool {
	switch d.Match {
	case MatchExact:
		return name == d.Pattern
	case MatchPrefix:
		if !strings.HasPrefix(name, d.Pattern) {
			return false
		}
		rest := name[len(d.Pattern):]
		return rest == "" || strings.HasSuffix(d.Pattern, "/") || rest[0] == '/'
	default:
		return false
	}
}

// Registry is an append-only table of backend descriptors.
//
// Most code uses the process-wide registry through Register and Init;
// backends register themselves from init functions:
//
//	func init() {
//	    ceed.MustRegister(ceed.Descriptor{
//	        Name:     "ref",
//	        Pattern:  "/cpu/self/ref",
//	        Match:    ceed.MatchPrefix,
//	        Priority: ceed.PriorityReference,
//	        Factory:  newBackend,
//	    })
//	}
//
// The zero value is an empty registry ready to use. Registry is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries []Descriptor

	// resolved maps a backend name to the index of its winning entry.
	// Created and purged by Register under the write lock.
	resolved *lru.Cache[string, int]
}

// resolveCacheSize bounds the number of remembered backend names.
const resolveCacheSize = 64

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// defaultRegistry is the process-wide registry.
var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register appends a descriptor to the process-wide registry.
func Register(d Descriptor) error {
	return defaultRegistry.Register(d)
}

// MustRegister is Register that panics on an invalid descriptor.
// It is meant for init functions.
func MustRegister(d Descriptor) {
	if err := defaultRegistry.Register(d); err != nil {
		panic(err)
	}
}

// Resolve picks the descriptor for resource in the process-wide registry.
func Resolve(resource string) (Descriptor, ResourceSpec, error) {
	return defaultRegistry.Resolve(resource)
}

// Backends lists the process-wide registry in registration order.
func Backends() []Descriptor {
	return defaultRegistry.Descriptors()
}

// Register appends a descriptor. Registration cannot be undone.
func (r *Registry) Register(d Descriptor) error {
	if d.Pattern == "" {
		return newError(CodeInvalidArgument, "Registry.Register", "descriptor %q has an empty pattern", d.Name)
	}
	if d.Factory == nil {
		return newError(CodeInvalidArgument, "Registry.Register", "descriptor %q has no factory", d.Pattern)
	}
	if !d.PreferredMemType.Valid() {
		return newError(CodeInvalidArgument, "Registry.Register",
			"descriptor %q has invalid preferred memory type %d", d.Pattern, d.PreferredMemType)
	}
	if d.Match != MatchExact && d.Match != MatchPrefix {
		return newError(CodeInvalidArgument, "Registry.Register",
			"descriptor %q has invalid match kind %d", d.Pattern, d.Match)
	}
	if d.Name == "" {
		d.Name = d.Pattern
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, d)
	if r.resolved == nil {
		r.resolved = lru.New[string, int](resolveCacheSize)
	} else {
		r.resolved.Purge()
	}
	return nil
}

// Descriptors returns a copy of all descriptors in registration order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Resolve parses resource and returns the highest priority descriptor whose
// pattern matches the backend name. Ties go to the descriptor registered
// first. The factory is not called.
func (r *Registry) Resolve(resource string) (Descriptor, ResourceSpec, error) {
	spec, err := ParseResource(resource)
	if err != nil {
		var ce *Error
		if errors.As(err, &ce) {
			ce.Origin = "Resolve"
		}
		return Descriptor{}, ResourceSpec{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.resolved != nil {
		if best, ok := r.resolved.Get(spec.Backend); ok {
			return r.entries[best], spec, nil
		}
	}

	best := -1
	for i := range r.entries {
		d := &r.entries[i]
		if !d.Matches(spec.Backend) {
			continue
		}
		// Strictly greater keeps the first registered on ties.
		if best < 0 || d.Priority > r.entries[best].Priority {
			best = i
		}
	}
	if best < 0 {
		return Descriptor{}, spec, newError(CodeBackendNotFound, "Resolve",
			"no backend matches resource %q", resource)
	}
	if r.resolved != nil {
		r.resolved.Add(spec.Backend, best)
	}
	return r.entries[best], spec, nil
}

// ResolveStats reports the activity of a registry's resolution cache.
type ResolveStats struct {
	// Recent lists cached backend names, most recently resolved first.
	Recent []string

	// Hits and Misses count cache lookups made by Resolve.
	Hits   uint64
	Misses uint64

	// HitRate is Hits over all lookups, 0 before the first lookup.
	HitRate float64
}

// ResolveStats returns a snapshot of the resolution cache. Registering a
// descriptor empties the cache but keeps the counters.
func (r *Registry) ResolveStats() ResolveStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.resolved == nil {
		return ResolveStats{}
	}
	s := r.resolved.Stats()
	return ResolveStats{
		Recent:  r.resolved.Keys(),
		Hits:    s.Hits,
		Misses:  s.Misses,
		HitRate: s.HitRate(),
	}
}

// Candidates returns every descriptor matching the backend name of
// resource, in registration order. Useful for diagnostics.
func (r *Registry) Candidates(resource string) ([]Descriptor, error) {
	spec, err := ParseResource(resource)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Descriptor
	for i := range r.entries {
		if r.entries[i].Matches(spec.Backend) {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}
