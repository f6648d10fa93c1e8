// Package ref registers the reference CPU backend.
//
// The reference backend keeps all storage in host memory, recycles buffers
// through a per-Ceed pool and uses plain loops for bulk operations. It is
// the baseline every other backend is compared against.
//
// Resources:
//
//	/cpu/self/ref   reference backend (and any /cpu/self/ref/... variant)
//	/cpu/self       alias, resolved to the highest priority CPU backend
//
// Usage:
//
//	import _ "github.com/gogpu/ceed/backend/ref"
package ref

import (
	"log/slog"

	"github.com/gogpu/ceed"
	"github.com/gogpu/ceed/internal/hostpool"
	"github.com/gogpu/gputypes"
)

// Name is the descriptor name of the reference backend.
const Name = "ref"

// Pattern is the resource prefix the reference backend answers to.
const Pattern = "/cpu/self/ref"

func init() {
	ceed.MustRegister(ceed.Descriptor{
		Name:             Name,
		Pattern:          Pattern,
		Match:            ceed.MatchPrefix,
		Priority:         ceed.PriorityReference,
		PreferredMemType: ceed.MemHost,
		Deterministic:    true,
		Factory:          factory,
	})
	ceed.MustRegister(ceed.Descriptor{
		Name:             Name,
		Pattern:          "/cpu/self",
		Match:            ceed.MatchExact,
		Priority:         ceed.PriorityReference,
		PreferredMemType: ceed.MemHost,
		Deterministic:    true,
		Factory:          factory,
	})
}

func factory(req ceed.InitRequest) (ceed.Backend, error) {
	return NewBackend(hostpool.New(), Name, req.Logger), nil
}

// Backend is a host-only backend backed by a buffer pool.
// The opt and memcheck backends embed it.
type Backend struct {
	pool *hostpool.Pool
	name string
	log  *slog.Logger
}

// NewBackend creates a host backend drawing storage from pool.
func NewBackend(pool *hostpool.Pool, name string, log *slog.Logger) *Backend {
	if log == nil {
		log = ceed.Logger()
	}
	return &Backend{pool: pool, name: name, log: log}
}

// HostAllocator returns the backend itself.
func (b *Backend) HostAllocator() ceed.HostAllocator { return b }

// Device returns nil: the backend has no device memory.
func (b *Backend) Device() ceed.Device { return nil }

// Alloc returns pooled storage for n scalars.
func (b *Backend) Alloc(n int) []float64 { return b.pool.Get(n) }

// Free returns storage to the pool.
func (b *Backend) Free(buf []float64) { b.pool.Put(buf) }

// Stats returns the buffer pool counters.
func (b *Backend) Stats() hostpool.Stats { return b.pool.Stats() }

// Logger returns the logger the backend was created with.
func (b *Backend) Logger() *slog.Logger { return b.log }

// AdapterInfo describes the host CPU.
func (b *Backend) AdapterInfo() gputypes.AdapterInfo {
	return gputypes.AdapterInfo{
		Name:       "CPU (" + b.name + ")",
		Vendor:     "gogpu",
		DeviceType: gputypes.DeviceTypeCPU,
		Driver:     "ceed-" + b.name,
		DriverInfo: "host memory",
		Backend:    gputypes.BackendEmpty,
	}
}

// Close logs the pool counters. The pool itself is left to the GC.
func (b *Backend) Close() error {
	stats := b.pool.Stats()
	b.log.Debug("ceed: host backend closed", "backend", b.name, "pool", stats.String())
	return nil
}
