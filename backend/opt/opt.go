// Package opt registers the optimized CPU backend.
//
// The optimized backend shares host storage handling with the reference
// backend and runs bulk fills and copies on a work-stealing worker pool.
// It outranks the reference backend for the /cpu/self alias.
//
// The qualifier accepts:
//
//	workers=N   number of worker goroutines (default GOMAXPROCS)
//	grain=N     smallest chunk handed to a worker (default 4096)
//
// Example:
//
//	c, err := ceed.Init("/cpu/self/opt:workers=4")
package opt

import (
	"fmt"
	"strconv"

	"github.com/gogpu/ceed"
	"github.com/gogpu/ceed/backend/ref"
	"github.com/gogpu/ceed/internal/hostpool"
	"github.com/gogpu/ceed/internal/parallel"
)

// Name is the descriptor name of the optimized backend.
const Name = "opt"

func init() {
	for _, d := range []ceed.Descriptor{
		{Pattern: "/cpu/self/opt", Match: ceed.MatchPrefix},
		{Pattern: "/cpu/self", Match: ceed.MatchExact},
	} {
		d.Name = Name
		d.Priority = ceed.PriorityOptimized
		d.PreferredMemType = ceed.MemHost
		d.Deterministic = true
		d.Factory = New
		ceed.MustRegister(d)
	}
}

// Backend is the reference backend plus parallel kernels.
type Backend struct {
	*ref.Backend

	pool  *parallel.WorkerPool
	grain int
}

// New creates an optimized backend from an init request.
func New(req ceed.InitRequest) (ceed.Backend, error) {
	params := req.Resource.Params()

	workers, err := intParam(params, "workers", 0)
	if err != nil {
		return nil, err
	}
	grain, err := intParam(params, "grain", parallel.DefaultGrain)
	if err != nil {
		return nil, err
	}

	b := &Backend{
		Backend: ref.NewBackend(hostpool.New(), Name, req.Logger),
		pool:    parallel.NewWorkerPool(workers),
		grain:   grain,
	}
	b.Logger().Debug("ceed: opt backend ready", "workers", b.pool.Workers(), "grain", b.grain)
	return b, nil
}

func intParam(params map[string]string, key string, def int) (int, error) {
	s, ok := params[key]
	if !ok || s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("opt: %s=%q is not a positive integer", key, s)
	}
	return n, nil
}

// Workers returns the size of the worker pool.
func (b *Backend) Workers() int { return b.pool.Workers() }

// Fill sets every element of dst to x.
func (b *Backend) Fill(dst []float64, x float64) {
	b.pool.ForRange(len(dst), b.grain, func(lo, hi int) {
		chunk := dst[lo:hi]
		for i := range chunk {
			chunk[i] = x
		}
	})
}

// Copy copies src into dst.
func (b *Backend) Copy(dst, src []float64) {
	b.pool.ForRange(len(dst), b.grain, func(lo, hi int) {
		copy(dst[lo:hi], src[lo:hi])
	})
}

// Close stops the worker pool.
func (b *Backend) Close() error {
	b.pool.Close()
	return b.Backend.Close()
}
