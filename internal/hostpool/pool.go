// Package hostpool recycles host scalar buffers between vectors.
//
// Buffers are pooled per length with sync.Pool, so a program that repeatedly
// creates and destroys vectors of the same size stops allocating after the
// first round. Counters record outstanding buffers so backends and tests can
// check that every owned buffer came back.
package hostpool

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Pool provides reuse of []float64 buffers via sync.Pool.
//
// Buffers handed out by Get are zeroed unless the pool has a Fill value, in
// which case every element is set to it. Buffers returned with Put are
// poisoned with the Poison value when one is configured.
//
// Thread safety: Pool is safe for concurrent use.
type Pool struct {
	// pools holds one *sync.Pool per buffer length.
	pools sync.Map

	fill      float64
	hasFill   bool
	poison    float64
	hasPoison bool

	gets atomic.Int64
	puts atomic.Int64
	news atomic.Int64
}

// Option configures a Pool.
type Option func(*Pool)

// WithFill makes Get return buffers filled with x instead of zeros.
func WithFill(x float64) Option {
	return func(p *Pool) {
		p.fill, p.hasFill = x, true
	}
}

// WithPoison makes Put overwrite buffers with x before pooling them, so stale
// references read an obvious value.
func WithPoison(x float64) Option {
	return func(p *Pool) {
		p.poison, p.hasPoison = x, true
	}
}

// New creates a new buffer pool.
func New(opts ...Option) *Pool {
	p := &Pool{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get returns a buffer of exactly n scalars. A zero or negative n yields an
// empty, non-nil slice that is not counted.
func (p *Pool) Get(n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	p.gets.Add(1)

	bp := p.getOrCreatePool(n).Get().(*[]float64)
	buf := *bp
	if p.hasFill {
		for i := range buf {
			buf[i] = p.fill
		}
	} else {
		clear(buf)
	}
	return buf
}

// Put returns a buffer to the pool. Empty buffers are ignored.
func (p *Pool) Put(buf []float64) {
	if len(buf) == 0 {
		return
	}
	p.puts.Add(1)

	if p.hasPoison {
		for i := range buf {
			buf[i] = p.poison
		}
	}
	// Only the first len(buf) elements are ever handed out again.
	buf = buf[:len(buf):len(buf)]
	p.getOrCreatePool(len(buf)).Put(&buf)
}

// getOrCreatePool gets or creates the sync.Pool for length n.
func (p *Pool) getOrCreatePool(n int) *sync.Pool {
	if pool, ok := p.pools.Load(n); ok {
		return pool.(*sync.Pool)
	}

	newPool := &sync.Pool{
		New: func() any {
			p.news.Add(1)
			buf := make([]float64, n)
			return &buf
		},
	}

	// Try to store; if another goroutine beat us, use theirs
	actual, _ := p.pools.LoadOrStore(n, newPool)
	return actual.(*sync.Pool)
}

// Stats is a snapshot of pool activity.
type Stats struct {
	// Gets is the number of buffers handed out.
	Gets int64

	// Puts is the number of buffers returned.
	Puts int64

	// Allocations is the number of buffers created because the pool was empty.
	Allocations int64
}

// InUse returns the number of buffers handed out and not yet returned.
func (s Stats) InUse() int64 {
	return s.Gets - s.Puts
}

// String returns a human-readable representation of the stats.
func (s Stats) String() string {
	return fmt.Sprintf("hostpool: %d in use (%d gets, %d puts, %d allocations)",
		s.InUse(), s.Gets, s.Puts, s.Allocations)
}

// Stats returns a snapshot of the counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Gets:        p.gets.Load(),
		Puts:        p.puts.Load(),
		Allocations: p.news.Load(),
	}
}
