// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package memcheck registers a debugging CPU backend that catches common
// misuse of vector storage.
//
// The backend behaves like the reference backend, except that
//
//   - fresh storage is filled with NaN, so reads of never-written data stand out;
//   - released storage is overwritten with NaN, so stale slices read garbage;
//   - arrays lent with ReadOnly are checksummed and RestoreArray fails with
//     ceed.ErrBackend when their contents changed;
//   - storage still outstanding when the Ceed is destroyed is logged.
//
// It is slow and registered at low priority: it is only used when asked for
// explicitly with /cpu/self/memcheck.
package memcheck

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/gogpu/ceed"
	"github.com/gogpu/ceed/backend/ref"
	"github.com/gogpu/ceed/internal/hostpool"
)

// Name is the descriptor name of the memcheck backend.
const Name = "memcheck"

// ErrReadOnlyModified is the cause reported when a read-only array was
// written to.
var ErrReadOnlyModified = errors.New("memcheck: read-only array modified")

func init() {
	ceed.MustRegister(ceed.Descriptor{
		Name:             Name,
		Pattern:          "/cpu/self/memcheck",
		Match:            ceed.MatchPrefix,
		Priority:         ceed.PriorityDebug,
		PreferredMemType: ceed.MemHost,
		Deterministic:    true,
		Factory:          New,
	})
}

// Backend is the reference backend with poisoning and access checks.
type Backend struct {
	*ref.Backend

	sums       map[*ceed.Array]uint64
	violations int
}

// New creates a memcheck backend.
func New(req ceed.InitRequest) (ceed.Backend, error) {
	nan := math.NaN()
	pool := hostpool.New(hostpool.WithFill(nan), hostpool.WithPoison(nan))
	return &Backend{
		Backend: ref.NewBackend(pool, Name, req.Logger),
		sums:    make(map[*ceed.Array]uint64),
	}, nil
}

// Violations returns the number of access violations detected so far.
func (b *Backend) Violations() int { return b.violations }

// BeginAccess checksums host arrays lent read-only.
func (b *Backend) BeginAccess(a *ceed.Array) {
	if a.Mode() != ceed.ReadOnly || a.MemType() != ceed.MemHost {
		return
	}
	b.sums[a] = checksum(a.Host())
}

// EndAccess verifies the checksum taken by BeginAccess.
func (b *Backend) EndAccess(a *ceed.Array) error {
	sum, ok := b.sums[a]
	if !ok {
		return nil
	}
	delete(b.sums, a)
	if got := checksum(a.Host()); got != sum {
		b.violations++
		b.Logger().Warn("ceed: read-only array modified",
			"backend", Name, "len", a.Len(), "want", sum, "got", got)
		return fmt.Errorf("%w (%d scalars)", ErrReadOnlyModified, a.Len())
	}
	return nil
}

// Close reports storage that was never returned.
func (b *Backend) Close() error {
	if n := b.Stats().InUse(); n > 0 {
		b.Logger().Warn("ceed: host storage still outstanding at close", "backend", Name, "buffers", n)
	}
	return b.Backend.Close()
}

// checksum hashes the bit patterns of xs, so NaN payloads and signed zeros
// count as changes.
func checksum(xs []float64) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, x := range xs {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(x))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}
