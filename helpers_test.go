package ceed

import (
	"errors"
	"testing"
)

// countingAllocator is a host allocator that records what it hands out.
type countingAllocator struct {
	allocs int
	frees  int
	freed  [][]float64
}

func (a *countingAllocator) Alloc(n int) []float64 {
	a.allocs++
	return make([]float64, n)
}

func (a *countingAllocator) Free(buf []float64) {
	a.frees++
	a.freed = append(a.freed, buf)
}

// wasFreed reports whether buf was passed to Free.
func (a *countingAllocator) wasFreed(buf []float64) bool {
	for _, f := range a.freed {
		if sameStorage(f, buf) {
			return true
		}
	}
	return false
}

// fakeDevice is an in-memory device memory space.
type fakeDevice struct {
	allocs    int
	live      int
	failAlloc error
}

func (d *fakeDevice) Alloc(n int) (DeviceBuffer, error) {
	if d.failAlloc != nil {
		return nil, d.failAlloc
	}
	d.allocs++
	d.live++
	return &fakeBuffer{dev: d, data: make([]float64, n)}, nil
}

type fakeBuffer struct {
	dev          *fakeDevice
	data         []float64
	released     bool
	failDownload error
}

func (b *fakeBuffer) Len() int { return len(b.data) }

func (b *fakeBuffer) Upload(src []float64) error {
	copy(b.data, src)
	return nil
}

func (b *fakeBuffer) Download(dst []float64) error {
	if b.failDownload != nil {
		return b.failDownload
	}
	copy(dst, b.data)
	return nil
}

func (b *fakeBuffer) Release() error {
	if b.released {
		return errors.New("double release")
	}
	b.released = true
	if b.dev != nil {
		b.dev.live--
	}
	return nil
}

// testBackend is a backend with inspectable host and device memory.
type testBackend struct {
	alloc    *countingAllocator
	dev      *fakeDevice
	closed   bool
	closeErr error
}

func (b *testBackend) HostAllocator() HostAllocator { return b.alloc }

func (b *testBackend) Device() Device {
	if b.dev == nil {
		return nil
	}
	return b.dev
}

func (b *testBackend) Close() error {
	if b.closeErr != nil {
		return b.closeErr
	}
	b.closed = true
	return nil
}

var errNoHardware = errors.New("no hardware")

// newTestRegistry returns a registry with three test descriptors:
// "/test/host" (host only), "/test/device" (host and device memory) and
// "/test/broken" (factory always fails).
func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	descs := []Descriptor{
		{
			Name:          "host",
			Pattern:       "/test/host",
			Match:         MatchPrefix,
			Priority:      10,
			Deterministic: true,
			Factory: func(InitRequest) (Backend, error) {
				return &testBackend{alloc: &countingAllocator{}}, nil
			},
		},
		{
			Name:             "device",
			Pattern:          "/test/device",
			Match:            MatchPrefix,
			Priority:         10,
			PreferredMemType: MemDevice,
			Factory: func(InitRequest) (Backend, error) {
				return &testBackend{alloc: &countingAllocator{}, dev: &fakeDevice{}}, nil
			},
		},
		{
			Name:    "broken",
			Pattern: "/test/broken",
			Match:   MatchExact,
			Factory: func(InitRequest) (Backend, error) {
				return nil, errNoHardware
			},
		},
	}
	for _, d := range descs {
		if err := r.Register(d); err != nil {
			t.Fatalf("Register(%q) error = %v", d.Pattern, err)
		}
	}
	return r
}

// mustInit creates a Ceed from r or fails the test.
func mustInit(t *testing.T, r *Registry, resource string) *Ceed {
	t.Helper()
	c, err := r.Init(resource)
	if err != nil {
		t.Fatalf("Init(%q) error = %v", resource, err)
	}
	return c
}

func backendOf(c *Ceed) *testBackend {
	return c.Backend().(*testBackend)
}

// mustVector creates a vector of length n or fails the test.
func mustVector(t *testing.T, c *Ceed, n int) *Vector {
	t.Helper()
	v, err := c.NewVector(n)
	if err != nil {
		t.Fatalf("NewVector(%d) error = %v", n, err)
	}
	return v
}
