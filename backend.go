package ceed

import "github.com/gogpu/gputypes"

// Backend is the capability interface every backend instance provides.
// A backend instance belongs to exactly one Ceed and is closed by
// Ceed.Destroy.
type Backend interface {
	// HostAllocator returns the allocator for owned host storage.
	// It must never be nil.
	HostAllocator() HostAllocator

	// Device returns the device memory space, or nil when the backend only
	// has host memory.
	Device() Device

	// Close releases all backend resources.
	Close() error
}

// HostAllocator hands out and takes back owned host storage.
type HostAllocator interface {
	// Alloc returns storage for n scalars. The contents are zero unless the
	// allocator deliberately poisons fresh storage.
	Alloc(n int) []float64

	// Free takes back storage previously returned by Alloc.
	Free(buf []float64)
}

// Device is a device memory space.
type Device interface {
	// Alloc creates a device buffer holding n scalars.
	Alloc(n int) (DeviceBuffer, error)
}

// DeviceBuffer is storage for scalars in a device memory space.
// Callers supplying their own DeviceBuffer to SetDeviceArray keep ownership
// unless they pass OwnPointer.
type DeviceBuffer interface {
	// Len returns the number of scalars the buffer holds.
	Len() int

	// Upload copies src (len(src) == Len()) into the buffer.
	Upload(src []float64) error

	// Download copies the buffer into dst (len(dst) == Len()).
	Download(dst []float64) error

	// Release frees the device memory.
	Release() error
}

// Kernels is implemented by backends with their own bulk buffer operations.
// Backends without it get plain loops.
type Kernels interface {
	// Fill sets every element of dst to x.
	Fill(dst []float64, x float64)

	// Copy copies src into dst. Both have the same length.
	Copy(dst, src []float64)
}

// AccessChecker is implemented by debugging backends that watch array
// access. EndAccess runs before the token is invalidated; its error is
// reported after the vector has returned to Idle.
type AccessChecker interface {
	BeginAccess(a *Array)
	EndAccess(a *Array) error
}

// Describer is implemented by backends that can describe the hardware
// behind them.
type Describer interface {
	AdapterInfo() gputypes.AdapterInfo
}

// defaultKernels is used when a backend does not implement Kernels.
type defaultKernels struct{}

func (defaultKernels) Fill(dst []float64, x float64) {
	for i := range dst {
		dst[i] = x
	}
}

func (defaultKernels) Copy(dst, src []float64) {
	copy(dst, src)
}
