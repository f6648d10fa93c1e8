package wgpu

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/gogpu/ceed"
	"github.com/gogpu/ceed/internal/devmem"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// scalarSize is the size of one float64 in bytes.
const scalarSize = 8

// bufferUsage lets a vector buffer be written by the queue, mapped for
// readback and bound as a storage buffer by kernels.
const bufferUsage = gputypes.BufferUsageStorage |
	gputypes.BufferUsageCopySrc |
	gputypes.BufferUsageCopyDst |
	gputypes.BufferUsageMapRead

// ErrReleased is returned by operations on a released buffer.
var ErrReleased = errors.New("wgpu: buffer released")

// deviceMemory is the ceed.Device view of a Backend.
type deviceMemory Backend

// Alloc creates a device buffer for n scalars.
func (m *deviceMemory) Alloc(n int) (ceed.DeviceBuffer, error) {
	b := (*Backend)(m)
	if b.closed {
		return nil, errors.New("wgpu: backend closed")
	}
	if n < 0 {
		return nil, fmt.Errorf("wgpu: negative buffer length %d", n)
	}

	// Zero-sized buffers are invalid; keep one scalar of backing.
	size := uint64(max(n, 1)) * scalarSize
	res, err := b.mem.Reserve(size)
	if err != nil {
		return nil, err
	}
	buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "ceed-vector",
		Size:  size,
		Usage: bufferUsage,
	})
	if err != nil {
		res.Release()
		return nil, fmt.Errorf("wgpu: create buffer (%d bytes): %w", size, err)
	}
	return &deviceBuffer{b: b, buf: buf, n: n, size: size, res: res}, nil
}

// deviceBuffer is a vector's storage in a GPU buffer.
type deviceBuffer struct {
	b        *Backend
	buf      hal.Buffer
	n        int
	size     uint64
	res      *devmem.Reservation
	released bool
}

// Len returns the number of scalars.
func (d *deviceBuffer) Len() int { return d.n }

// Upload writes src to the buffer through the queue.
func (d *deviceBuffer) Upload(src []float64) error {
	if d.released {
		return ErrReleased
	}
	if len(src) != d.n {
		return fmt.Errorf("wgpu: upload of %d scalars into buffer of %d", len(src), d.n)
	}
	if d.n == 0 {
		return nil
	}
	return d.b.queue.WriteBuffer(d.buf, 0, scalarBytes(src))
}

// Download maps the buffer and copies it into dst.
func (d *deviceBuffer) Download(dst []float64) error {
	if d.released {
		return ErrReleased
	}
	if len(dst) != d.n {
		return fmt.Errorf("wgpu: download of buffer of %d scalars into %d", d.n, len(dst))
	}
	if d.n == 0 {
		return nil
	}

	nbytes := uint64(d.n) * scalarSize
	mapping, err := d.b.device.MapBuffer(d.buf, 0, nbytes)
	if err != nil {
		return fmt.Errorf("wgpu: map buffer: %w", err)
	}
	copy(scalarBytes(dst), unsafe.Slice((*byte)(mapping.Ptr), nbytes))
	return d.b.device.UnmapBuffer(d.buf)
}

// Release destroys the buffer and returns its bytes to the budget.
func (d *deviceBuffer) Release() error {
	if d.released {
		return ErrReleased
	}
	d.released = true
	if !d.b.closed {
		d.b.device.DestroyBuffer(d.buf)
	}
	d.res.Release()
	d.buf = nil
	return nil
}

// scalarBytes views xs as raw bytes without copying.
func scalarBytes(xs []float64) []byte {
	if len(xs) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(xs))), len(xs)*scalarSize)
}
