package ceed

// Array is the capability token returned by GetArray. It grants access to
// one memory space of a vector until it is handed back to RestoreArray.
// After that Host and Device return nil and Valid reports false.
//
// Code receiving an Array must not keep the slice or buffer past
// RestoreArray.
type Array struct {
	vec  *Vector
	gen  uint64
	mem  MemType
	mode AccessMode
	n    int

	host  []float64
	dev   DeviceBuffer
	valid bool
}

// Host returns the host slice, or nil for a device array or a restored one.
func (a *Array) Host() []float64 {
	if !a.valid {
		return nil
	}
	return a.host
}

// Device returns the device buffer, or nil for a host array or a restored one.
func (a *Array) Device() DeviceBuffer {
	if !a.valid {
		return nil
	}
	return a.dev
}

// MemType returns the memory space the array lives in.
func (a *Array) MemType() MemType { return a.mem }

// Mode returns the access mode the array was lent with.
func (a *Array) Mode() AccessMode { return a.mode }

// Len returns the number of scalars.
func (a *Array) Len() int { return a.n }

// Valid reports whether the array has not been restored yet.
func (a *Array) Valid() bool { return a.valid }

// Vector returns the vector the array was borrowed from.
func (a *Array) Vector() *Vector { return a.vec }

func (a *Array) invalidate() {
	a.valid = false
	a.host = nil
	a.dev = nil
}
