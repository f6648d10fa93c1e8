// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package ceed

import (
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Vector is a fixed-length buffer of float64 scalars bound to a Ceed.
//
// Storage may exist in host memory, device memory or both. Each memory
// space is either owned by the vector (allocated by it, or handed over with
// OwnPointer) or borrowed from the caller (UsePointer). Borrowed storage is
// never freed by the vector.
//
// Access goes through an exclusive borrow: GetArray lends one Array and
// moves the vector out of Idle; RestoreArray hands it back. A second
// GetArray before the restore fails with ErrAlreadyAccessed.
type Vector struct {
	ceed *Ceed
	id   uint64
	n    int

	host      []float64
	hostOwned bool
	dev       DeviceBuffer
	devOwned  bool

	alloc memSet // memory spaces holding storage
	fresh memSet // memory spaces holding current data

	state AccessState
	out   *Array
	gen   uint64

	destroyed bool
}

// Length returns the number of scalars. It never changes.
func (v *Vector) Length() int { return v.n }

// State returns the current access state.
func (v *Vector) State() AccessState { return v.state }

// Ceed returns the context the vector belongs to.
func (v *Vector) Ceed() *Ceed { return v.ceed }

// HasValidArray reports whether any memory space holds current data.
func (v *Vector) HasValidArray() bool { return v.fresh != 0 }

// HasBorrowedArray reports whether the storage in mem was lent by the caller.
func (v *Vector) HasBorrowedArray(mem MemType) bool {
	switch mem {
	case MemHost:
		return v.alloc.has(MemHost) && !v.hostOwned
	case MemDevice:
		return v.alloc.has(MemDevice) && !v.devOwned
	}
	return false
}

// check validates the preconditions shared by every storage operation.
func (v *Vector) check(origin string, mem MemType) error {
	if v.destroyed {
		return v.ceed.failf(CodeDestroyed, origin, "vector %d is destroyed", v.id)
	}
	if !mem.Valid() {
		return v.ceed.failf(CodeInvalidArgument, origin, "invalid memory type %d", mem)
	}
	if v.state != Idle {
		return v.ceed.failf(CodeAlreadyAccessed, origin, "vector %d is %s", v.id, v.state)
	}
	if mem == MemDevice && v.ceed.backend.Device() == nil {
		return v.ceed.failf(CodeUnsupported, origin,
			"backend %q has no device memory", v.ceed.desc.Name)
	}
	return nil
}

// GetArray lends the vector's storage in mem with the given access mode.
//
// Storage is materialized on first access and brought up to date from the
// other memory space when only that one holds current data. A read-write
// borrow leaves only mem current; a read-only borrow adds mem to the current
// set. On failure the vector stays Idle with its storage unchanged.
func (v *Vector) GetArray(mem MemType, mode AccessMode) (*Array, error) {
	const origin = "Vector.GetArray"
	if err := v.check(origin, mem); err != nil {
		return nil, err
	}
	if mode != ReadWrite && mode != ReadOnly {
		return nil, v.ceed.failf(CodeInvalidArgument, origin, "invalid access mode %d", mode)
	}
	if err := v.prepare(origin, mem); err != nil {
		return nil, err
	}

	if mode == ReadWrite {
		v.fresh = only(mem)
	} else {
		v.fresh = v.fresh.with(mem)
	}
	v.state = accessStateFor(mode)
	v.gen++
	a := &Array{vec: v, gen: v.gen, mem: mem, mode: mode, n: v.n, valid: true}
	if mem == MemHost {
		a.host = v.host
	} else {
		a.dev = v.dev
	}
	v.out = a

	if v.ceed.checker != nil {
		v.ceed.checker.BeginAccess(a)
	}
	return a, nil
}

// GetArrayRead is GetArray(mem, ReadOnly).
func (v *Vector) GetArrayRead(mem MemType) (*Array, error) {
	return v.GetArray(mem, ReadOnly)
}

// RestoreArray hands back the outstanding array and returns the vector to
// Idle. The array is invalidated.
//
// A debugging backend may flag misuse of the array (a write through a
// read-only borrow); that is reported as ErrBackend after the vector has
// returned to Idle.
func (v *Vector) RestoreArray(a *Array) error {
	const origin = "Vector.RestoreArray"
	if v.destroyed {
		return v.ceed.failf(CodeDestroyed, origin, "vector %d is destroyed", v.id)
	}
	if v.state == Idle {
		return v.ceed.failf(CodeNotAccessed, origin, "vector %d has no array lent out", v.id)
	}
	if a == nil || a != v.out || a.gen != v.gen || !a.valid {
		return v.ceed.failf(CodeInvalidArgument, origin,
			"array is not the one lent out by vector %d", v.id)
	}

	var checkErr error
	if v.ceed.checker != nil {
		checkErr = v.ceed.checker.EndAccess(a)
	}
	v.state = Idle
	v.out = nil
	a.invalidate()

	if checkErr != nil {
		return v.ceed.fail(wrapError(CodeBackend, origin, checkErr, "access check failed for vector %d", v.id))
	}
	return nil
}

// SetArray binds data as the vector's host storage. Prior contents are
// discarded. With CopyValues the data is copied into owned storage; with
// UsePointer the vector borrows data; with OwnPointer it takes ownership.
// Previously owned host storage is released, borrowed storage is left alone.
func (v *Vector) SetArray(mode CopyMode, data []float64) error {
	const origin = "Vector.SetArray"
	if err := v.check(origin, MemHost); err != nil {
		return err
	}
	if len(data) != v.n {
		return v.ceed.failf(CodeInvalidArgument, origin,
			"array length %d does not match vector length %d", len(data), v.n)
	}

	switch mode {
	case CopyValues:
		if !v.alloc.has(MemHost) || !v.hostOwned {
			buf := v.ceed.backend.HostAllocator().Alloc(v.n)
			v.releaseHost()
			v.host, v.hostOwned = buf, true
			v.alloc = v.alloc.with(MemHost)
		}
		v.ceed.kernels.Copy(v.host, data)
	case UsePointer, OwnPointer:
		if !v.alloc.has(MemHost) || !sameStorage(v.host, data) {
			v.releaseHost()
		}
		v.host, v.hostOwned = data, mode == OwnPointer
		v.alloc = v.alloc.with(MemHost)
	default:
		return v.ceed.failf(CodeInvalidArgument, origin, "invalid copy mode %d", mode)
	}
	v.fresh = only(MemHost)
	return nil
}

// SetDeviceArray binds buf as the vector's device storage, with the same
// rules as SetArray. CopyValues copies buf into device storage owned by the
// vector and leaves buf with the caller.
func (v *Vector) SetDeviceArray(mode CopyMode, buf DeviceBuffer) error {
	const origin = "Vector.SetDeviceArray"
	if err := v.check(origin, MemDevice); err != nil {
		return err
	}
	if buf == nil {
		return v.ceed.failf(CodeInvalidArgument, origin, "nil device buffer")
	}
	if buf.Len() != v.n {
		return v.ceed.failf(CodeInvalidArgument, origin,
			"buffer length %d does not match vector length %d", buf.Len(), v.n)
	}

	switch mode {
	case CopyValues:
		staging := make([]float64, v.n)
		if err := buf.Download(staging); err != nil {
			return v.ceed.fail(wrapError(CodeBackend, origin, err, "reading source buffer"))
		}
		target := v.dev
		created := false
		if !v.alloc.has(MemDevice) || !v.devOwned {
			nb, err := v.ceed.backend.Device().Alloc(v.n)
			if err != nil {
				return v.ceed.fail(wrapError(CodeBackend, origin, err, "allocating device storage"))
			}
			target, created = nb, true
		}
		if err := target.Upload(staging); err != nil {
			if created {
				_ = target.Release()
			}
			return v.ceed.fail(wrapError(CodeBackend, origin, err, "writing device storage"))
		}
		if created {
			v.releaseDeviceLogged()
			v.dev, v.devOwned = target, true
			v.alloc = v.alloc.with(MemDevice)
		}
	case UsePointer, OwnPointer:
		if v.alloc.has(MemDevice) && v.dev != buf {
			v.releaseDeviceLogged()
		}
		v.dev, v.devOwned = buf, mode == OwnPointer
		v.alloc = v.alloc.with(MemDevice)
	default:
		return v.ceed.failf(CodeInvalidArgument, origin, "invalid copy mode %d", mode)
	}
	v.fresh = only(MemDevice)
	return nil
}

// TakeArray returns borrowed host storage to the caller, bringing it up to
// date first. The vector no longer references it afterwards. Owned storage
// cannot be taken.
func (v *Vector) TakeArray() ([]float64, error) {
	const origin = "Vector.TakeArray"
	if err := v.takeable(origin, MemHost); err != nil {
		return nil, err
	}
	data := v.host
	v.host, v.hostOwned = nil, false
	v.alloc = v.alloc.without(MemHost)
	v.fresh = v.fresh.without(MemHost)
	return data, nil
}

// TakeDeviceArray is TakeArray for device storage.
func (v *Vector) TakeDeviceArray() (DeviceBuffer, error) {
	const origin = "Vector.TakeDeviceArray"
	if err := v.takeable(origin, MemDevice); err != nil {
		return nil, err
	}
	buf := v.dev
	v.dev, v.devOwned = nil, false
	v.alloc = v.alloc.without(MemDevice)
	v.fresh = v.fresh.without(MemDevice)
	return buf, nil
}

func (v *Vector) takeable(origin string, mem MemType) error {
	if err := v.check(origin, mem); err != nil {
		return err
	}
	if !v.alloc.has(mem) {
		return v.ceed.failf(CodeInvalidArgument, origin, "vector %d has no %s array to take", v.id, mem)
	}
	if !v.HasBorrowedArray(mem) {
		return v.ceed.failf(CodeUnsupported, origin,
			"vector %d owns its %s array; only borrowed arrays can be taken", v.id, mem)
	}
	return v.prepare(origin, mem)
}

// SetValue sets every element to x in host memory.
func (v *Vector) SetValue(x float64) error {
	const origin = "Vector.SetValue"
	if err := v.check(origin, MemHost); err != nil {
		return err
	}
	if !v.alloc.has(MemHost) {
		if err := v.materialize(origin, MemHost); err != nil {
			return err
		}
	}
	v.ceed.kernels.Fill(v.host, x)
	v.fresh = only(MemHost)
	return nil
}

// SyncArray brings the storage in mem up to date without lending it.
// A vector with no valid data is left unchanged.
func (v *Vector) SyncArray(mem MemType) error {
	const origin = "Vector.SyncArray"
	if err := v.check(origin, mem); err != nil {
		return err
	}
	if v.fresh == 0 || v.fresh.has(mem) {
		return nil
	}
	if err := v.prepare(origin, mem); err != nil {
		return err
	}
	v.fresh = v.fresh.with(mem)
	return nil
}

// Destroy releases owned storage and detaches the vector from its Ceed.
// Borrowed storage is left untouched. It fails with ErrResourceBusy while an
// array is lent out. Destroying twice does nothing.
func (v *Vector) Destroy() error {
	if v.destroyed {
		return nil
	}
	if v.state != Idle {
		return v.ceed.failf(CodeResourceBusy, "Vector.Destroy",
			"vector %d is %s; restore the array first", v.id, v.state)
	}
	v.releaseHost()
	v.releaseDeviceLogged()
	v.fresh = 0
	v.destroyed = true
	delete(v.ceed.vectors, v)
	return nil
}

// View writes the vector length and values to w, one value per line using
// the printf-style format (default "%12.8f"). The length header is grouped
// for readability; values are printed exactly as format renders them. Values
// are read from the current copy without changing state.
func (v *Vector) View(w io.Writer, format string) error {
	const origin = "Vector.View"
	if v.destroyed {
		return v.ceed.failf(CodeDestroyed, origin, "vector %d is destroyed", v.id)
	}
	if v.state == AccessedReadWrite {
		return v.ceed.failf(CodeAlreadyAccessed, origin, "vector %d is %s", v.id, v.state)
	}
	if format == "" {
		format = "%12.8f"
	}

	p := message.NewPrinter(language.English)
	if _, err := p.Fprintf(w, "Vector length %d\n", v.n); err != nil {
		return err
	}

	var values []float64
	switch {
	case v.fresh.has(MemHost):
		values = v.host
	case v.fresh.has(MemDevice):
		values = make([]float64, v.n)
		if err := v.dev.Download(values); err != nil {
			return v.ceed.fail(wrapError(CodeBackend, origin, err, "reading device storage"))
		}
	default:
		_, err := io.WriteString(w, "  no valid data\n")
		return err
	}
	for _, x := range values {
		if _, err := fmt.Fprintf(w, format+"\n", x); err != nil {
			return err
		}
	}
	return nil
}

// String returns a one-line description.
func (v *Vector) String() string {
	return fmt.Sprintf("Vector(%d, len=%d, %s)", v.id, v.n, v.state)
}

// prepare makes sure storage exists in mem and holds current data.
// A buffer materialized here is dropped again if the transfer fails.
func (v *Vector) prepare(origin string, mem MemType) error {
	created := false
	if !v.alloc.has(mem) {
		if err := v.materialize(origin, mem); err != nil {
			return err
		}
		created = true
	}
	if v.fresh.has(mem) || !v.fresh.has(mem.other()) {
		return nil
	}
	if err := v.transfer(mem.other(), mem); err != nil {
		if created {
			if mem == MemHost {
				v.releaseHost()
			} else {
				v.releaseDeviceLogged()
			}
		}
		return v.ceed.fail(wrapError(CodeBackend, origin, err,
			"synchronizing vector %d from %s to %s", v.id, mem.other(), mem))
	}
	return nil
}

func (v *Vector) materialize(origin string, mem MemType) error {
	switch mem {
	case MemHost:
		v.host, v.hostOwned = v.ceed.backend.HostAllocator().Alloc(v.n), true
	case MemDevice:
		buf, err := v.ceed.backend.Device().Alloc(v.n)
		if err != nil {
			return v.ceed.fail(wrapError(CodeBackend, origin, err,
				"allocating %d scalars of device memory", v.n))
		}
		v.dev, v.devOwned = buf, true
	}
	v.alloc = v.alloc.with(mem)
	v.ceed.log.Debug("ceed: vector storage materialized", "vector", v.id, "mem", mem, "len", v.n)
	return nil
}

func (v *Vector) transfer(from, to MemType) error {
	v.ceed.log.Debug("ceed: vector sync", "vector", v.id, "from", from, "to", to, "len", v.n)
	if to == MemDevice {
		return v.dev.Upload(v.host)
	}
	return v.dev.Download(v.host)
}

// releaseHost frees owned host storage and forgets the host binding.
func (v *Vector) releaseHost() {
	if v.alloc.has(MemHost) && v.hostOwned {
		v.ceed.backend.HostAllocator().Free(v.host)
	}
	v.host, v.hostOwned = nil, false
	v.alloc = v.alloc.without(MemHost)
	v.fresh = v.fresh.without(MemHost)
}

// releaseDeviceLogged releases owned device storage and forgets the device
// binding. Release failures are logged; the binding is dropped regardless.
func (v *Vector) releaseDeviceLogged() {
	if v.alloc.has(MemDevice) && v.devOwned {
		if err := v.dev.Release(); err != nil {
			v.ceed.log.Warn("ceed: device storage release failed", "vector", v.id, "err", err)
		}
	}
	v.dev, v.devOwned = nil, false
	v.alloc = v.alloc.without(MemDevice)
	v.fresh = v.fresh.without(MemDevice)
}

// sameStorage reports whether a and b share their first element.
func sameStorage(a, b []float64) bool {
	return len(a) > 0 && len(b) > 0 && &a[0] == &b[0]
}
