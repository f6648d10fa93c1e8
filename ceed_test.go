package ceed

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestInitEchoesResource(t *testing.T) {
	r := newTestRegistry(t)
	for _, res := range []string{"/test/host", "/test/host:dev=0", "/test/host/sub:a=1,b", "/test/host:"} {
		c := mustInit(t, r, res)
		if got := c.Resource(); got != res {
			t.Errorf("Resource() = %q, want %q", got, res)
		}
		_ = c.Destroy()
	}
}

func TestInitSpec(t *testing.T) {
	c := mustInit(t, newTestRegistry(t), "/test/device:id=3")
	defer c.Destroy()

	if got := c.Spec().Backend; got != "/test/device" {
		t.Errorf("Spec().Backend = %q", got)
	}
	if v, _ := c.Spec().Param("id"); v != "3" {
		t.Errorf("Spec().Param(id) = %q, want 3", v)
	}
	if c.BackendName() != "device" {
		t.Errorf("BackendName() = %q, want device", c.BackendName())
	}
	if c.PreferredMemType() != MemDevice {
		t.Errorf("PreferredMemType() = %v, want device", c.PreferredMemType())
	}
	if c.IsDeterministic() {
		t.Error("IsDeterministic() = true for device backend")
	}
}

func TestInitFailures(t *testing.T) {
	r := newTestRegistry(t)
	tests := []struct {
		resource string
		want     error
	}{
		{"", ErrInvalidArgument},
		{"/test/none", ErrBackendNotFound},
		{"/test/broken", ErrBackendInit},
	}
	for _, tt := range tests {
		c, err := r.Init(tt.resource)
		if c != nil {
			t.Errorf("Init(%q) returned a Ceed on failure", tt.resource)
		}
		if !errors.Is(err, tt.want) {
			t.Errorf("Init(%q) error = %v, want %v", tt.resource, err, tt.want)
		}
	}

	_, err := r.Init("/test/broken")
	if !errors.Is(err, errNoHardware) {
		t.Errorf("Init() error = %v, want wrapped factory cause", err)
	}
}

func TestInitWithRegistryOption(t *testing.T) {
	r := newTestRegistry(t)
	c, err := Init("/test/host", WithRegistry(r))
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer c.Destroy()
	if c.BackendName() != "host" {
		t.Errorf("BackendName() = %q, want host", c.BackendName())
	}
}

func TestInitErrorHandler(t *testing.T) {
	r := newTestRegistry(t)
	var seen *Error
	_, err := r.Init("/test/none", WithErrorHandler(func(e *Error) error {
		seen = e
		return nil
	}))
	if seen == nil || seen.Code != CodeBackendNotFound {
		t.Fatalf("handler saw %v, want BackendNotFound", seen)
	}
	if !errors.Is(err, ErrBackendNotFound) {
		t.Errorf("Init() error = %v, want error even when handler swallows it", err)
	}
}

func TestErrorPanicHandler(t *testing.T) {
	c, err := newTestRegistry(t).Init("/test/host", WithErrorHandler(ErrorPanic))
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		p := recover()
		e, ok := p.(*Error)
		if !ok || e.Code != CodeInvalidArgument {
			t.Errorf("recover() = %v, want *Error with InvalidArgument", p)
		}
		if c.LastError() != e {
			t.Error("error should be recorded before the handler runs")
		}
	}()
	_, _ = c.NewVector(-1)
	t.Fatal("NewVector(-1) did not panic")
}

func TestNewVectorNegative(t *testing.T) {
	c := mustInit(t, newTestRegistry(t), "/test/host")
	defer c.Destroy()

	v, err := c.NewVector(-3)
	if v != nil || !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("NewVector(-3) = %v, %v; want nil, ErrInvalidArgument", v, err)
	}
	if c.LiveObjects() != 0 {
		t.Errorf("LiveObjects() = %d, want 0", c.LiveObjects())
	}
}

func TestCeedDestroyBusy(t *testing.T) {
	c := mustInit(t, newTestRegistry(t), "/test/host")
	v := mustVector(t, c, 4)

	if err := c.Destroy(); !errors.Is(err, ErrResourceBusy) {
		t.Fatalf("Destroy() with live vector error = %v, want ErrResourceBusy", err)
	}
	if backendOf(c).closed {
		t.Fatal("backend closed by failed Destroy")
	}
	if le := c.LastError(); le == nil || le.Code != CodeResourceBusy || le.Origin != "Ceed.Destroy" {
		t.Errorf("LastError() = %v", le)
	}

	if err := v.Destroy(); err != nil {
		t.Fatal(err)
	}
	if err := c.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if !backendOf(c).closed {
		t.Error("backend not closed")
	}
	if err := c.Destroy(); err != nil {
		t.Errorf("second Destroy() error = %v, want nil", err)
	}
}

func TestCeedRetain(t *testing.T) {
	c := mustInit(t, newTestRegistry(t), "/test/host")
	ref, err := c.Retain("operator")
	if err != nil {
		t.Fatal(err)
	}
	if ref.Kind() != "operator" {
		t.Errorf("Kind() = %q", ref.Kind())
	}
	if err := c.Destroy(); !errors.Is(err, ErrResourceBusy) {
		t.Fatalf("Destroy() error = %v, want ErrResourceBusy", err)
	}
	ref.Release()
	ref.Release()
	if c.LiveObjects() != 0 {
		t.Fatalf("LiveObjects() = %d after double release, want 0", c.LiveObjects())
	}
	if err := c.Destroy(); err != nil {
		t.Fatal(err)
	}
}

func TestCeedAfterDestroy(t *testing.T) {
	c := mustInit(t, newTestRegistry(t), "/test/host")
	if err := c.Destroy(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.NewVector(1); !errors.Is(err, ErrDestroyed) {
		t.Errorf("NewVector() after Destroy error = %v, want ErrDestroyed", err)
	}
	if _, err := c.Retain("x"); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Retain() after Destroy error = %v, want ErrDestroyed", err)
	}
}

func TestLastErrorOverwrite(t *testing.T) {
	c := mustInit(t, newTestRegistry(t), "/test/host")
	defer c.Destroy()
	v := mustVector(t, c, 2)
	defer v.Destroy()

	if c.LastError() != nil {
		t.Fatal("LastError() should start empty")
	}
	_ = v.RestoreArray(nil)
	if c.LastError().Code != CodeNotAccessed {
		t.Fatalf("LastError() = %v, want NotAccessed", c.LastError())
	}
	_, _ = c.NewVector(-1)
	if le := c.LastError(); le.Code != CodeInvalidArgument || le.Origin != "Ceed.NewVector" {
		t.Errorf("LastError() = %v, want NewVector InvalidArgument", le)
	}
	c.ClearError()
	if c.LastError() != nil {
		t.Error("ClearError() did not reset")
	}
}

func TestCeedView(t *testing.T) {
	c := mustInit(t, newTestRegistry(t), "/test/host:x=1")
	v := mustVector(t, c, 3)

	var buf bytes.Buffer
	if err := c.View(&buf); err != nil {
		t.Fatalf("View() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"/test/host:x=1", "host", "Preferred MemType: host", "1 vectors"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() output missing %q:\n%s", want, out)
		}
	}
	if c.LiveObjects() != 1 || c.LastError() != nil {
		t.Error("View() changed state")
	}
	if got := c.String(); got != "Ceed(/test/host:x=1 -> host)" {
		t.Errorf("String() = %q", got)
	}
	_ = v.Destroy()
	_ = c.Destroy()
}

func TestSwallowingHandlerStillAborts(t *testing.T) {
	var handled int
	c, err := newTestRegistry(t).Init("/test/host", WithErrorHandler(func(*Error) error {
		handled++
		return nil
	}))
	if err != nil {
		t.Fatal(err)
	}
	v := mustVector(t, c, 4)

	if err := v.RestoreArray(nil); !errors.Is(err, ErrNotAccessed) {
		t.Errorf("RestoreArray() while idle error = %v, want ErrNotAccessed", err)
	}

	a, err := v.GetArray(MemHost, ReadWrite)
	if err != nil {
		t.Fatal(err)
	}
	b, err := v.GetArray(MemHost, ReadWrite)
	if b != nil || !errors.Is(err, ErrAlreadyAccessed) {
		t.Fatalf("second GetArray() = %v, %v; want nil, ErrAlreadyAccessed", b, err)
	}
	if !a.Valid() || v.State() != AccessedReadWrite {
		t.Error("failed GetArray() disturbed the outstanding borrow")
	}
	if err := v.SetArray(CopyValues, make([]float64, 4)); !errors.Is(err, ErrAlreadyAccessed) {
		t.Errorf("SetArray() while accessed error = %v", err)
	}

	if nv, err := c.NewVector(-1); nv != nil || !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("NewVector(-1) = %v, %v; want nil, ErrInvalidArgument", nv, err)
	}
	if err := v.Destroy(); !errors.Is(err, ErrResourceBusy) {
		t.Errorf("Destroy() while accessed error = %v", err)
	}
	if handled != 5 {
		t.Errorf("handler ran %d times, want 5", handled)
	}
	if c.LastError() == nil || c.LastError().Code != CodeResourceBusy {
		t.Errorf("LastError() = %v", c.LastError())
	}

	if err := v.RestoreArray(a); err != nil {
		t.Fatal(err)
	}
	_ = v.Destroy()
	_ = c.Destroy()
}

func TestCeedDestroyCloseFailure(t *testing.T) {
	c := mustInit(t, newTestRegistry(t), "/test/host")
	be := backendOf(c)
	errClose := errors.New("device lost")
	be.closeErr = errClose

	err := c.Destroy()
	if !errors.Is(err, ErrBackend) || !errors.Is(err, errClose) {
		t.Fatalf("Destroy() error = %v, want ErrBackend wrapping the close error", err)
	}
	// A failed close leaves the Ceed alive, so Destroy can be retried.
	if err := c.Destroy(); !errors.Is(err, errClose) {
		t.Fatalf("second Destroy() error = %v, want close error again", err)
	}
	v := mustVector(t, c, 1)
	_ = v.Destroy()

	be.closeErr = nil
	if err := c.Destroy(); err != nil {
		t.Fatalf("Destroy() after recovery error = %v", err)
	}
	if !be.closed {
		t.Error("backend not closed")
	}
	if _, err := c.NewVector(1); !errors.Is(err, ErrDestroyed) {
		t.Errorf("NewVector() after Destroy error = %v, want ErrDestroyed", err)
	}
}
