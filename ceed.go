// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package ceed

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gogpu/gputypes"
)

// Ceed is a context bound to exactly one backend instance.
//
// A Ceed mints vectors and tracks every object it created; it cannot be
// destroyed while any of them is alive. Its backend binding never changes.
//
// A Ceed is not safe for concurrent use. Distinct Ceeds share nothing and
// may be used from different goroutines.
type Ceed struct {
	resource string
	spec     ResourceSpec
	desc     Descriptor
	backend  Backend
	kernels  Kernels
	checker  AccessChecker

	reporter ErrorReporter
	handler  ErrorHandler
	log      *slog.Logger

	vectors   map[*Vector]struct{}
	refs      int
	nextID    uint64
	destroyed bool
}

// Init resolves resource against the process-wide registry (or the one
// given with WithRegistry) and creates a Ceed bound to the winning backend.
//
// Init fails with ErrInvalidArgument for a malformed resource,
// ErrBackendNotFound when no descriptor matches and ErrBackendInit when the
// backend factory fails. No Ceed is produced on failure.
func Init(resource string, opts ...Option) (*Ceed, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	r := o.registry
	if r == nil {
		r = defaultRegistry
	}
	return r.newCeed(resource, o)
}

// Init creates a Ceed from this registry. It is Init with WithRegistry(r).
func (r *Registry) Init(resource string, opts ...Option) (*Ceed, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return r.newCeed(resource, o)
}

func (r *Registry) newCeed(resource string, o options) (*Ceed, error) {
	log := o.logger
	if log == nil {
		log = Logger()
	}

	desc, spec, err := r.Resolve(resource)
	if err != nil {
		var e *Error
		if !errors.As(err, &e) {
			e = wrapError(CodeBackendNotFound, "Init", err, "resolving %q", resource)
		}
		e.Origin = "Init"
		log.Debug("ceed: resource not resolved", "resource", resource, "err", e)
		return nil, initFailure(o.handler, e)
	}
	log.Debug("ceed: resource resolved",
		"resource", resource,
		"descriptor", desc.Name,
		"pattern", desc.Pattern,
		"priority", desc.Priority)

	be, err := desc.Factory(InitRequest{
		Resource:       spec,
		Descriptor:     desc,
		Logger:         log,
		DeviceProvider: o.deviceProvider,
	})
	if err == nil && be == nil {
		err = errors.New("factory returned no backend")
	}
	if err != nil {
		e := wrapError(CodeBackendInit, "Init", err,
			"backend %q failed to initialize for resource %q", desc.Name, resource)
		log.Debug("ceed: backend init failed", "resource", resource, "backend", desc.Name, "err", err)
		return nil, initFailure(o.handler, e)
	}

	c := &Ceed{
		resource: resource,
		spec:     spec,
		desc:     desc,
		backend:  be,
		kernels:  defaultKernels{},
		handler:  o.handler,
		log:      log,
		vectors:  make(map[*Vector]struct{}),
	}
	if k, ok := be.(Kernels); ok {
		c.kernels = k
	}
	if ac, ok := be.(AccessChecker); ok {
		c.checker = ac
	}

	log.Info("ceed: backend selected",
		"resource", resource,
		"backend", desc.Name,
		"memtype", desc.PreferredMemType)
	return c, nil
}

// handle runs h for e and returns what the failing call returns. A handler
// returning nil cannot turn a failure into success: the call still aborts
// and returns e.
func handle(h ErrorHandler, e *Error) error {
	if err := h(e); err != nil {
		return err
	}
	return e
}

// initFailure runs the handler for a failure that produced no Ceed.
func initFailure(h ErrorHandler, e *Error) error {
	return handle(h, e)
}

// fail records a failure, logs it and hands it to the error handler.
// The result is never nil.
func (c *Ceed) fail(e *Error) error {
	c.reporter.record(e)
	c.log.Debug("ceed: operation failed", "origin", e.Origin, "code", e.Code, "msg", e.Message)
	return handle(c.handler, e)
}

func (c *Ceed) failf(code ErrorCode, origin, format string, args ...any) error {
	return c.fail(newError(code, origin, format, args...))
}

// Resource returns the resource string exactly as it was passed to Init.
func (c *Ceed) Resource() string {
	return c.resource
}

// Spec returns the parsed resource.
func (c *Ceed) Spec() ResourceSpec {
	return c.spec
}

// BackendName returns the name of the descriptor that won resolution.
func (c *Ceed) BackendName() string {
	return c.desc.Name
}

// Descriptor returns a copy of the descriptor that won resolution.
func (c *Ceed) Descriptor() Descriptor {
	return c.desc
}

// Backend returns the backend instance.
func (c *Ceed) Backend() Backend {
	return c.backend
}

// PreferredMemType returns the memory space the backend prefers callers to
// stage data in. It never fails and changes no state.
func (c *Ceed) PreferredMemType() MemType {
	return c.desc.PreferredMemType
}

// IsDeterministic reports whether the backend produces bit-identical results
// across runs.
func (c *Ceed) IsDeterministic() bool {
	return c.desc.Deterministic
}

// LastError returns the last failure recorded on this Ceed, or nil.
func (c *Ceed) LastError() *Error {
	return c.reporter.Last()
}

// ClearError forgets the last recorded failure.
func (c *Ceed) ClearError() {
	c.reporter.Clear()
}

// LiveObjects returns the number of vectors and retained references that
// keep this Ceed busy.
func (c *Ceed) LiveObjects() int {
	return len(c.vectors) + c.refs
}

// NewVector creates a vector of length n with no valid data.
// Storage is materialized on first access.
func (c *Ceed) NewVector(n int) (*Vector, error) {
	if c.destroyed {
		return nil, c.failf(CodeDestroyed, "Ceed.NewVector", "ceed %q is destroyed", c.resource)
	}
	if n < 0 {
		return nil, c.failf(CodeInvalidArgument, "Ceed.NewVector", "negative length %d", n)
	}
	c.nextID++
	v := &Vector{ceed: c, id: c.nextID, n: n}
	c.vectors[v] = struct{}{}
	return v, nil
}

// Ref keeps a Ceed busy on behalf of an object created outside this
// package, such as an operator or a restriction.
type Ref struct {
	ceed     *Ceed
	kind     string
	released bool
}

// Kind returns the label given to Retain.
func (r *Ref) Kind() string {
	return r.kind
}

// Release drops the reference. Further calls do nothing.
func (r *Ref) Release() {
	if r.released {
		return
	}
	r.released = true
	r.ceed.refs--
}

// Retain registers an external child object. The Ceed stays busy until the
// returned Ref is released.
func (c *Ceed) Retain(kind string) (*Ref, error) {
	if c.destroyed {
		return nil, c.failf(CodeDestroyed, "Ceed.Retain", "ceed %q is destroyed", c.resource)
	}
	c.refs++
	return &Ref{ceed: c, kind: kind}, nil
}

// Destroy closes the backend. It fails with ErrResourceBusy while any
// vector or retained reference is alive. If the backend fails to close the
// Ceed stays usable and Destroy may be called again. Destroying twice after
// a successful close does nothing.
func (c *Ceed) Destroy() error {
	if c.destroyed {
		return nil
	}
	if n := c.LiveObjects(); n > 0 {
		return c.failf(CodeResourceBusy, "Ceed.Destroy",
			"%d live objects (%d vectors, %d references)", n, len(c.vectors), c.refs)
	}
	if err := c.backend.Close(); err != nil {
		c.log.Warn("ceed: backend close failed", "backend", c.desc.Name, "err", err)
		return c.fail(wrapError(CodeBackend, "Ceed.Destroy", err, "closing backend %q", c.desc.Name))
	}
	c.destroyed = true
	c.log.Debug("ceed: destroyed", "resource", c.resource)
	return nil
}

// String returns a one-line description.
func (c *Ceed) String() string {
	return fmt.Sprintf("Ceed(%s -> %s)", c.resource, c.desc.Name)
}

// View writes a description of the Ceed to w. It changes no state.
func (c *Ceed) View(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Ceed\n")
	fmt.Fprintf(&b, "  Resource: %s\n", c.resource)
	fmt.Fprintf(&b, "  Backend: %s (%s %s, priority %d)\n",
		c.desc.Name, c.desc.Match, c.desc.Pattern, c.desc.Priority)
	fmt.Fprintf(&b, "  Preferred MemType: %s\n", c.desc.PreferredMemType)
	fmt.Fprintf(&b, "  Deterministic: %t\n", c.desc.Deterministic)
	if d, ok := c.backend.(Describer); ok {
		info := d.AdapterInfo()
		fmt.Fprintf(&b, "  Adapter: %s (%s)\n", adapterName(info), info.DeviceType)
	}
	fmt.Fprintf(&b, "  Live objects: %d vectors, %d references\n", len(c.vectors), c.refs)
	if c.destroyed {
		fmt.Fprintf(&b, "  Destroyed\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func adapterName(info gputypes.AdapterInfo) string {
	if info.Name == "" {
		return "unnamed"
	}
	return info.Name
}
