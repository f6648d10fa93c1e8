// Package ceed is the backend-selection and data-ownership runtime of a
// numerical library that runs on several execution targets behind one
// front end.
//
// # Overview
//
// Client code asks for a resource, a backend identifier string such as
// "/cpu/self/ref" or "/gpu/wgpu:backend=noop", and receives a [Ceed] bound to
// exactly one backend implementation. The Ceed mints [Vector] values whose
// storage may live in host memory or in a device memory space, depending on
// the backend.
//
// # Quick Start
//
//	import (
//		"github.com/gogpu/ceed"
//		_ "github.com/gogpu/ceed/backend/all"
//	)
//
//	c, err := ceed.Init("/cpu/self")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Destroy()
//
//	v, _ := c.NewVector(5)
//	arr, _ := v.GetArray(ceed.MemHost, ceed.ReadWrite)
//	arr.Host()[0] = 1
//	_ = v.RestoreArray(arr)
//	_ = v.Destroy()
//
// # Backend Selection
//
// Backends register a [Descriptor] (pattern, priority, preferred memory type,
// factory) with the process-wide registry from their init functions. Init
// splits the resource at the first ':' into a backend name and an optional
// qualifier, keeps the descriptors whose pattern matches the name, and picks
// the highest priority one. Ties go to the descriptor registered first.
//
// # Array Access
//
// A Vector is either idle or lent out through exactly one [Array] token.
// GetArray lends it, RestoreArray takes it back. A second GetArray before the
// restore fails with [ErrAlreadyAccessed]; RestoreArray on an idle vector
// fails with [ErrNotAccessed].
//
// # Errors
//
// Every failure is an [*Error] carrying a [ErrorCode], a message and the name
// of the failing call. The Ceed keeps the last one for [Ceed.LastError].
//
// # Thread Safety
//
// A Ceed and everything it created must be used from one goroutine at a time;
// the runtime does no locking of its own there. Distinct Ceeds share nothing
// and may be driven concurrently. The registry is safe for concurrent use.
package ceed

// Version is the current version of the library.
const Version = "0.3.0"
