// Package wgpu registers an accelerator backend whose device memory lives
// in GPU buffers created through the gogpu/wgpu hardware abstraction layer.
//
// Vectors on this backend keep their device copy in a storage buffer.
// Uploads go through Queue.WriteBuffer, downloads map the buffer and copy
// out. Device memory is accounted against a budget; an allocation that would
// exceed it fails with ceed.ErrBackend.
//
// # Resources
//
//	/gpu/wgpu[:params]   this backend
//	/gpu                 alias, resolved to the highest priority GPU backend
//
// # Parameters
//
//	backend=NAME   HAL variant: vulkan, metal, dx12, gl or noop.
//	               Default: the highest priority variant linked into the binary.
//	budget_mb=N    device memory budget in megabytes (default 256).
//
// The noop variant is always linked in. It keeps buffers in host memory,
// which makes the backend usable in tests and on machines without a GPU.
// Importing a HAL package such as github.com/gogpu/wgpu/hal/vulkan adds the
// corresponding variant.
//
// # Shared devices
//
// When the Ceed is created with ceed.WithDeviceProvider, the backend uses
// the provider's device and queue instead of opening its own. The provider
// must expose HAL objects, either through HalDevice()/HalQueue() or by
// returning hal.Device and hal.Queue from Device() and Queue(). Destroying
// the Ceed leaves a shared device open.
package wgpu
