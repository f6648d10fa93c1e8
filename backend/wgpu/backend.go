// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gogpu/ceed"
	"github.com/gogpu/ceed/internal/devmem"
	"github.com/gogpu/ceed/internal/hostpool"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Name is the descriptor name of the wgpu backend.
const Name = "wgpu"

func init() {
	for _, d := range []ceed.Descriptor{
		{Pattern: "/gpu/wgpu", Match: ceed.MatchPrefix},
		{Pattern: "/gpu", Match: ceed.MatchExact},
	} {
		d.Name = Name
		d.Priority = ceed.PriorityDevice
		d.PreferredMemType = ceed.MemDevice
		d.Factory = New
		ceed.MustRegister(d)
	}
}

// SetLogger forwards l to the HAL layer. Pass nil to silence it.
func SetLogger(l *slog.Logger) {
	hal.SetLogger(l)
}

// Backend owns (or borrows) one HAL device and accounts its buffers.
type Backend struct {
	log *slog.Logger

	instance hal.Instance // nil for a shared device
	device   hal.Device
	queue    hal.Queue
	shared   bool
	info     gputypes.AdapterInfo
	variant  string

	host *hostpool.Pool
	mem  *devmem.Manager

	closed bool
}

// halProvider is implemented by device providers that expose HAL objects
// directly.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// New creates a wgpu backend from an init request.
func New(req ceed.InitRequest) (ceed.Backend, error) {
	params := req.Resource.Params()

	budget := devmem.DefaultMaxMemoryMB
	if s := params["budget_mb"]; s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("wgpu: budget_mb=%q is not a positive integer", s)
		}
		budget = n
	}

	log := req.Logger
	if log == nil {
		log = ceed.Logger()
	}
	b := &Backend{
		log:  log,
		host: hostpool.New(),
		mem:  devmem.NewManager(devmem.Config{MaxMemoryMB: budget}),
	}

	var err error
	if req.DeviceProvider != nil {
		err = b.useProvider(req.DeviceProvider)
	} else {
		err = b.open(params["backend"])
	}
	if err != nil {
		b.mem.Close()
		return nil, err
	}

	log.Debug("ceed: wgpu device ready",
		"adapter", b.info.Name,
		"variant", b.variant,
		"shared", b.shared,
		"budget_mb", budget)
	return b, nil
}

// open creates an instance of the requested HAL variant and opens a device
// on its best adapter.
func (b *Backend) open(variantParam string) error {
	variant, name, err := selectVariant(variantParam)
	if err != nil {
		return err
	}
	api, ok := hal.GetBackend(variant)
	if !ok {
		return fmt.Errorf("wgpu: HAL backend %q not available", name)
	}
	instance, err := api.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("wgpu: create %s instance: %w", name, err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return fmt.Errorf("wgpu: no %s adapters found", name)
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return fmt.Errorf("wgpu: open device on %q: %w", selected.Info.Name, err)
	}

	b.instance = instance
	b.device = openDev.Device
	b.queue = openDev.Queue
	b.info = selected.Info
	b.variant = name
	return nil
}

// useProvider borrows the device and queue of an external provider.
func (b *Backend) useProvider(p gpucontext.DeviceProvider) error {
	var dev, queue any
	if hp, ok := p.(halProvider); ok {
		dev, queue = hp.HalDevice(), hp.HalQueue()
	} else {
		dev, queue = p.Device(), p.Queue()
	}
	device, ok := dev.(hal.Device)
	if !ok || device == nil {
		return errors.New("wgpu: device provider does not expose a hal.Device")
	}
	q, ok := queue.(hal.Queue)
	if !ok || q == nil {
		return errors.New("wgpu: device provider does not expose a hal.Queue")
	}

	pinfo := p.AdapterInfo()
	b.device = device
	b.queue = q
	b.shared = true
	b.variant = "shared"
	b.info = gputypes.AdapterInfo{
		Name:       pinfo.Name,
		DeviceType: deviceType(pinfo.Type),
		Driver:     "shared",
	}
	return nil
}

// deviceType maps a provider adapter type to a gputypes device type.
func deviceType(t gpucontext.AdapterType) gputypes.DeviceType {
	switch t {
	case gpucontext.AdapterTypeDiscrete:
		return gputypes.DeviceTypeDiscreteGPU
	case gpucontext.AdapterTypeIntegrated:
		return gputypes.DeviceTypeIntegratedGPU
	case gpucontext.AdapterTypeSoftware:
		return gputypes.DeviceTypeCPU
	default:
		return gputypes.DeviceTypeOther
	}
}

// HostAllocator returns the backend itself; host copies come from a pool.
func (b *Backend) HostAllocator() ceed.HostAllocator { return b }

// Alloc returns pooled host storage for n scalars.
func (b *Backend) Alloc(n int) []float64 { return b.host.Get(n) }

// Free returns host storage to the pool.
func (b *Backend) Free(buf []float64) { b.host.Put(buf) }

// Device returns the device memory space.
func (b *Backend) Device() ceed.Device { return (*deviceMemory)(b) }

// AdapterInfo describes the adapter the device was opened on.
func (b *Backend) AdapterInfo() gputypes.AdapterInfo { return b.info }

// Variant returns the HAL variant name, or "shared" for a provider device.
func (b *Backend) Variant() string { return b.variant }

// Shared reports whether the device belongs to a device provider.
func (b *Backend) Shared() bool { return b.shared }

// MemoryStats returns device memory accounting.
func (b *Backend) MemoryStats() devmem.Stats { return b.mem.Stats() }

// HostStats returns host pool counters.
func (b *Backend) HostStats() hostpool.Stats { return b.host.Stats() }

// Close destroys the device unless it is shared. Closing twice does nothing.
func (b *Backend) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true

	stats := b.mem.Stats()
	if stats.Reservations > 0 {
		b.log.Warn("ceed: device buffers outstanding at close", "buffers", stats.Reservations)
	}
	b.log.Debug("ceed: wgpu backend closed", "memory", stats.String())
	b.mem.Close()

	if b.shared {
		b.device, b.queue = nil, nil
		return nil
	}
	b.device.Destroy()
	b.instance.Destroy()
	b.device, b.queue, b.instance = nil, nil, nil
	return nil
}
