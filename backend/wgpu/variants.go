package wgpu

import (
	"fmt"
	"slices"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// variantPriority orders HAL variants when no backend= parameter is given.
// Hardware first, the in-memory noop HAL last.
var variantPriority = []string{"vulkan", "metal", "dx12", "gl", "noop"}

var variantsByName = map[string]gputypes.Backend{
	"vulkan": gputypes.BackendVulkan,
	"metal":  gputypes.BackendMetal,
	"dx12":   gputypes.BackendDX12,
	"gl":     gputypes.BackendGL,
	"noop":   gputypes.BackendEmpty,
}

// variantName returns the parameter name of a HAL variant.
func variantName(v gputypes.Backend) string {
	for name, b := range variantsByName {
		if b == v {
			return name
		}
	}
	return v.String()
}

// availableVariants returns a registry of the HAL variants linked into the
// binary, keyed by parameter name.
func availableVariants() *gpucontext.Registry[gputypes.Backend] {
	reg := gpucontext.NewRegistry[gputypes.Backend](gpucontext.WithPriority(variantPriority...))
	for _, v := range hal.AvailableBackends() {
		name := variantName(v)
		if _, known := variantsByName[name]; !known {
			continue
		}
		reg.Register(name, func() gputypes.Backend { return v })
	}
	return reg
}

// Variants lists the HAL variants linked into the binary, in priority order.
func Variants() []string {
	reg := availableVariants()
	var out []string
	for _, name := range variantPriority {
		if reg.Has(name) {
			out = append(out, name)
		}
	}
	return out
}

// selectVariant resolves the backend= parameter. An empty name picks the
// highest priority available variant.
func selectVariant(name string) (gputypes.Backend, string, error) {
	reg := availableVariants()
	if name == "" {
		name = reg.BestName()
		if name == "" {
			return 0, "", fmt.Errorf("wgpu: no HAL backend linked into the binary")
		}
	}
	if _, known := variantsByName[name]; !known {
		return 0, "", fmt.Errorf("wgpu: unknown HAL backend %q (known: %v)", name, variantPriority)
	}
	// BackendEmpty is the zero value, so Get alone cannot tell noop from missing.
	if !reg.Has(name) {
		avail := reg.Available()
		slices.Sort(avail)
		return 0, "", fmt.Errorf("wgpu: HAL backend %q not linked in (available: %v)", name, avail)
	}
	return reg.Get(name), name, nil
}
