//go:build !(js && wasm)

package wgpu

// The in-memory HAL is always available outside the browser.
import _ "github.com/gogpu/wgpu/hal/noop"
