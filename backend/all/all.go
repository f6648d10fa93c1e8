// Package all links every bundled backend into the binary.
//
// Usage:
//
//	import _ "github.com/gogpu/ceed/backend/all"
package all

import (
	_ "github.com/gogpu/ceed/backend/memcheck"
	_ "github.com/gogpu/ceed/backend/opt"
	_ "github.com/gogpu/ceed/backend/ref"
	_ "github.com/gogpu/ceed/backend/wgpu"
)
