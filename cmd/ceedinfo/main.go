// Command ceedinfo lists the registered ceed backends, shows how resource
// strings resolve and smoke-tests a backend end to end.
//
// Usage:
//
//	ceedinfo backends
//	ceedinfo resolve /cpu/self/ref:workers=4
//	ceedinfo check --resource /gpu --length 1000
//
// Every flag can also be set through the environment with the CEED_ prefix,
// for example CEED_RESOURCE=/gpu/wgpu:backend=vulkan.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
