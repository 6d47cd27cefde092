package main

import (
	"fmt"
	"runtime"
)

var (
	// Version is set at build time via ldflags
	Version = "v0.1.0"
)

// PrintVersion prints the version and build information.
func PrintVersion() {
	fmt.Printf("poolwatch %s (%s, %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
