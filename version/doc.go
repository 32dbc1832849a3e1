// Package version reports build information for loop binaries.
//
// Version, commit and build time can be set at link time and otherwise
// fall back to what the Go toolchain embedded:
//
//	go build -ldflags "-X github.com/kbukum/loop/version.Version=v1.2.0" ./cmd/loopbench
package version
