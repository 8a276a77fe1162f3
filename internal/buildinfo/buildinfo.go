// Package buildinfo carries the version stamped into release binaries.
package buildinfo

// Version is overridden at build time:
//
//	go build -ldflags "-X meshup/internal/buildinfo.Version=$(git describe --tags)"
var Version = "dev"
