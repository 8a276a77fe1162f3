//go:build !debug

package check

// Assert costs nothing in release builds.
func Assert(_ bool, _ string) {}

// Assertf costs nothing in release builds.
func Assertf(_ bool, _ string, _ ...any) {}
