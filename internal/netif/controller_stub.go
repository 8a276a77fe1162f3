//go:build !linux

package netif

import (
	"context"
	"fmt"
	"net/netip"
	"runtime"
)

// Controller is a no-op link controller for unsupported platforms. Mesh
// bring-up targets Linux hosts; this keeps the tree building elsewhere.
type Controller struct{}

func New() *Controller { return &Controller{} }

func (c *Controller) Exists(_ context.Context, _ string) (bool, error) {
	return false, errUnsupported()
}

func (c *Controller) Up(_ context.Context, _ string) error {
	return errUnsupported()
}

func (c *Controller) Flush(_ context.Context, _ string) error {
	return errUnsupported()
}

func (c *Controller) Assign(_ context.Context, _ string, _ netip.Prefix) error {
	return errUnsupported()
}

func (c *Controller) Addresses(_ context.Context, _ string) ([]netip.Prefix, error) {
	return nil, errUnsupported()
}

func errUnsupported() error {
	return fmt.Errorf("link control not supported on %s", runtime.GOOS)
}
