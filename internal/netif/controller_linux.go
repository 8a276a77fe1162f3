//go:build linux

package netif

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// Controller drives link state through netlink.
type Controller struct{}

// New creates a netlink-backed interface controller.
func New() *Controller {
	return &Controller{}
}

// Exists reports whether the named interface is present.
func (c *Controller) Exists(_ context.Context, name string) (bool, error) {
	if _, err := netlink.LinkByName(name); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("find interface %q: %w", name, err)
	}
	return true, nil
}

// Up brings the interface up. Already-up links are a no-op success.
func (c *Controller) Up(_ context.Context, name string) error {
	link, err := byName(name)
	if err != nil {
		return err
	}
	if link.Attrs().Flags&unix.IFF_UP != 0 {
		return nil
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("set interface %q up: %w", name, err)
	}
	return nil
}

// Flush removes all IPv4 addresses from the interface. An interface with no
// addresses is a no-op success. IPv6 link-local state is left alone; only
// IPv4 is managed here.
func (c *Controller) Flush(_ context.Context, name string) error {
	link, err := byName(name)
	if err != nil {
		return err
	}
	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return fmt.Errorf("list addresses on %q: %w", name, err)
	}
	for _, addr := range addrs {
		if err := netlink.AddrDel(link, &addr); err != nil && !errors.Is(err, unix.EADDRNOTAVAIL) {
			return fmt.Errorf("flush address %s from %q: %w", addr.IPNet, name, err)
		}
	}
	return nil
}

// Assign adds the prefix to the interface. An identical existing assignment
// is a no-op success.
func (c *Controller) Assign(_ context.Context, name string, prefix netip.Prefix) error {
	link, err := byName(name)
	if err != nil {
		return err
	}
	ipnet := prefixToIPNet(prefix)
	if err := netlink.AddrAdd(link, &netlink.Addr{IPNet: &ipnet}); err != nil && !errors.Is(err, unix.EEXIST) {
		return fmt.Errorf("assign %s to %q: %w", prefix, name, err)
	}
	return nil
}

// Addresses returns the interface's IPv4 addresses in kernel order.
// Link-local self-assignment does not count: a 169.254/16 address must not
// satisfy a lease check.
func (c *Controller) Addresses(_ context.Context, name string) ([]netip.Prefix, error) {
	link, err := byName(name)
	if err != nil {
		return nil, err
	}
	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return nil, fmt.Errorf("list addresses on %q: %w", name, err)
	}

	prefixes := make([]netip.Prefix, 0, len(addrs))
	for _, addr := range addrs {
		if addr.IPNet == nil {
			continue
		}
		pref, err := ipNetToPrefix(*addr.IPNet)
		if err != nil {
			continue
		}
		if pref.Addr().IsLinkLocalUnicast() {
			continue
		}
		prefixes = append(prefixes, pref)
	}
	return prefixes, nil
}

func byName(name string) (netlink.Link, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("interface %q: %w", name, ErrAbsent)
		}
		return nil, fmt.Errorf("find interface %q: %w", name, err)
	}
	return link, nil
}

func isNotFound(err error) bool {
	_, ok := err.(netlink.LinkNotFoundError)
	return ok
}

func prefixToIPNet(pref netip.Prefix) net.IPNet {
	bits := 32
	if pref.Addr().Is6() {
		bits = 128
	}
	return net.IPNet{IP: pref.Addr().AsSlice(), Mask: net.CIDRMask(pref.Bits(), bits)}
}

func ipNetToPrefix(n net.IPNet) (netip.Prefix, error) {
	a, ok := netip.AddrFromSlice(n.IP)
	if !ok {
		return netip.Prefix{}, fmt.Errorf("invalid IP %v", n.IP)
	}
	ones, _ := n.Mask.Size()
	return netip.PrefixFrom(a.Unmap(), ones), nil
}
