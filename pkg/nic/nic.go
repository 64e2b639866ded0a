package nic

import (
	"strconv"

	"github.com/vishvananda/netlink"
	"golang.org/x/xerrors"
)

// Resolver turns interface names into ifindexes.
type Resolver interface {
	Index(name string) (uint32, error)
}

type NetlinkResolver struct{}

func NewNetlinkResolver() *NetlinkResolver {
	return &NetlinkResolver{}
}

// Index accepts either a numeric ifindex or an interface name.
func (*NetlinkResolver) Index(name string) (uint32, error) {
	if idx, err := strconv.ParseUint(name, 10, 32); err == nil {
		return uint32(idx), nil
	}
	link, err := netlink.LinkByName(name)
	if err != nil {
		err = xerrors.Errorf("failed to find interface %s: %w", name, err)
		return 0, err
	}
	return uint32(link.Attrs().Index), nil
}

// Name returns the interface name of ifindex, or the number itself when it cannot be found.
func Name(ifindex uint32) string {
	link, err := netlink.LinkByIndex(int(ifindex))
	if err != nil {
		return strconv.FormatUint(uint64(ifindex), 10)
	}
	return link.Attrs().Name
}

// StaticResolver resolves from a fixed table, falling back to numeric names.
type StaticResolver map[string]uint32

func (s StaticResolver) Index(name string) (uint32, error) {
	if idx, ok := s[name]; ok {
		return idx, nil
	}
	if idx, err := strconv.ParseUint(name, 10, 32); err == nil {
		return uint32(idx), nil
	}
	return 0, xerrors.Errorf("failed to find interface %s", name)
}
