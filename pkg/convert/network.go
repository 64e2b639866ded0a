package convert

import (
	"net"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/xerrors"

	"portmirror/constant"
)

func ProtoToString(proto uint8) (protocol string) {
	if proto == syscall.IPPROTO_TCP {
		protocol = "TCP"
	} else if proto == syscall.IPPROTO_UDP {
		protocol = "UDP"
	} else if proto == syscall.IPPROTO_ICMP {
		protocol = "ICMP"
	} else if proto == syscall.IPPROTO_ICMPV6 {
		protocol = "ICMPv6"
	} else {
		protocol = strconv.Itoa(int(proto))
	}
	return
}

// StringToProto accepts a protocol name or its number. An empty string is 0 (any).
func StringToProto(proto string) (uint8, error) {
	proto = strings.ToLower(strings.TrimSpace(proto))
	switch proto {
	case "":
		return 0, nil
	case "tcp", "tcp6":
		return syscall.IPPROTO_TCP, nil
	case "udp", "udp6":
		return syscall.IPPROTO_UDP, nil
	case "icmp":
		return syscall.IPPROTO_ICMP, nil
	case "icmpv6", "icmp6":
		return syscall.IPPROTO_ICMPV6, nil
	}
	n, err := strconv.ParseUint(proto, 10, 8)
	if err != nil {
		return 0, xerrors.Errorf("unknown protocol: %q", proto)
	}
	return uint8(n), nil
}

// ParseHost parses an address and reports its ip version. An empty string is a nil address.
func ParseHost(host string) (ip net.IP, version uint8, err error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, 0, nil
	}
	ip = net.ParseIP(host)
	if ip == nil {
		return nil, 0, xerrors.Errorf("invalid address: %q", host)
	}
	if v4 := ip.To4(); v4 != nil {
		return v4, constant.IPv4, nil
	}
	return ip, constant.IPv6, nil
}
