package packet

import (
	"encoding/binary"
	"syscall"

	"golang.org/x/xerrors"

	"portmirror/constant"
)

// Headers holds the fields of one frame the flow key can be built from.
type Headers struct {
	IPVersion uint8
	SrcAddr   [constant.IPv6Length]byte
	DstAddr   [constant.IPv6Length]byte
	Protocol  uint8
	SrcPort   uint16
	DstPort   uint16
}

// Parse reads ethernet, ip and (for tcp and udp) the transport ports of frame.
// IPv6 extension headers are not walked, so the protocol is the first next-header value.
func Parse(frame []byte) (h Headers, err error) {
	c := NewCursor(frame)

	eth, err := c.Next(constant.EthernetHeaderLen)
	if err != nil {
		return h, xerrors.Errorf("ethernet: %w", err)
	}
	etherType := binary.BigEndian.Uint16(eth[12:14])

	var transport int
	switch etherType {
	case constant.EtherTypeIPv4:
		transport, err = parseIPv4(c, &h)
	case constant.EtherTypeIPv6:
		transport, err = parseIPv6(c, &h)
	default:
		return h, xerrors.Errorf("ethertype 0x%04x: %w", etherType, ErrUnsupported)
	}
	if err != nil {
		return h, err
	}

	switch h.Protocol {
	case syscall.IPPROTO_TCP:
		err = parsePorts(c, transport, constant.TCPHeaderLen, &h)
	case syscall.IPPROTO_UDP:
		err = parsePorts(c, transport, constant.UDPHeaderLen, &h)
	}
	return h, err
}

func parseIPv4(c *Cursor, h *Headers) (int, error) {
	start := c.Offset()
	ip, err := c.Next(constant.IPv4HeaderLen)
	if err != nil {
		return 0, xerrors.Errorf("ipv4: %w", err)
	}
	ihl := int(ip[0] & 0x0f)
	if ihl*4 < constant.IPv4HeaderLen {
		return 0, xerrors.Errorf("ipv4 ihl %d: %w", ihl, ErrUnsupported)
	}
	h.IPVersion = constant.IPv4
	h.Protocol = ip[9]
	copy(h.SrcAddr[:constant.IPv4Length], ip[12:16])
	copy(h.DstAddr[:constant.IPv4Length], ip[16:20])
	return start + ihl*4, nil
}

func parseIPv6(c *Cursor, h *Headers) (int, error) {
	ip, err := c.Next(constant.IPv6HeaderLen)
	if err != nil {
		return 0, xerrors.Errorf("ipv6: %w", err)
	}
	h.IPVersion = constant.IPv6
	h.Protocol = ip[6]
	copy(h.SrcAddr[:], ip[8:24])
	copy(h.DstAddr[:], ip[24:40])
	return c.Offset(), nil
}

// parsePorts requires the whole fixed transport header. tcp and udp both carry the source
// port at 0 and the destination port at 2.
func parsePorts(c *Cursor, offset, headerLen int, h *Headers) error {
	if _, err := c.ReadN(offset, headerLen); err != nil {
		return xerrors.Errorf("transport: %w", err)
	}
	var err error
	if h.SrcPort, err = c.Uint16(offset); err != nil {
		return xerrors.Errorf("transport: %w", err)
	}
	if h.DstPort, err = c.Uint16(offset + 2); err != nil {
		return xerrors.Errorf("transport: %w", err)
	}
	return nil
}
