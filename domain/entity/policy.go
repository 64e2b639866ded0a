package entity

import (
	"fmt"
	"net"

	"github.com/thoas/go-funk"

	"portmirror/constant"
)

// Policy is the whole content of a policy file after name resolution.
type Policy struct {
	KeyFields KeyFieldMask
	Mirrors   []*Mirror
	Rules     []*Rule
}

func (p *Policy) String() string {
	return fmt.Sprintf("{KeyFields: %s Mirrors: %v Rules: %v}", p.KeyFields, p.Mirrors, p.Rules)
}

// TapIndexes returns the distinct tap interface indexes.
func (p *Policy) TapIndexes() []uint32 {
	idx := make([]uint32, 0, len(p.Mirrors))
	for _, m := range p.Mirrors {
		idx = append(idx, m.TapIndex)
	}
	return funk.Uniq(idx).([]uint32)
}

// Mirror pairs a tap interface with the interface its traffic is cloned to.
type Mirror struct {
	Tap         string
	TapIndex    uint32
	Mirror      string
	MirrorIndex uint32
}

func (m *Mirror) String() string {
	return fmt.Sprintf("{Tap: %s(%d) Mirror: %s(%d)}", m.Tap, m.TapIndex, m.Mirror, m.MirrorIndex)
}

// Rule is one policy table entry. Zero values mean the field is not specified.
type Rule struct {
	IPVersion uint8
	SrcIP     net.IP
	DstIP     net.IP
	Protocol  uint8
	SrcPort   uint16
	DstPort   uint16
	Action    Decision
}

func (r *Rule) String() string {
	return fmt.Sprintf("{IPVersion: %d SrcIP: %s DstIP: %s Protocol: %d SrcPort: %d DstPort: %d Action: %s}",
		r.IPVersion, r.SrcIP, r.DstIP, r.Protocol, r.SrcPort, r.DstPort, r.Action)
}

// Fields reports the key fields the rule specifies.
func (r *Rule) Fields() KeyFieldMask {
	var m KeyFieldMask
	if r.SrcIP != nil {
		m |= KeyFieldSrc
	}
	if r.DstIP != nil {
		m |= KeyFieldDst
	}
	if r.Protocol != 0 {
		m |= KeyFieldProto
	}
	if r.SrcPort != 0 {
		m |= KeyFieldSPort
	}
	if r.DstPort != 0 {
		m |= KeyFieldDPort
	}
	return m
}

// Key builds the policy table key of the rule.
func (r *Rule) Key() FlowKey {
	key := FlowKey{
		IPVersion: r.IPVersion,
		Protocol:  r.Protocol,
		SrcPort:   r.SrcPort,
		DstPort:   r.DstPort,
	}
	copyAddr(key.SrcAddr[:], r.SrcIP, r.IPVersion)
	copyAddr(key.DstAddr[:], r.DstIP, r.IPVersion)
	return key
}

func copyAddr(dst []byte, ip net.IP, version uint8) {
	if ip == nil {
		return
	}
	if version == constant.IPv4 {
		copy(dst, ip.To4())
		return
	}
	copy(dst, ip.To16())
}
