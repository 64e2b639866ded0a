package entity

import (
	"fmt"
	"net"
	"strings"

	"golang.org/x/xerrors"

	"portmirror/constant"
)

// KeyFieldMask selects which parsed header fields take part in a FlowKey.
type KeyFieldMask uint8

const (
	KeyFieldSrc KeyFieldMask = 1 << iota
	KeyFieldDst
	KeyFieldProto
	KeyFieldSPort
	KeyFieldDPort
)

// NoFilter mirrors every packet without consulting the policy table.
const NoFilter KeyFieldMask = 0

// KeyFieldAll enables every key field.
const KeyFieldAll = KeyFieldSrc | KeyFieldDst | KeyFieldProto | KeyFieldSPort | KeyFieldDPort

var keyFieldNames = []struct {
	field KeyFieldMask
	name  string
}{
	{KeyFieldSrc, "src"},
	{KeyFieldDst, "dst"},
	{KeyFieldProto, "proto"},
	{KeyFieldSPort, "sport"},
	{KeyFieldDPort, "dport"},
}

func (m KeyFieldMask) Has(f KeyFieldMask) bool {
	return m&f == f
}

func (m KeyFieldMask) String() string {
	if m == NoFilter {
		return "none"
	}
	names := make([]string, 0, len(keyFieldNames))
	for _, kf := range keyFieldNames {
		if m.Has(kf.field) {
			names = append(names, kf.name)
		}
	}
	return strings.Join(names, "|")
}

// ParseKeyField converts a field name (src, dst, proto, sport, dport) to its mask bit.
func ParseKeyField(name string) (KeyFieldMask, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, kf := range keyFieldNames {
		if kf.name == name {
			return kf.field, nil
		}
	}
	return NoFilter, xerrors.Errorf("unknown key field: %q", name)
}

// ParseKeyFields ORs together the mask bits of all names.
func ParseKeyFields(names []string) (KeyFieldMask, error) {
	var m KeyFieldMask
	for _, name := range names {
		f, err := ParseKeyField(name)
		if err != nil {
			return NoFilter, xerrors.Errorf(": %w", err)
		}
		m |= f
	}
	return m, nil
}

// FlowKey is the exact-match key of the policy table.
// Addresses are always 16 bytes; an IPv4 address occupies the first 4 bytes.
type FlowKey struct {
	SrcAddr   [constant.IPv6Length]byte
	DstAddr   [constant.IPv6Length]byte
	SrcPort   uint16
	DstPort   uint16
	Protocol  uint8
	IPVersion uint8
}

func (k FlowKey) addr(b [constant.IPv6Length]byte) net.IP {
	if k.IPVersion == constant.IPv4 {
		return net.IP(b[:constant.IPv4Length])
	}
	return net.IP(b[:])
}

func (k FlowKey) String() string {
	return fmt.Sprintf("{IPVersion: %d Src: %s Dst: %s Protocol: %d SrcPort: %d DstPort: %d}",
		k.IPVersion, k.addr(k.SrcAddr), k.addr(k.DstAddr), k.Protocol, k.SrcPort, k.DstPort)
}

// Decision is the value stored in the policy table. 1 is mirror, anything else is pass.
type Decision uint8

const (
	DecisionPass   Decision = 0
	DecisionMirror Decision = 1
)

func (d Decision) String() string {
	if d == DecisionMirror {
		return "mirror"
	}
	return "pass"
}

// ParseDecision converts "mirror" or "pass" to a Decision. An empty string means mirror.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mirror":
		return DecisionMirror, nil
	case "pass":
		return DecisionPass, nil
	default:
		return DecisionPass, xerrors.Errorf("unknown action: %q", s)
	}
}

type ActionKind uint8

const (
	ActionPass ActionKind = iota
	ActionMirror
)

// Action is the final verdict for one frame. A mirror action clones the frame to Target,
// the original always continues on its normal path.
type Action struct {
	Kind   ActionKind
	Target uint32
}

func Pass() Action {
	return Action{Kind: ActionPass}
}

func MirrorTo(target uint32) Action {
	return Action{Kind: ActionMirror, Target: target}
}

func (a Action) IsMirror() bool {
	return a.Kind == ActionMirror
}

func (a Action) String() string {
	if a.IsMirror() {
		return fmt.Sprintf("Mirror(%d)", a.Target)
	}
	return "Pass"
}
