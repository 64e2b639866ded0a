package flowkey

import (
	"portmirror/domain/entity"
	"portmirror/pkg/packet"
)

// Build copies the fields enabled in m from h. Disabled fields stay zero so that packets that
// only differ in them produce the same key.
func Build(h packet.Headers, m entity.KeyFieldMask) entity.FlowKey {
	key := entity.FlowKey{IPVersion: h.IPVersion}
	if m.Has(entity.KeyFieldSrc) {
		key.SrcAddr = h.SrcAddr
	}
	if m.Has(entity.KeyFieldDst) {
		key.DstAddr = h.DstAddr
	}
	if m.Has(entity.KeyFieldProto) {
		key.Protocol = h.Protocol
	}
	if m.Has(entity.KeyFieldSPort) {
		key.SrcPort = h.SrcPort
	}
	if m.Has(entity.KeyFieldDPort) {
		key.DstPort = h.DstPort
	}
	return key
}
