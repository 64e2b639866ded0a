package valueobject

import (
	"fmt"

	"portmirror/domain/entity"
)

// Reason tells why a frame fell through to pass.
type Reason uint8

const (
	ReasonNoPolicyMatch Reason = iota + 1
	ReasonNoMirrorTarget
	ReasonTruncated
	ReasonUnsupported
)

var reasonNames = map[Reason]string{
	ReasonNoPolicyMatch:  "no_policy_match",
	ReasonNoMirrorTarget: "no_mirror_target",
	ReasonTruncated:      "truncated",
	ReasonUnsupported:    "unsupported_protocol",
}

func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return "unknown"
}

// Reasons lists every reason code.
func Reasons() []Reason {
	return []Reason{ReasonNoPolicyMatch, ReasonNoMirrorTarget, ReasonTruncated, ReasonUnsupported}
}

// Diagnostic is emitted for every frame that was passed without a mirror. A frame whose policy
// entry says pass is reported as ReasonNoPolicyMatch like a frame with no entry at all.
type Diagnostic struct {
	Reason  Reason
	Ingress uint32
	// Key is only meaningful when HasKey is set, i.e. the frame got as far as the policy lookup.
	Key    entity.FlowKey
	HasKey bool
	Err    error
}

func (d Diagnostic) String() string {
	if d.HasKey {
		return fmt.Sprintf("{Reason: %s Ingress: %d Key: %s}", d.Reason, d.Ingress, d.Key)
	}
	if d.Err != nil {
		return fmt.Sprintf("{Reason: %s Ingress: %d Err: %v}", d.Reason, d.Ingress, d.Err)
	}
	return fmt.Sprintf("{Reason: %s Ingress: %d}", d.Reason, d.Ingress)
}
