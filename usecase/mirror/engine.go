package mirror

import (
	"sync/atomic"

	"golang.org/x/xerrors"

	"portmirror/constant"
	"portmirror/domain/entity"
	"portmirror/domain/valueobject"
	"portmirror/pkg/flowkey"
	"portmirror/pkg/packet"
	"portmirror/pkg/table"
)

// ErrNoMirrorTarget is carried by the diagnostic emitted when a frame should be mirrored but the
// ingress interface has no mirror.
var ErrNoMirrorTarget = xerrors.New("no mirror target")

// Observer receives diagnostics from the packet path. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	Observe(d valueobject.Diagnostic)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(d valueobject.Diagnostic)

func (f ObserverFunc) Observe(d valueobject.Diagnostic) { f(d) }

// PolicyTable maps flow keys to decisions.
type PolicyTable interface {
	Get(key entity.FlowKey) (entity.Decision, bool)
	Put(key entity.FlowKey, d entity.Decision) error
	Delete(key entity.FlowKey)
	Len() int
}

// InterfaceTable maps a tap ifindex to its mirror ifindex.
type InterfaceTable interface {
	Get(tap uint32) (uint32, bool)
	Put(tap, mirror uint32) error
	Delete(tap uint32)
	Len() int
}

// Engine decides for each frame whether a copy goes to a mirror interface.
// Process may be called from any number of goroutines while the control plane methods update
// the mask and the tables.
type Engine struct {
	mask       atomic.Uint32
	policies   PolicyTable
	interfaces InterfaceTable
	observer   Observer
}

// NewEngine creates an engine with empty tables of the default capacity. observer may be nil.
func NewEngine(observer Observer) *Engine {
	return NewEngineWithTables(
		table.New[entity.FlowKey, entity.Decision](constant.PolicyTableCapacity),
		table.New[uint32, uint32](constant.InterfaceTableCapacity),
		observer,
	)
}

func NewEngineWithTables(policies PolicyTable, interfaces InterfaceTable, observer Observer) *Engine {
	return &Engine{
		policies:   policies,
		interfaces: interfaces,
		observer:   observer,
	}
}

// SetKeyMask replaces the active mask. It applies to every frame processed afterwards.
func (e *Engine) SetKeyMask(m entity.KeyFieldMask) {
	e.mask.Store(uint32(m))
}

func (e *Engine) KeyMask() entity.KeyFieldMask {
	return entity.KeyFieldMask(e.mask.Load())
}

func (e *Engine) Policies() PolicyTable {
	return e.policies
}

func (e *Engine) Interfaces() InterfaceTable {
	return e.interfaces
}

func (e *Engine) PolicyPut(key entity.FlowKey, d entity.Decision) error {
	if err := e.policies.Put(key, d); err != nil {
		return xerrors.Errorf("failed to put policy: %w", err)
	}
	return nil
}

func (e *Engine) PolicyDelete(key entity.FlowKey) {
	e.policies.Delete(key)
}

func (e *Engine) InterfacePut(tap, mirror uint32) error {
	if err := e.interfaces.Put(tap, mirror); err != nil {
		return xerrors.Errorf("failed to put interface %d: %w", tap, err)
	}
	return nil
}

func (e *Engine) InterfaceDelete(tap uint32) {
	e.interfaces.Delete(tap)
}

// Process returns the action for frame received on ingress. It never modifies frame and never
// fails: anything that prevents a decision results in Pass.
func (e *Engine) Process(frame []byte, ingress uint32) entity.Action {
	mask := e.KeyMask()
	if mask == entity.NoFilter {
		return e.resolve(ingress, entity.FlowKey{}, false)
	}

	h, err := packet.Parse(frame)
	if err != nil {
		reason := valueobject.ReasonTruncated
		if xerrors.Is(err, packet.ErrUnsupported) {
			reason = valueobject.ReasonUnsupported
		}
		e.observe(valueobject.Diagnostic{Reason: reason, Ingress: ingress, Err: err})
		return entity.Pass()
	}

	key := flowkey.Build(h, mask)
	if d, _ := e.lookup(key, mask); d != entity.DecisionMirror {
		e.observe(valueobject.Diagnostic{Reason: valueobject.ReasonNoPolicyMatch, Ingress: ingress, Key: key, HasKey: true})
		return entity.Pass()
	}
	return e.resolve(ingress, key, true)
}

func (e *Engine) resolve(ingress uint32, key entity.FlowKey, hasKey bool) entity.Action {
	target, ok := e.interfaces.Get(ingress)
	if !ok {
		e.observe(valueobject.Diagnostic{
			Reason:  valueobject.ReasonNoMirrorTarget,
			Ingress: ingress,
			Key:     key,
			HasKey:  hasKey,
			Err:     ErrNoMirrorTarget,
		})
		return entity.Pass()
	}
	return entity.MirrorTo(target)
}

// lookup tries the exact key first. A policy entry with a zero port matches any value of that
// port, so on a miss the enabled non-zero ports are zeroed: destination, then source, then both.
func (e *Engine) lookup(key entity.FlowKey, mask entity.KeyFieldMask) (entity.Decision, bool) {
	if d, ok := e.policies.Get(key); ok {
		return d, true
	}
	sport := mask.Has(entity.KeyFieldSPort) && key.SrcPort != 0
	dport := mask.Has(entity.KeyFieldDPort) && key.DstPort != 0
	if dport {
		k := key
		k.DstPort = 0
		if d, ok := e.policies.Get(k); ok {
			return d, true
		}
	}
	if sport {
		k := key
		k.SrcPort = 0
		if d, ok := e.policies.Get(k); ok {
			return d, true
		}
	}
	if sport && dport {
		k := key
		k.SrcPort, k.DstPort = 0, 0
		if d, ok := e.policies.Get(k); ok {
			return d, true
		}
	}
	return entity.DecisionPass, false
}

func (e *Engine) observe(d valueobject.Diagnostic) {
	if e.observer != nil {
		e.observer.Observe(d)
	}
}
