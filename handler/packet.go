package handler

import (
	"context"
	"io"

	"github.com/google/gopacket"
	"golang.org/x/xerrors"

	"portmirror/domain/entity"
	"portmirror/infrastructure/log"
	"portmirror/pkg/nic"
)

// Source yields frames, e.g. an AF_PACKET socket or a pcap file.
type Source interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
}

// Sink accepts cloned frames for one mirror interface.
type Sink interface {
	WritePacketData(data []byte) error
}

// Processor is the mirror decision engine.
type Processor interface {
	Process(frame []byte, ingress uint32) entity.Action
}

// Recorder counts frames by their action and clone failures.
type Recorder interface {
	ObserveAction(a entity.Action)
	ObserveCloneError(mirror uint32)
}

type Stats struct {
	Frames      uint64
	Mirrored    uint64
	Passed      uint64
	CloneErrors uint64
}

type packet struct {
	engine   Processor
	sinks    map[uint32]Sink
	recorder Recorder
	// temporary reports whether a read error only means nothing arrived yet.
	temporary func(err error) bool
}

// NewPacket returns a handler that runs frames through engine and writes clones to the sink of
// the chosen mirror ifindex. recorder may be nil.
func NewPacket(engine Processor, sinks map[uint32]Sink, recorder Recorder, temporary func(err error) bool) *packet {
	if temporary == nil {
		temporary = func(error) bool { return false }
	}
	return &packet{engine: engine, sinks: sinks, recorder: recorder, temporary: temporary}
}

// Handle decides one frame and clones it if needed. The frame itself is never changed.
func (h *packet) Handle(frame []byte, ingress uint32, stats *Stats) entity.Action {
	action := h.engine.Process(frame, ingress)
	stats.Frames++
	if h.recorder != nil {
		h.recorder.ObserveAction(action)
	}
	if !action.IsMirror() {
		stats.Passed++
		return action
	}

	stats.Mirrored++
	sink, ok := h.sinks[action.Target]
	if !ok {
		log.Logger.Warnf("no sink opened for mirror %s", nic.Name(action.Target))
		h.cloneFailed(action.Target, stats)
		return action
	}
	if err := sink.WritePacketData(frame); err != nil {
		log.Logger.Debugf("failed to clone frame to %d: %+v", action.Target, err)
		h.cloneFailed(action.Target, stats)
	}
	return action
}

func (h *packet) cloneFailed(target uint32, stats *Stats) {
	stats.CloneErrors++
	if h.recorder != nil {
		h.recorder.ObserveCloneError(target)
	}
}

// Serve handles frames from src until ctx is done or src is exhausted.
func (h *packet) Serve(ctx context.Context, src Source, ingress uint32) (Stats, error) {
	var stats Stats
	for {
		if err := ctx.Err(); err != nil {
			return stats, nil
		}
		data, _, err := src.ReadPacketData()
		if err != nil {
			if err == io.EOF {
				return stats, nil
			}
			if h.temporary(err) {
				continue
			}
			err = xerrors.Errorf("failed to read frame on %d: %w", ingress, err)
			return stats, err
		}
		h.Handle(data, ingress, &stats)
	}
}
