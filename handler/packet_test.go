package handler

import (
	"context"
	"io"
	"testing"

	"github.com/google/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"portmirror/domain/entity"
)

type fakeSource struct {
	frames [][]byte
	errs   []error
}

func (s *fakeSource) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, gopacket.CaptureInfo{}, err
		}
	}
	if len(s.frames) == 0 {
		return nil, gopacket.CaptureInfo{}, io.EOF
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, gopacket.CaptureInfo{CaptureLength: len(f), Length: len(f)}, nil
}

type fakeSink struct {
	written [][]byte
	err     error
}

func (s *fakeSink) WritePacketData(data []byte) error {
	if s.err != nil {
		return s.err
	}
	s.written = append(s.written, append([]byte(nil), data...))
	return nil
}

// firstByte mirrors frames starting with 1 to ifindex 7 and 2 to ifindex 8.
type firstByte struct{}

func (firstByte) Process(frame []byte, ingress uint32) entity.Action {
	if len(frame) == 0 {
		return entity.Pass()
	}
	switch frame[0] {
	case 1:
		return entity.MirrorTo(7)
	case 2:
		return entity.MirrorTo(8)
	}
	return entity.Pass()
}

type countRecorder struct {
	actions     []entity.Action
	cloneErrors []uint32
}

func (r *countRecorder) ObserveAction(a entity.Action)   { r.actions = append(r.actions, a) }
func (r *countRecorder) ObserveCloneError(mirror uint32) { r.cloneErrors = append(r.cloneErrors, mirror) }

func TestPacket_Serve(t *testing.T) {
	sink := &fakeSink{}
	rec := &countRecorder{}
	h := NewPacket(firstByte{}, map[uint32]Sink{7: sink}, rec, nil)
	src := &fakeSource{frames: [][]byte{{1, 0xaa}, {0, 0xbb}, {2, 0xcc}, {1, 0xdd}}}

	stats, err := h.Serve(context.Background(), src, 3)
	require.NoError(t, err)
	assert.Equal(t, Stats{Frames: 4, Mirrored: 3, Passed: 1, CloneErrors: 1}, stats)
	assert.Equal(t, [][]byte{{1, 0xaa}, {1, 0xdd}}, sink.written)
	assert.Len(t, rec.actions, 4)
	assert.Equal(t, []uint32{8}, rec.cloneErrors)
}

func TestPacket_SinkError(t *testing.T) {
	sink := &fakeSink{err: xerrors.New("link down")}
	h := NewPacket(firstByte{}, map[uint32]Sink{7: sink}, nil, nil)

	var stats Stats
	action := h.Handle([]byte{1}, 3, &stats)
	assert.Equal(t, entity.MirrorTo(7), action)
	assert.Equal(t, uint64(1), stats.CloneErrors)
}

func TestPacket_TemporaryErrors(t *testing.T) {
	timeout := xerrors.New("timeout")
	src := &fakeSource{frames: [][]byte{{1}}, errs: []error{timeout, timeout, nil}}
	sink := &fakeSink{}
	h := NewPacket(firstByte{}, map[uint32]Sink{7: sink}, nil, func(err error) bool { return err == timeout })

	stats, err := h.Serve(context.Background(), src, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.Mirrored)
	assert.Len(t, sink.written, 1)
}

func TestPacket_ReadError(t *testing.T) {
	src := &fakeSource{errs: []error{xerrors.New("socket closed")}}
	h := NewPacket(firstByte{}, nil, nil, nil)

	_, err := h.Serve(context.Background(), src, 3)
	assert.Error(t, err)
}

func TestPacket_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &fakeSource{frames: [][]byte{{1}}}
	sink := &fakeSink{}
	h := NewPacket(firstByte{}, map[uint32]Sink{7: sink}, nil, nil)

	stats, err := h.Serve(ctx, src, 3)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
	assert.Empty(t, sink.written)
}
