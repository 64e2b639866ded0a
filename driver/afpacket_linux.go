package driver

import (
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/afpacket"
	"golang.org/x/xerrors"

	"portmirror/constant"
	"portmirror/infrastructure/log"
)

// ErrTimeout is returned by ReadPacketData when no frame arrived within the poll timeout.
var ErrTimeout = afpacket.ErrTimeout

// Tap is an AF_PACKET socket bound to one interface. It reads frames for mirroring and writes
// cloned frames when the interface is a mirror target.
type Tap struct {
	name   string
	handle *afpacket.TPacket
}

func OpenTap(name string) (*Tap, error) {
	log.Logger.Debugf("trying to open af_packet socket on %s", name)
	handle, err := afpacket.NewTPacket(
		afpacket.OptInterface(name),
		afpacket.OptFrameSize(constant.SnapLen),
		afpacket.OptBlockSize(constant.SnapLen*128),
		afpacket.OptNumBlocks(8),
		afpacket.OptPollTimeout(500*time.Millisecond),
		afpacket.SocketRaw,
		afpacket.TPacketVersion3,
	)
	if err != nil {
		err = xerrors.Errorf("failed to open af_packet on %s: %w", name, err)
		return nil, err
	}
	return &Tap{name: name, handle: handle}, nil
}

func (t *Tap) Name() string {
	return t.name
}

// ReadPacketData returns a copy of the next frame, so it may be kept after the next read.
func (t *Tap) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	return t.handle.ReadPacketData()
}

func (t *Tap) WritePacketData(data []byte) error {
	return t.handle.WritePacketData(data)
}

func (t *Tap) Close() error {
	t.handle.Close()
	return nil
}
