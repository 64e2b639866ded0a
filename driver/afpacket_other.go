//go:build !linux

package driver

import (
	"github.com/google/gopacket"
	"golang.org/x/xerrors"
)

// ErrTimeout is never returned on this platform.
var ErrTimeout = xerrors.New("timeout")

// Tap needs AF_PACKET, which only exists on linux.
type Tap struct{}

func OpenTap(name string) (*Tap, error) {
	return nil, xerrors.Errorf("failed to open %s: live capture is only supported on linux", name)
}

func (t *Tap) Name() string { return "" }

func (t *Tap) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	return nil, gopacket.CaptureInfo{}, xerrors.New("live capture is only supported on linux")
}

func (t *Tap) WritePacketData(data []byte) error {
	return xerrors.New("live capture is only supported on linux")
}

func (t *Tap) Close() error { return nil }
