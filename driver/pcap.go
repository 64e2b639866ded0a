package driver

import (
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"golang.org/x/xerrors"

	"portmirror/infrastructure/log"
)

// PcapSource reads ethernet frames from a pcap file.
type PcapSource struct {
	file   *os.File
	reader *pcapgo.Reader
}

func OpenPcap(path string) (*PcapSource, error) {
	log.Logger.Debugf("trying to open pcap file: %s", path)
	f, err := os.Open(path)
	if err != nil {
		err = xerrors.Errorf("failed to open pcap file: %w", err)
		return nil, err
	}
	r, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		err = xerrors.Errorf("failed to read pcap header of %s: %w", path, err)
		return nil, err
	}
	if r.LinkType() != layers.LinkTypeEthernet {
		f.Close()
		err = xerrors.Errorf("pcap file %s has link type %s, only ethernet is supported", path, r.LinkType())
		return nil, err
	}
	return &PcapSource{file: f, reader: r}, nil
}

func (s *PcapSource) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	return s.reader.ReadPacketData()
}

func (s *PcapSource) Close() error {
	return s.file.Close()
}

// PcapSink writes frames to a pcap file. It is used to record what would have been mirrored.
type PcapSink struct {
	file   *os.File
	writer *pcapgo.Writer
}

func CreatePcap(path string, snaplen uint32) (*PcapSink, error) {
	f, err := os.Create(path)
	if err != nil {
		err = xerrors.Errorf("failed to create pcap file: %w", err)
		return nil, err
	}
	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(snaplen, layers.LinkTypeEthernet); err != nil {
		f.Close()
		err = xerrors.Errorf("failed to write pcap header: %w", err)
		return nil, err
	}
	return &PcapSink{file: f, writer: w}, nil
}

func (s *PcapSink) WritePacketData(data []byte) error {
	return s.writer.WritePacket(gopacket.CaptureInfo{
		Timestamp:     time.Now(),
		CaptureLength: len(data),
		Length:        len(data),
	}, data)
}

// WritePacket keeps the capture info of the original frame.
func (s *PcapSink) WritePacket(ci gopacket.CaptureInfo, data []byte) error {
	return s.writer.WritePacket(ci, data)
}

func (s *PcapSink) Close() error {
	return s.file.Close()
}
