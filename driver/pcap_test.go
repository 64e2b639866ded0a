package driver

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPcap_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.pcap")
	sink, err := CreatePcap(path, 9216)
	require.NoError(t, err)

	frames := [][]byte{{1, 2, 3}, {4, 5, 6, 7}}
	require.NoError(t, sink.WritePacketData(frames[0]))
	ts := time.Unix(1700000000, 0)
	require.NoError(t, sink.WritePacket(gopacket.CaptureInfo{Timestamp: ts, CaptureLength: 4, Length: 4}, frames[1]))
	require.NoError(t, sink.Close())

	src, err := OpenPcap(path)
	require.NoError(t, err)
	defer src.Close()

	data, _, err := src.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, frames[0], data)
	data, ci, err := src.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, frames[1], data)
	assert.True(t, ts.Equal(ci.Timestamp))
	_, _, err = src.ReadPacketData()
	assert.Equal(t, io.EOF, err)
}

func TestOpenPcap(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "raw.pcap")
	f, err := os.Create(raw)
	require.NoError(t, err)
	require.NoError(t, pcapgo.NewWriter(f).WriteFileHeader(65536, layers.LinkTypeRaw))
	require.NoError(t, f.Close())

	garbage := filepath.Join(dir, "garbage.pcap")
	require.NoError(t, os.WriteFile(garbage, []byte("not a pcap"), 0600))

	tests := []struct {
		name string
		path string
	}{
		{name: "Reject a missing file.", path: filepath.Join(dir, "missing.pcap")},
		{name: "Reject a file without a pcap header.", path: garbage},
		{name: "Reject a link type other than ethernet.", path: raw},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := OpenPcap(tt.path)
			assert.Error(t, err)
			assert.Nil(t, src)
		})
	}
}
