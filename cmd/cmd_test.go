package cmd

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unsafe"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	zapobserver "go.uber.org/zap/zaptest/observer"

	"portmirror/domain/entity"
	"portmirror/driver"
	"portmirror/infrastructure/log"
	"portmirror/infrastructure/policy"
	"portmirror/pkg/nic"
)

const testPolicy = `
key_fields: [proto, dport]
mirrors:
 - tap: tap0
   mirror: mirror0
rules:
 - protocol: tcp
   dst_port: 443
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %s", path, err)
	}
	return path
}

func tcpFrame(t *testing.T, dport uint16) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 5},
		DstMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 6},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IPv4(10, 0, 0, 1),
		DstIP:    net.IPv4(10, 0, 0, 2),
	}
	tcp := &layers.TCP{SrcPort: 40000, DstPort: layers.TCPPort(dport), SYN: true, Window: 1024}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatal(err)
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, tcp); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writePcap(t *testing.T, frames ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))
	for _, frame := range frames {
		require.NoError(t, w.WritePacket(gopacket.CaptureInfo{CaptureLength: len(frame), Length: len(frame)}, frame))
	}
	return path
}

// execute runs the command line and returns its stdout and the logged messages.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	core, obs := zapobserver.New(zap.DebugLevel)
	log.Logger = log.NewZapLogger(zap.New(core))

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()

	all := obs.All()
	res := make([]byte, 0, len(all))
	for _, each := range all {
		res = append(res, each.Message...)
		res = append(res, '\n')
	}
	return out.String(), *(*string)(unsafe.Pointer(&res)), err
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		policy  string
		want    string
		wantErr bool
	}{
		{
			name:   "Report a valid policy.",
			policy: testPolicy,
			want:   "VALID: key fields proto|dport, 1 mirror(s), 1 rule(s)",
		},
		{
			name: "Reject a tap that mirrors to itself.",
			policy: `
mirrors:
 - tap: tap0
   mirror: tap0
`,
			wantErr: true,
		},
		{
			name:    "Reject an unknown field.",
			policy:  "unknown: 1\n",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "policy.yml", tt.policy)
			out, _, err := execute(t, "validate", "-c", path, "--ifindex", "tap0=3,mirror0=7")
			if (err != nil) != tt.wantErr {
				t.Errorf("validate error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				assert.Contains(t, out, tt.want)
			}
		})
	}
}

func TestReplay(t *testing.T) {
	policyPath := writeFile(t, "policy.yml", testPolicy)
	in := writePcap(t, tcpFrame(t, 443), tcpFrame(t, 80), tcpFrame(t, 443)[:20])
	outPath := filepath.Join(t.TempDir(), "out.pcap")

	out, logs, err := execute(t, "replay", "-c", policyPath, "--ifindex", "tap0=3,mirror0=7",
		"--pcap", in, "--out", outPath)
	require.NoError(t, err)
	assert.Equal(t, "frames=3 mirrored=1 passed=2 clone_errors=0\n", out)
	assert.Contains(t, logs, "frame passed without mirror")
	assert.Equal(t, 2, strings.Count(logs, "frame passed without mirror"))

	src, err := driver.OpenPcap(outPath)
	require.NoError(t, err)
	defer src.Close()
	data, _, err := src.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, tcpFrame(t, 443), data)
	_, _, err = src.ReadPacketData()
	assert.Error(t, err)
}

func TestReplay_IngressWithoutMirror(t *testing.T) {
	policyPath := writeFile(t, "policy.yml", testPolicy)
	in := writePcap(t, tcpFrame(t, 443))

	out, logs, err := execute(t, "replay", "-c", policyPath, "--ifindex", "tap0=3,mirror0=7",
		"--pcap", in, "--ingress", "9")
	require.NoError(t, err)
	assert.Equal(t, "frames=1 mirrored=0 passed=1 clone_errors=0\n", out)
	assert.Contains(t, logs, "no_mirror_target")
}

func TestReplay_Verbose(t *testing.T) {
	policyPath := writeFile(t, "policy.yml", testPolicy)
	in := writePcap(t, tcpFrame(t, 80), tcpFrame(t, 443))

	out, _, err := execute(t, "replay", "-c", policyPath, "--ifindex", "tap0=3,mirror0=7",
		"--pcap", in, "-v")
	require.NoError(t, err)
	assert.Equal(t, "1: Pass\n2: Mirror(7)\nframes=2 mirrored=1 passed=1 clone_errors=0\n", out)
}

func TestReplay_MissingPcap(t *testing.T) {
	policyPath := writeFile(t, "policy.yml", testPolicy)
	_, _, err := execute(t, "replay", "-c", policyPath, "--ifindex", "tap0=3,mirror0=7",
		"--pcap", filepath.Join(t.TempDir(), "missing.pcap"))
	assert.Error(t, err)
}

func TestLoadAndProcess_DerivedKeyFields(t *testing.T) {
	tests := []struct {
		name    string
		policy  string
		dport   uint16
		want    entity.Action
		wantErr bool
	}{
		{
			name: "Rules sharing their fields match.",
			policy: `
mirrors:
 - tap: tap0
   mirror: mirror0
rules:
 - protocol: tcp
   dst_port: 443
 - protocol: tcp
   dst_port: 8443
`,
			dport: 8443,
			want:  entity.MirrorTo(7),
		},
		{
			name: "A rule without the port falls back to any port.",
			policy: `
mirrors:
 - tap: tap0
   mirror: mirror0
rules:
 - protocol: tcp
   dst_port: 443
 - protocol: tcp
`,
			dport: 22,
			want:  entity.MirrorTo(7),
		},
		{
			name: "Rules naming different addresses are rejected.",
			policy: `
mirrors:
 - tap: tap0
   mirror: mirror0
rules:
 - src: 10.0.0.1
   protocol: udp
   dst_port: 53
 - dst: 10.0.0.9
   protocol: tcp
`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "policy.yml", tt.policy)
			p, err := policy.LoadPolicy(path, nic.StaticResolver{"tap0": 3, "mirror0": 7})
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadPolicy() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				_, _, err := execute(t, "validate", "-c", path, "--ifindex", "tap0=3,mirror0=7")
				assert.Error(t, err)
				return
			}
			engine, clean, err := Setup(p, nil)
			require.NoError(t, err)
			defer clean()
			assert.Equal(t, tt.want, engine.Process(tcpFrame(t, tt.dport), 3))
		})
	}
}

func TestSetup(t *testing.T) {
	p := &entity.Policy{
		KeyFields: entity.KeyFieldDPort,
		Mirrors:   []*entity.Mirror{{Tap: "tap0", TapIndex: 3, Mirror: "mirror0", MirrorIndex: 7}},
		Rules:     []*entity.Rule{{IPVersion: 4, DstPort: 443, Action: entity.DecisionMirror}},
	}
	engine, clean, err := Setup(p, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.KeyFieldDPort, engine.KeyMask())
	assert.Equal(t, 1, engine.Policies().Len())
	assert.Equal(t, 1, engine.Interfaces().Len())
	assert.Equal(t, entity.MirrorTo(7), engine.Process(tcpFrame(t, 443), 3))

	clean()
	assert.Equal(t, 0, engine.Policies().Len())
	assert.Equal(t, 0, engine.Interfaces().Len())
}
