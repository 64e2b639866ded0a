package main

import (
	"fmt"
	"net"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

var (
	srcMAC = net.HardwareAddr{0x02, 0, 0, 0, 0, 0x01}
	dstMAC = net.HardwareAddr{0x02, 0, 0, 0, 0, 0x02}
)

func main() {
	var out string
	c := &cobra.Command{
		Use:   "genpcap",
		Short: "Write a pcap file with sample frames for portmirror replay",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := generate(out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d frames to %s\n", n, out)
			return nil
		},
	}
	c.Flags().StringVarP(&out, "out", "o", "sample.pcap", "output file")
	if err := c.Execute(); err != nil {
		os.Exit(1)
	}
}

func generate(path string) (int, error) {
	frames, err := sampleFrames()
	if err != nil {
		return 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, xerrors.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		return 0, xerrors.Errorf(": %w", err)
	}
	for _, frame := range frames {
		ci := gopacket.CaptureInfo{CaptureLength: len(frame), Length: len(frame)}
		if err := w.WritePacket(ci, frame); err != nil {
			return 0, xerrors.Errorf(": %w", err)
		}
	}
	return len(frames), nil
}

func sampleFrames() ([][]byte, error) {
	v4src, v4dst := net.IPv4(10, 0, 0, 1), net.IPv4(10, 0, 0, 2)
	v6src, v6dst := net.ParseIP("fd00::1"), net.ParseIP("fd00::2")
	payload := gopacket.Payload("hello portmirror")

	var frames [][]byte
	add := func(ls ...gopacket.SerializableLayer) error {
		buf := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
		if err := gopacket.SerializeLayers(buf, opts, ls...); err != nil {
			return xerrors.Errorf("failed to serialize frame: %w", err)
		}
		frames = append(frames, buf.Bytes())
		return nil
	}

	eth4 := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4}
	eth6 := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv6}

	for _, dport := range []layers.TCPPort{80, 443} {
		ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolTCP, SrcIP: v4src, DstIP: v4dst}
		tcp := &layers.TCP{SrcPort: 40000, DstPort: dport, SYN: true, Window: 1024}
		if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
			return nil, xerrors.Errorf(": %w", err)
		}
		if err := add(eth4, ip, tcp, payload); err != nil {
			return nil, err
		}
	}

	ip4 := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolUDP, SrcIP: v4src, DstIP: v4dst}
	udp4 := &layers.UDP{SrcPort: 5353, DstPort: 53}
	if err := udp4.SetNetworkLayerForChecksum(ip4); err != nil {
		return nil, xerrors.Errorf(": %w", err)
	}
	if err := add(eth4, ip4, udp4, payload); err != nil {
		return nil, err
	}

	icmp := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolICMPv4, SrcIP: v4src, DstIP: v4dst}
	echo := &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0), Id: 1, Seq: 1}
	if err := add(eth4, icmp, echo, payload); err != nil {
		return nil, err
	}

	ip6 := &layers.IPv6{Version: 6, HopLimit: 64, NextHeader: layers.IPProtocolTCP, SrcIP: v6src, DstIP: v6dst}
	tcp6 := &layers.TCP{SrcPort: 40000, DstPort: 443, SYN: true, Window: 1024}
	if err := tcp6.SetNetworkLayerForChecksum(ip6); err != nil {
		return nil, xerrors.Errorf(": %w", err)
	}
	if err := add(eth6, ip6, tcp6, payload); err != nil {
		return nil, err
	}

	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   srcMAC,
		SourceProtAddress: v4src.To4(),
		DstHwAddress:      net.HardwareAddr{0, 0, 0, 0, 0, 0},
		DstProtAddress:    v4dst.To4(),
	}
	ethARP := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: layers.EthernetBroadcast, EthernetType: layers.EthernetTypeARP}
	if err := add(ethARP, arp); err != nil {
		return nil, err
	}

	// A frame cut in the middle of its TCP header.
	frames = append(frames, append([]byte(nil), frames[0][:14+20+10]...))
	return frames, nil
}
