package constant

const (
	// PolicyPath is the path of the policy.
	PolicyPath string = "policy.yml"

	// ProgName is the name of this program
	ProgName string = "portmirror"

	// PolicyTableCapacity is the maximum number of flow keys the policy table can hold.
	PolicyTableCapacity int = 1024

	// InterfaceTableCapacity is the maximum number of tap interfaces that can have a mirror.
	InterfaceTableCapacity int = 1024

	// IPv4Length is the byte length of a address of ipv4
	IPv4Length int = 4

	// IPv6Length is the byte length of a address of ipv6
	IPv6Length int = 16

	// EthernetHeaderLen is the length of an untagged ethernet header
	EthernetHeaderLen int = 14

	// IPv4HeaderLen is the length of an ipv4 header without options
	IPv4HeaderLen int = 20

	// IPv6HeaderLen is the length of the fixed ipv6 header
	IPv6HeaderLen int = 40

	// TCPHeaderLen is the length of a tcp header without options
	TCPHeaderLen int = 20

	// UDPHeaderLen is the length of a udp header
	UDPHeaderLen int = 8

	// EtherTypeIPv4 is the ethertype of ipv4
	EtherTypeIPv4 uint16 = 0x0800

	// EtherTypeIPv6 is the ethertype of ipv6
	EtherTypeIPv6 uint16 = 0x86DD

	// IPv4 indicates version 4
	IPv4 uint8 = 4

	// IPv6 indicates version 6
	IPv6 uint8 = 6

	// SnapLen is the capture length used for live capture, large enough for jumbo frames
	SnapLen int = 9216

	// MetricsPath is the http path of the prometheus endpoint
	MetricsPath string = "/metrics"
)
