package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"portmirror/constant"
	"portmirror/domain/entity"
	"portmirror/driver"
	"portmirror/handler"
	"portmirror/infrastructure/log"
	"portmirror/infrastructure/policy"
	"portmirror/pkg/nic"
)

type replayOptions struct {
	pcapPath string
	outPath  string
	ingress  string
	verbose  bool
}

// printer writes every decision of the wrapped processor.
type printer struct {
	handler.Processor
	out io.Writer
	n   int
}

func (p *printer) Process(frame []byte, ingress uint32) entity.Action {
	a := p.Processor.Process(frame, ingress)
	p.n++
	fmt.Fprintf(p.out, "%d: %s\n", p.n, a)
	return a
}

// discard accepts clones when replay has no output file.
type discard struct{}

func (discard) WritePacketData([]byte) error { return nil }

func newReplayCommand(opts *rootOptions) *cobra.Command {
	ro := &replayOptions{}
	c := &cobra.Command{
		Use:   "replay",
		Short: "Run the frames of a pcap file through the policy",
		Long: `Run every frame of a pcap file through the mirror decision as if it had been received
on the ingress interface, and print how many frames would be mirrored.

Examples:
  portmirror replay -c policy.yml --pcap capture.pcap --ingress tap0
  portmirror replay -c policy.yml --pcap capture.pcap --ingress 3 --out mirrored.pcap`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := opts.resolver()
			if err != nil {
				return err
			}
			return runReplay(opts.policyPath, ro, resolver, cmd.OutOrStdout())
		},
	}
	c.Flags().StringVar(&ro.pcapPath, "pcap", "", "pcap file to replay (required)")
	c.Flags().StringVar(&ro.outPath, "out", "", "write the mirrored frames to this pcap file")
	c.Flags().BoolVarP(&ro.verbose, "verbose", "v", false, "print the decision of every frame")
	c.Flags().StringVar(&ro.ingress, "ingress", "", "ingress interface name or ifindex (default: the first tap)")
	_ = c.MarkFlagRequired("pcap")
	return c
}

func runReplay(path string, ro *replayOptions, resolver nic.Resolver, out io.Writer) error {
	p, err := policy.LoadPolicy(path, resolver)
	if err != nil {
		return xerrors.Errorf("failed to load policy %s: %w", path, err)
	}

	var ingress uint32
	switch {
	case ro.ingress != "":
		if ingress, err = resolver.Index(ro.ingress); err != nil {
			return xerrors.Errorf(": %w", err)
		}
	case len(p.Mirrors) > 0:
		ingress = p.Mirrors[0].TapIndex
	default:
		return xerrors.New("no ingress given and the policy has no tap")
	}

	engine, clean, err := Setup(p, nil)
	if err != nil {
		return xerrors.Errorf(": %w", err)
	}
	defer clean()

	src, err := driver.OpenPcap(ro.pcapPath)
	if err != nil {
		return xerrors.Errorf(": %w", err)
	}
	defer src.Close()

	var sink handler.Sink = discard{}
	if ro.outPath != "" {
		pcapSink, err := driver.CreatePcap(ro.outPath, uint32(constant.SnapLen))
		if err != nil {
			return xerrors.Errorf(": %w", err)
		}
		defer func() {
			if err := pcapSink.Close(); err != nil {
				log.Logger.Errorf("failed to close %s: %+v", ro.outPath, err)
			}
		}()
		sink = pcapSink
	}
	sinks := make(map[uint32]handler.Sink, len(p.Mirrors))
	for _, m := range p.Mirrors {
		sinks[m.MirrorIndex] = sink
	}

	var processor handler.Processor = engine
	if ro.verbose {
		processor = &printer{Processor: engine, out: out}
	}
	stats, err := handler.NewPacket(processor, sinks, nil, nil).Serve(context.Background(), src, ingress)
	if err != nil {
		return xerrors.Errorf(": %w", err)
	}
	fmt.Fprintf(out, "frames=%d mirrored=%d passed=%d clone_errors=%d\n",
		stats.Frames, stats.Mirrored, stats.Passed, stats.CloneErrors)
	return nil
}
