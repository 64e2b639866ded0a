package cmd

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"portmirror/config"
	"portmirror/domain/entity"
	"portmirror/driver"
	"portmirror/handler"
	"portmirror/infrastructure/log"
	"portmirror/infrastructure/metrics"
	"portmirror/infrastructure/policy"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	var metricsAddr string
	c := &cobra.Command{
		Use:   "run",
		Short: "Capture on the tap interfaces and mirror matching frames",
		Long: `Load the policy, open every tap and mirror interface with AF_PACKET and mirror until
SIGINT or SIGTERM.

Examples:
  portmirror run -c policy.yml
  portmirror run -c policy.yml --metrics :9100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := opts.resolver()
			if err != nil {
				return err
			}
			p, err := policy.LoadPolicy(opts.policyPath, resolver)
			if err != nil {
				return xerrors.Errorf("failed to load policy path: %s: %w", opts.policyPath, err)
			}
			log.Logger.Infof("success to load policy: %+v", p)

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sig)
			return Run(p, metricsAddr, sig)
		},
	}
	c.Flags().StringVar(&metricsAddr, "metrics", config.MetricsAddr(""), "serve prometheus metrics on this address")
	return c
}

// Run mirrors live traffic for policy until sig fires or a tap fails.
func Run(p *entity.Policy, metricsAddr string, sig chan os.Signal) error {
	m := metrics.New()
	engine, clean, err := Setup(p, m)
	if err != nil {
		return xerrors.Errorf(": %w", err)
	}
	defer clean()

	// One handle per ifindex, shared when an interface is both tap and mirror.
	handles := make(map[uint32]*driver.Tap)
	open := func(name string, ifindex uint32) (*driver.Tap, error) {
		if t, ok := handles[ifindex]; ok {
			return t, nil
		}
		t, err := driver.OpenTap(name)
		if err != nil {
			return nil, xerrors.Errorf(": %w", err)
		}
		handles[ifindex] = t
		return t, nil
	}
	defer func() {
		for idx, t := range handles {
			if err := t.Close(); err != nil {
				log.Logger.Errorf("failed to close %d: %+v", idx, err)
			}
		}
	}()

	sinks := make(map[uint32]handler.Sink)
	taps := make(map[uint32]*driver.Tap)
	for _, mi := range p.Mirrors {
		sink, err := open(mi.Mirror, mi.MirrorIndex)
		if err != nil {
			return err
		}
		sinks[mi.MirrorIndex] = sink
		tap, err := open(mi.Tap, mi.TapIndex)
		if err != nil {
			return err
		}
		taps[mi.TapIndex] = tap
	}
	if len(taps) == 0 {
		return xerrors.New("the policy has no tap to capture on")
	}

	h := handler.NewPacket(engine, sinks, m, func(err error) bool {
		return xerrors.Is(err, driver.ErrTimeout)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	errCh := make(chan error, len(taps)+1)

	if metricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Serve(ctx, metricsAddr); err != nil {
				errCh <- err
			}
		}()
	}

	for idx, tap := range taps {
		wg.Add(1)
		go func(idx uint32, tap *driver.Tap) {
			defer wg.Done()
			log.Logger.Infof("capturing on %s (%d)", tap.Name(), idx)
			stats, err := h.Serve(ctx, tap, idx)
			log.Logger.Infof("stopped capturing on %s: %+v", tap.Name(), stats)
			if err != nil {
				errCh <- err
			}
		}(idx, tap)
	}

	select {
	case <-sig:
		log.Logger.Infof("the signal received")
	case err = <-errCh:
		log.Logger.Errorf("stopping: %+v", err)
	}
	cancel()
	wg.Wait()
	return err
}
