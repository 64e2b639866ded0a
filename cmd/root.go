// Package cmd implements the portmirror command line.
package cmd

import (
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"portmirror/config"
	"portmirror/constant"
	"portmirror/pkg/nic"
)

type rootOptions struct {
	policyPath string
	ifindexes  map[string]string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   constant.ProgName,
		Short: "Selective traffic mirroring",
		Long: `portmirror captures frames on tap interfaces and clones the ones matching the policy
to a mirror interface. The original frame always continues unchanged.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.policyPath, "config", "c", config.PolicyPath(constant.PolicyPath),
		"policy file path")
	root.PersistentFlags().StringToStringVar(&opts.ifindexes, "ifindex", nil,
		"resolve interface names without netlink, e.g. --ifindex eth0=2,eth1=3")

	root.AddCommand(newRunCommand(opts))
	root.AddCommand(newReplayCommand(opts))
	root.AddCommand(newValidateCommand(opts))
	return root
}

// Execute runs the command line with os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

// resolver uses the --ifindex table when one is given and netlink otherwise.
func (o *rootOptions) resolver() (nic.Resolver, error) {
	if len(o.ifindexes) == 0 {
		return nic.NewNetlinkResolver(), nil
	}
	static := make(nic.StaticResolver, len(o.ifindexes))
	for name, v := range o.ifindexes {
		idx, err := nic.StaticResolver{}.Index(v)
		if err != nil {
			return nil, xerrors.Errorf("invalid ifindex for %s: %w", name, err)
		}
		static[name] = idx
	}
	return static, nil
}
