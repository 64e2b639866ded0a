package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"portmirror/infrastructure/policy"
	"portmirror/pkg/convert"
	"portmirror/pkg/nic"
)

func newValidateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a policy file without capturing",
		Long: `Load the policy file, resolve its interfaces and report what would be installed.

Examples:
  portmirror validate -c policy.yml
  portmirror validate -c policy.yml --ifindex tap0=3,mirror0=7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := opts.resolver()
			if err != nil {
				return err
			}
			return runValidate(opts.policyPath, resolver, cmd.OutOrStdout())
		},
	}
}

func runValidate(path string, resolver nic.Resolver, out io.Writer) error {
	p, err := policy.LoadPolicy(path, resolver)
	if err != nil {
		return xerrors.Errorf("invalid policy %s: %w", path, err)
	}
	fmt.Fprintf(out, "VALID: key fields %s, %d mirror(s), %d rule(s)\n", p.KeyFields, len(p.Mirrors), len(p.Rules))
	for _, m := range p.Mirrors {
		fmt.Fprintf(out, "  mirror %s\n", m)
	}
	for _, r := range p.Rules {
		if r.Protocol != 0 {
			fmt.Fprintf(out, "  rule %s (%s)\n", r, convert.ProtoToString(r.Protocol))
			continue
		}
		fmt.Fprintf(out, "  rule %s\n", r)
	}
	return nil
}
