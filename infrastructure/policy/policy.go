package policy

import (
	"golang.org/x/xerrors"

	"portmirror/domain/entity"
	"portmirror/pkg/nic"
	pkgPolicy "portmirror/pkg/policy"
)

// LoadPolicy loads policy from file, resolves its interfaces and returns it.
func LoadPolicy(path string, resolver nic.Resolver) (policy *entity.Policy, err error) {
	parser := NewYamlParser()
	var rawPolicyData []byte
	rawPolicyData, err = parser.Load(path)
	if err != nil {
		err = xerrors.Errorf(": %w", err)
		return
	}

	policy, err = parser.Parse(rawPolicyData)
	if err != nil {
		err = xerrors.Errorf(": %w", err)
		return
	}

	policy, err = pkgPolicy.ArrangePolicy(policy, resolver)
	if err != nil {
		err = xerrors.Errorf(": %w", err)
		return
	}
	return
}
