package cmd

import (
	"golang.org/x/xerrors"

	"portmirror/domain/entity"
	"portmirror/infrastructure/log"
	"portmirror/infrastructure/metrics"
	mirrorRepo "portmirror/infrastructure/repository/impl/mirror"
	policyRepo "portmirror/infrastructure/repository/impl/policy"
	"portmirror/usecase/mirror"
)

// Setup creates an engine and stores policy in it. m may be nil. The returned function removes
// the stored entries again.
func Setup(policy *entity.Policy, m *metrics.Metrics) (*mirror.Engine, func(), error) {
	observers := mirror.Observers{log.NewDiagnosticLogger()}
	if m != nil {
		observers = append(observers, m)
	}
	engine := mirror.NewEngine(observers)
	engine.SetKeyMask(policy.KeyFields)

	policyRepository := policyRepo.NewPolicyRepository(engine)
	mirrorRepository := mirrorRepo.NewMirrorRepository(engine)

	if err := policyRepository.Save(policy.Rules); err != nil {
		return nil, nil, xerrors.Errorf("failed to store policies: %w", err)
	}
	if err := mirrorRepository.Save(policy.Mirrors); err != nil {
		return nil, nil, xerrors.Errorf("failed to store mirrors: %w", err)
	}
	log.Logger.Infof("key fields: %s, %d rule(s), %d mirror(s)", policy.KeyFields, engine.Policies().Len(), engine.Interfaces().Len())

	if m != nil {
		m.SetKeyMask(policy.KeyFields)
		m.SetTableEntries(engine.Policies(), engine.Interfaces())
	}

	clean := func() {
		if err := policyRepository.Delete(policy.Rules); err != nil {
			log.Logger.Errorf("failed to delete policies: %+v", err)
		}
		if err := mirrorRepository.Delete(policy.Mirrors); err != nil {
			log.Logger.Errorf("failed to delete mirrors: %+v", err)
		}
	}
	return engine, clean, nil
}
