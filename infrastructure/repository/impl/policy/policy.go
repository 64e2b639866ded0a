package policy

import (
	"golang.org/x/xerrors"

	"portmirror/domain/entity"
	"portmirror/infrastructure/log"
	"portmirror/infrastructure/repository/interface/policy"
)

// Engine is the policy side of the mirror engine's control plane.
type Engine interface {
	PolicyPut(key entity.FlowKey, d entity.Decision) error
	PolicyDelete(key entity.FlowKey)
}

type Repository struct {
	Engine Engine
}

func NewPolicyRepository(e Engine) policy.Repository {
	return &Repository{
		Engine: e,
	}
}

// Save stores every rule. It stops at the first failure; rules stored before it stay.
func (r *Repository) Save(rules []*entity.Rule) error {
	for _, rule := range rules {
		key := rule.Key()
		log.Logger.Debugf("policy key: %s, val: %s", key, rule.Action)
		if err := r.Engine.PolicyPut(key, rule.Action); err != nil {
			err = xerrors.Errorf("failed to save rule %s: %w", rule, err)
			return err
		}
	}
	return nil
}

func (r *Repository) Delete(rules []*entity.Rule) error {
	for _, rule := range rules {
		key := rule.Key()
		log.Logger.Debugf("delete policy key: %s", key)
		r.Engine.PolicyDelete(key)
	}
	return nil
}
