package policy

import (
	"golang.org/x/xerrors"

	"portmirror/domain/entity"
	"portmirror/infrastructure/log"
	"portmirror/pkg/nic"
)

const portFields = entity.KeyFieldSPort | entity.KeyFieldDPort

// ArrangePolicy resolves the tap and mirror interface names to ifindexes and checks that the
// rules can match under the key mask.
func ArrangePolicy(policy *entity.Policy, resolver nic.Resolver) (resPolicy *entity.Policy, err error) {
	for _, m := range policy.Mirrors {
		if m.Tap == "" || m.Mirror == "" {
			err = xerrors.Errorf("failed to arrange mirror %s (you need to specify both tap and mirror.)", m)
			return
		}
		if m.TapIndex, err = resolver.Index(m.Tap); err != nil {
			err = xerrors.Errorf("failed to resolve tap: %w", err)
			return
		}
		if m.MirrorIndex, err = resolver.Index(m.Mirror); err != nil {
			err = xerrors.Errorf("failed to resolve mirror: %w", err)
			return
		}
		if m.TapIndex == m.MirrorIndex {
			err = xerrors.Errorf("tap %s is its own mirror", m.Tap)
			return
		}
	}

	// A tap has exactly one mirror; repeating the same pair is harmless.
	targets := make(map[uint32]*entity.Mirror, len(policy.Mirrors))
	for _, m := range policy.Mirrors {
		if prev, ok := targets[m.TapIndex]; ok && prev.MirrorIndex != m.MirrorIndex {
			err = xerrors.Errorf("tap %s is mirrored to both %s and %s", m.Tap, prev.Mirror, m.Mirror)
			return
		}
		targets[m.TapIndex] = m
	}

	taps := make(map[uint32]struct{}, len(policy.Mirrors))
	for _, idx := range policy.TapIndexes() {
		taps[idx] = struct{}{}
	}
	for _, m := range policy.Mirrors {
		if _, ok := taps[m.MirrorIndex]; ok {
			log.Logger.Warnf("mirror %s is also a tap, cloned frames will be mirrored again", m.Mirror)
		}
	}

	if policy.KeyFields != entity.NoFilter {
		for _, rule := range policy.Rules {
			if extra := rule.Fields() &^ policy.KeyFields; extra != entity.NoFilter {
				err = xerrors.Errorf("rule %s uses %s which is not in key fields %s", rule, extra, policy.KeyFields)
				return
			}
			// Only ports fall back to zero on lookup. A rule leaving any other key field unset
			// can never match a frame.
			if missing := policy.KeyFields &^ rule.Fields() &^ portFields; missing != entity.NoFilter {
				err = xerrors.Errorf("rule %s does not set %s which is in key fields %s", rule, missing, policy.KeyFields)
				return
			}
		}
	} else if len(policy.Rules) > 0 {
		log.Logger.Warnf("key fields are empty, every frame is mirrored and %d rules are ignored", len(policy.Rules))
	}

	resPolicy = policy
	return
}
