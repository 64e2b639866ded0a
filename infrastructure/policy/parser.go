package policy

import (
	"io/ioutil"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"

	"portmirror/constant"
	"portmirror/domain/entity"
	"portmirror/infrastructure/log"
	"portmirror/pkg/convert"
)

type Parser interface {
	Load(path string) ([]byte, error)
	Parse(rawPolicyData []byte) (*entity.Policy, error)
}

type YamlPolicy struct {
	// KeyFields is a pointer so that a missing list can be told apart from an empty one.
	KeyFields *[]string `yaml:"key_fields"`
	Mirrors   []struct {
		Tap    string `yaml:"tap"`
		Mirror string `yaml:"mirror"`
	} `yaml:"mirrors"`
	Rules []struct {
		IPVersion uint8  `yaml:"ip_version"`
		Src       string `yaml:"src"`
		Dst       string `yaml:"dst"`
		Protocol  string `yaml:"protocol"`
		SrcPort   uint16 `yaml:"src_port"`
		DstPort   uint16 `yaml:"dst_port"`
		Action    string `yaml:"action"`
	} `yaml:"rules"`
}

// ToPolicy converts the yaml document. Without key_fields the mask is the union of the fields
// the rules specify.
func (y *YamlPolicy) ToPolicy() (policy *entity.Policy, err error) {
	policy = &entity.Policy{
		Mirrors: make([]*entity.Mirror, 0, len(y.Mirrors)),
		Rules:   make([]*entity.Rule, 0, len(y.Rules)),
	}
	for _, yamlMirror := range y.Mirrors {
		policy.Mirrors = append(policy.Mirrors, &entity.Mirror{
			Tap:    yamlMirror.Tap,
			Mirror: yamlMirror.Mirror,
		})
	}

	var derived entity.KeyFieldMask
	for i, yamlRule := range y.Rules {
		rule := &entity.Rule{
			SrcPort: yamlRule.SrcPort,
			DstPort: yamlRule.DstPort,
		}
		if rule.Action, err = entity.ParseDecision(yamlRule.Action); err != nil {
			err = xerrors.Errorf("rule %d: %w", i, err)
			return
		}
		if rule.Protocol, err = convert.StringToProto(yamlRule.Protocol); err != nil {
			err = xerrors.Errorf("rule %d: %w", i, err)
			return
		}

		var srcVersion, dstVersion uint8
		if rule.SrcIP, srcVersion, err = convert.ParseHost(yamlRule.Src); err != nil {
			err = xerrors.Errorf("rule %d src: %w", i, err)
			return
		}
		if rule.DstIP, dstVersion, err = convert.ParseHost(yamlRule.Dst); err != nil {
			err = xerrors.Errorf("rule %d dst: %w", i, err)
			return
		}
		if rule.IPVersion, err = ruleVersion(yamlRule.IPVersion, srcVersion, dstVersion); err != nil {
			err = xerrors.Errorf("rule %d: %w", i, err)
			return
		}

		derived |= rule.Fields()
		policy.Rules = append(policy.Rules, rule)
	}

	if y.KeyFields == nil {
		policy.KeyFields = derived
		return
	}
	if policy.KeyFields, err = entity.ParseKeyFields(*y.KeyFields); err != nil {
		err = xerrors.Errorf("key_fields: %w", err)
		return
	}
	return
}

// ruleVersion picks the ip version from the explicit value or the addresses, defaulting to 4.
func ruleVersion(explicit, src, dst uint8) (uint8, error) {
	if explicit != 0 && explicit != constant.IPv4 && explicit != constant.IPv6 {
		return 0, xerrors.Errorf("invalid ip_version: %d", explicit)
	}
	if src != 0 && dst != 0 && src != dst {
		return 0, xerrors.Errorf("src is ipv%d but dst is ipv%d", src, dst)
	}
	fromAddr := src
	if fromAddr == 0 {
		fromAddr = dst
	}
	switch {
	case explicit != 0 && fromAddr != 0 && explicit != fromAddr:
		return 0, xerrors.Errorf("ip_version %d does not match ipv%d address", explicit, fromAddr)
	case explicit != 0:
		return explicit, nil
	case fromAddr != 0:
		return fromAddr, nil
	default:
		return constant.IPv4, nil
	}
}

type YamlParser struct {
}

func NewYamlParser() (parser *YamlParser) {
	parser = &YamlParser{}
	return
}

func (p *YamlParser) Load(path string) (rawPolicyData []byte, err error) {
	log.Logger.Debugf("trying to load policy path: %s", path)
	rawPolicyData, err = ioutil.ReadFile(path)
	return
}

func (p *YamlParser) Parse(rawPolicyData []byte) (policy *entity.Policy, err error) {
	var yamlData YamlPolicy
	err = yaml.UnmarshalStrict(rawPolicyData, &yamlData)
	if err != nil {
		err = xerrors.Errorf("failed to unmarshal yaml policy: %w", err)
		return
	}
	policy, err = yamlData.ToPolicy()
	if err != nil {
		err = xerrors.Errorf("failed to yaml data to policy: %w", err)
		return
	}
	return
}
