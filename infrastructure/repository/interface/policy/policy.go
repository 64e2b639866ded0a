package policy

import "portmirror/domain/entity"

type Repository interface {
	Save(rules []*entity.Rule) error
	Delete(rules []*entity.Rule) error
}
