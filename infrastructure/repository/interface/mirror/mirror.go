package mirror

import "portmirror/domain/entity"

type Repository interface {
	Save(mirrors []*entity.Mirror) error
	Delete(mirrors []*entity.Mirror) error
}
