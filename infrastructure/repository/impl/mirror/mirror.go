package mirror

import (
	"golang.org/x/xerrors"

	"portmirror/domain/entity"
	"portmirror/infrastructure/log"
	"portmirror/infrastructure/repository/interface/mirror"
)

// Engine is the interface side of the mirror engine's control plane.
type Engine interface {
	InterfacePut(tap, mirror uint32) error
	InterfaceDelete(tap uint32)
}

type Repository struct {
	Engine Engine
}

func NewMirrorRepository(e Engine) mirror.Repository {
	return &Repository{
		Engine: e,
	}
}

func (r *Repository) Save(mirrors []*entity.Mirror) error {
	for _, m := range mirrors {
		log.Logger.Debugf("mirror tap: %d, mirror: %d", m.TapIndex, m.MirrorIndex)
		if err := r.Engine.InterfacePut(m.TapIndex, m.MirrorIndex); err != nil {
			err = xerrors.Errorf("failed to save mirror %s: %w", m, err)
			return err
		}
	}
	return nil
}

func (r *Repository) Delete(mirrors []*entity.Mirror) error {
	for _, m := range mirrors {
		log.Logger.Debugf("delete mirror tap: %d", m.TapIndex)
		r.Engine.InterfaceDelete(m.TapIndex)
	}
	return nil
}
