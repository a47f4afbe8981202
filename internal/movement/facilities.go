package movement

import (
	"context"

	"github.com/rpattn/movementcontrol/internal/domain"
	"github.com/rpattn/movementcontrol/internal/permission"
	"github.com/rpattn/movementcontrol/internal/repository"
)

// ListFacilities returns every facility ordered by name.
func (s *Service) ListFacilities(ctx context.Context) ([]domain.Facility, error) {
	return s.store.Facilities().List(ctx)
}

// GetFacility looks a facility up by slug.
func (s *Service) GetFacility(ctx context.Context, slug string) (domain.Facility, error) {
	return s.store.Facilities().GetBySlug(ctx, slug)
}

// CreateFacility adds a facility. Requires add_facility.
func (s *Service) CreateFacility(ctx context.Context, actor *permission.Actor, in domain.FacilityInput) (domain.Facility, error) {
	err := s.gate.Require(actor, permission.AddFacility, domain.KindFacility)
	if err := s.authorize(domain.KindFacility, permission.OperationAdd, actor, err); err != nil {
		return domain.Facility{}, err
	}
	if err := in.Validate(); err != nil {
		return domain.Facility{}, err
	}

	var created domain.Facility
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		created, err = tx.Facilities().Create(ctx, in)
		return err
	})
	if err != nil {
		return domain.Facility{}, err
	}
	s.applied(domain.KindFacility, permission.OperationAdd, created.ID, actor)
	return created, nil
}

// DeleteFacility hard-deletes a facility with all of its lists, entries and
// their history. Requires delete_facility.
func (s *Service) DeleteFacility(ctx context.Context, actor *permission.Actor, slug string) error {
	err := s.gate.Require(actor, permission.DeleteFacility, domain.KindFacility)
	if err := s.authorize(domain.KindFacility, permission.OperationDelete, actor, err); err != nil {
		return err
	}

	var id int64
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		facility, err := tx.Facilities().GetBySlug(ctx, slug)
		if err != nil {
			return err
		}
		id = facility.ID
		return tx.Facilities().Delete(ctx, facility.ID)
	})
	if err != nil {
		return err
	}
	s.applied(domain.KindFacility, permission.OperationDelete, id, actor)
	return nil
}
