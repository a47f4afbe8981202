package movement

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/rpattn/movementcontrol/internal/domain"
	"github.com/rpattn/movementcontrol/internal/permission"
	"github.com/rpattn/movementcontrol/internal/repository"
)

// ImportEntries places every input on the list in a single transaction.
// Nothing is created unless every input is valid and permitted. Validation
// problems are reported under "entries[i].field" with i counted from zero.
func (s *Service) ImportEntries(ctx context.Context, actor *permission.Actor, slug string, listID int64, inputs []domain.EntryInput) ([]domain.EntryDetail, error) {
	err := s.gate.RequireCreate(actor, domain.KindMovementEntry)
	if err := s.authorize(domain.KindMovementEntry, permission.OperationAdd, actor, err); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		verr := domain.NewValidationError()
		verr.Add("entries", "at least one entry is required")
		return nil, verr
	}

	inputs = slices.Clone(inputs)
	verr := domain.NewValidationError()
	seniors := make([]bool, len(inputs))
	for i, in := range inputs {
		in = in.Normalize()
		inputs[i] = in
		seniors[i] = in.IsSenior != nil && *in.IsSenior
		var fieldErr *domain.ValidationError
		if err := in.Validate(); errors.As(err, &fieldErr) {
			for field, msg := range fieldErr.Fields {
				verr.Add(fmt.Sprintf("entries[%d].%s", i, field), msg)
			}
		}
	}
	for _, senior := range seniors {
		if senior {
			err := s.gate.Require(actor, permission.SetIsSenior, domain.KindEmployee)
			if err := s.authorize(domain.KindMovementEntry, permission.OperationAdd, actor, err); err != nil {
				return nil, err
			}
			break
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	created := make([]domain.EntryDetail, 0, len(inputs))
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		list, err := s.openList(ctx, tx, slug, listID)
		if err != nil {
			return err
		}
		for i, in := range inputs {
			entry, err := s.placeEntry(ctx, tx, actor, list, in, seniors[i])
			if err != nil {
				return err
			}
			created = append(created, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, entry := range created {
		s.applied(domain.KindMovementEntry, permission.OperationAdd, entry.ID, actor)
	}
	s.logger.Info("imported entries", zap.Int64("list_id", listID), zap.Int("count", len(created)))
	return created, nil
}
