package movement

import (
	"context"

	"go.uber.org/zap"

	"github.com/rpattn/movementcontrol/internal/audit"
	"github.com/rpattn/movementcontrol/internal/domain"
	"github.com/rpattn/movementcontrol/internal/permission"
	"github.com/rpattn/movementcontrol/internal/repository"
	"github.com/rpattn/movementcontrol/internal/snapshot"
)

// ListLists returns one page of the facility's lists, newest first.
func (s *Service) ListLists(ctx context.Context, slug string, filter domain.ListFilter, page domain.PageRequest) (domain.Page[domain.MovementList], error) {
	facility, err := s.store.Facilities().GetBySlug(ctx, slug)
	if err != nil {
		return domain.Page[domain.MovementList]{}, err
	}
	filter.FacilityID = facility.ID
	page = page.Normalize(s.pageSize)

	items, total, err := s.store.Lists().List(ctx, filter, page)
	if err != nil {
		return domain.Page[domain.MovementList]{}, err
	}
	return domain.NewPage(items, total, page), nil
}

// GetList returns a list of the facility. Soft-deleted lists are still returned.
func (s *Service) GetList(ctx context.Context, slug string, listID int64) (domain.MovementList, error) {
	_, list, err := resolveList(ctx, s.store, slug, listID, false)
	return list, err
}

// CreateList adds a list to the facility with the actor as creator.
func (s *Service) CreateList(ctx context.Context, actor *permission.Actor, slug string, in domain.ListInput) (domain.MovementList, error) {
	err := s.gate.RequireCreate(actor, domain.KindMovementList)
	if err := s.authorize(domain.KindMovementList, permission.OperationAdd, actor, err); err != nil {
		return domain.MovementList{}, err
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return domain.MovementList{}, err
	}
	listType, _ := domain.ParseListType(string(in.Type))

	var created domain.MovementList
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		facility, err := tx.Facilities().GetBySlug(ctx, slug)
		if err != nil {
			return err
		}
		now := s.timestamp()
		created, err = tx.Lists().Create(ctx, domain.MovementList{
			FacilityID:        facility.ID,
			Type:              listType,
			ScheduledDatetime: in.ScheduledDatetime.UTC(),
			CreatorID:         actor.ID(),
			CreatedAt:         now,
			LastModified:      now,
			State:             domain.StateActive,
			Place:             in.Place,
			Watch:             in.Watch,
		})
		return err
	})
	if err != nil {
		return domain.MovementList{}, err
	}
	s.applied(domain.KindMovementList, permission.OperationAdd, created.ID, actor)
	return created, nil
}

// EditList applies changes to a list and appends one history record with
// the watched fields before and after the edit.
func (s *Service) EditList(ctx context.Context, actor *permission.Actor, slug string, listID int64, in domain.ListChanges) (domain.MovementList, error) {
	if actor == nil {
		return domain.MovementList{}, s.authorize(domain.KindMovementList, permission.OperationChange, nil, domain.ErrUnauthenticated)
	}
	in = in.Normalize()

	var updated domain.MovementList
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		_, list, err := resolveList(ctx, tx, slug, listID, true)
		if err != nil {
			return err
		}
		err = s.gate.RequireMutate(actor, list, permission.OperationChange)
		if err := s.authorize(domain.KindMovementList, permission.OperationChange, actor, err); err != nil {
			return err
		}
		if err := in.Validate(); err != nil {
			return err
		}

		prev := snapshot.CaptureList(list)
		next, err := list.WithChanges(in, s.timestamp())
		if err != nil {
			return err
		}
		if updated, err = tx.Lists().Update(ctx, next); err != nil {
			return err
		}
		post := snapshot.CaptureList(updated)
		_, err = audit.RecordChange(ctx, tx.History(), domain.ListSubject(updated.ID), actor.ID(), prev, post, updated.LastModified)
		return err
	})
	if err != nil {
		return domain.MovementList{}, err
	}
	s.recorder.HistoryAppended(domain.KindMovementList)
	s.applied(domain.KindMovementList, permission.OperationChange, updated.ID, actor)
	return updated, nil
}

// DeleteList soft-deletes a list. No history record is written.
func (s *Service) DeleteList(ctx context.Context, actor *permission.Actor, slug string, listID int64) error {
	if actor == nil {
		return s.authorize(domain.KindMovementList, permission.OperationDelete, nil, domain.ErrUnauthenticated)
	}
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		_, list, err := resolveList(ctx, tx, slug, listID, true)
		if err != nil {
			return err
		}
		err = s.gate.RequireMutate(actor, list, permission.OperationDelete)
		if err := s.authorize(domain.KindMovementList, permission.OperationDelete, actor, err); err != nil {
			return err
		}
		if list.State, err = list.State.Delete(); err != nil {
			return err
		}
		list.LastModified = s.timestamp()
		_, err = tx.Lists().Update(ctx, list)
		return err
	})
	if err != nil {
		return err
	}
	s.applied(domain.KindMovementList, permission.OperationDelete, listID, actor)
	return nil
}

// ListHistory returns the decoded history of a list, newest first.
func (s *Service) ListHistory(ctx context.Context, slug string, listID int64) ([]audit.View, error) {
	if _, _, err := resolveList(ctx, s.store, slug, listID, false); err != nil {
		return nil, err
	}
	return s.history(ctx, domain.ListSubject(listID))
}

func (s *Service) history(ctx context.Context, subject domain.Subject) ([]audit.View, error) {
	seq := audit.ListHistory(ctx, s.store.History(), subject, audit.WithPageSize(s.historyPageSize))
	views, err := audit.Views(seq)
	if err != nil {
		return nil, err
	}
	for _, view := range views {
		if view.Err != nil {
			s.logger.Warn("undecodable history record",
				zap.String("subject", subject.String()),
				zap.Int64("record_id", view.Record.ID),
				zap.Error(view.Err),
			)
		}
	}
	return views, nil
}
