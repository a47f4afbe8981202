package movement

import (
	"context"

	"github.com/rpattn/movementcontrol/internal/audit"
	"github.com/rpattn/movementcontrol/internal/domain"
	"github.com/rpattn/movementcontrol/internal/permission"
	"github.com/rpattn/movementcontrol/internal/repository"
	"github.com/rpattn/movementcontrol/internal/snapshot"
)

// ListEntries returns one page of the list's entries, newest first.
func (s *Service) ListEntries(ctx context.Context, slug string, listID int64, filter domain.EntryFilter, page domain.PageRequest) (domain.Page[domain.EntryDetail], error) {
	if _, _, err := resolveList(ctx, s.store, slug, listID, false); err != nil {
		return domain.Page[domain.EntryDetail]{}, err
	}
	filter.ListID = listID
	page = page.Normalize(s.pageSize)

	items, total, err := s.store.Entries().List(ctx, filter, page)
	if err != nil {
		return domain.Page[domain.EntryDetail]{}, err
	}
	return domain.NewPage(items, total, page), nil
}

// GetEntry returns an entry of the list together with its employee.
func (s *Service) GetEntry(ctx context.Context, slug string, listID, entryID int64) (domain.EntryDetail, error) {
	_, list, err := resolveList(ctx, s.store, slug, listID, false)
	if err != nil {
		return domain.EntryDetail{}, err
	}
	return resolveEntry(ctx, s.store, list, entryID, false)
}

// CreateEntry creates an employee and an entry placing them on the list.
func (s *Service) CreateEntry(ctx context.Context, actor *permission.Actor, slug string, listID int64, in domain.EntryInput) (domain.EntryDetail, error) {
	err := s.gate.RequireCreate(actor, domain.KindMovementEntry)
	if err := s.authorize(domain.KindMovementEntry, permission.OperationAdd, actor, err); err != nil {
		return domain.EntryDetail{}, err
	}
	senior := in.IsSenior != nil && *in.IsSenior
	if senior {
		err := s.gate.Require(actor, permission.SetIsSenior, domain.KindEmployee)
		if err := s.authorize(domain.KindMovementEntry, permission.OperationAdd, actor, err); err != nil {
			return domain.EntryDetail{}, err
		}
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return domain.EntryDetail{}, err
	}

	var created domain.EntryDetail
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		list, err := s.openList(ctx, tx, slug, listID)
		if err != nil {
			return err
		}
		created, err = s.placeEntry(ctx, tx, actor, list, in, senior)
		return err
	})
	if err != nil {
		return domain.EntryDetail{}, err
	}
	s.applied(domain.KindMovementEntry, permission.OperationAdd, created.ID, actor)
	return created, nil
}

// openList locks a list that is about to receive entries.
func (s *Service) openList(ctx context.Context, tx repository.Store, slug string, listID int64) (domain.MovementList, error) {
	_, list, err := resolveList(ctx, tx, slug, listID, true)
	if err != nil {
		return domain.MovementList{}, err
	}
	if list.Deleted() {
		return domain.MovementList{}, &domain.ConstraintViolationError{Entity: "movement entry", Reason: "the movement list is deleted"}
	}
	return list, nil
}

func (s *Service) placeEntry(ctx context.Context, tx repository.Store, actor *permission.Actor, list domain.MovementList, in domain.EntryInput, senior bool) (domain.EntryDetail, error) {
	employee, err := tx.Employees().Create(ctx, domain.Employee{PersonName: in.PersonName, IsSenior: senior})
	if err != nil {
		return domain.EntryDetail{}, err
	}
	now := s.timestamp()
	entry, err := tx.Entries().Create(ctx, domain.MovementEntry{
		ListID:       list.ID,
		EmployeeID:   employee.ID,
		CreatorID:    actor.ID(),
		CreatedAt:    now,
		LastModified: now,
		State:        domain.StateActive,
	})
	if err != nil {
		return domain.EntryDetail{}, err
	}
	return domain.EntryDetail{MovementEntry: entry, Employee: employee}, nil
}

// EditEntry rewrites the employee fields of an entry and appends one history
// record. Changing IsSenior additionally requires can_set_is_senior.
func (s *Service) EditEntry(ctx context.Context, actor *permission.Actor, slug string, listID, entryID int64, in domain.EntryInput) (domain.EntryDetail, error) {
	if actor == nil {
		return domain.EntryDetail{}, s.authorize(domain.KindMovementEntry, permission.OperationChange, nil, domain.ErrUnauthenticated)
	}
	in = in.Normalize()

	var updated domain.EntryDetail
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		_, list, err := resolveList(ctx, tx, slug, listID, true)
		if err != nil {
			return err
		}
		current, err := resolveEntry(ctx, tx, list, entryID, true)
		if err != nil {
			return err
		}
		err = s.gate.RequireMutate(actor, current.MovementEntry, permission.OperationChange)
		if err := s.authorize(domain.KindMovementEntry, permission.OperationChange, actor, err); err != nil {
			return err
		}
		employee := current.Employee.WithName(in.PersonName)
		if in.IsSenior != nil && *in.IsSenior != current.Employee.IsSenior {
			err := s.gate.Require(actor, permission.SetIsSenior, domain.KindEmployee)
			if err := s.authorize(domain.KindMovementEntry, permission.OperationChange, actor, err); err != nil {
				return err
			}
			employee.IsSenior = *in.IsSenior
		}
		if err := in.Validate(); err != nil {
			return err
		}
		if list.Deleted() {
			return &domain.ConstraintViolationError{Entity: "movement entry", Reason: "the movement list is deleted"}
		}

		prev := snapshot.CaptureEntry(current.Employee)
		if employee, err = tx.Employees().Update(ctx, employee); err != nil {
			return err
		}
		entry := current.MovementEntry
		if entry.State, err = entry.State.Edit(); err != nil {
			return err
		}
		entry.LastModified = s.timestamp()
		if entry, err = tx.Entries().Update(ctx, entry); err != nil {
			return err
		}
		post := snapshot.CaptureEntry(employee)
		if _, err = audit.RecordChange(ctx, tx.History(), domain.EntrySubject(entry.ID), actor.ID(), prev, post, entry.LastModified); err != nil {
			return err
		}
		updated = domain.EntryDetail{MovementEntry: entry, Employee: employee}
		return nil
	})
	if err != nil {
		return domain.EntryDetail{}, err
	}
	s.recorder.HistoryAppended(domain.KindMovementEntry)
	s.applied(domain.KindMovementEntry, permission.OperationChange, updated.ID, actor)
	return updated, nil
}

// DeleteEntry soft-deletes an entry. The employee stays in place.
func (s *Service) DeleteEntry(ctx context.Context, actor *permission.Actor, slug string, listID, entryID int64) error {
	if actor == nil {
		return s.authorize(domain.KindMovementEntry, permission.OperationDelete, nil, domain.ErrUnauthenticated)
	}
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		_, list, err := resolveList(ctx, tx, slug, listID, true)
		if err != nil {
			return err
		}
		current, err := resolveEntry(ctx, tx, list, entryID, true)
		if err != nil {
			return err
		}
		err = s.gate.RequireMutate(actor, current.MovementEntry, permission.OperationDelete)
		if err := s.authorize(domain.KindMovementEntry, permission.OperationDelete, actor, err); err != nil {
			return err
		}
		entry := current.MovementEntry
		if entry.State, err = entry.State.Delete(); err != nil {
			return err
		}
		entry.LastModified = s.timestamp()
		_, err = tx.Entries().Update(ctx, entry)
		return err
	})
	if err != nil {
		return err
	}
	s.applied(domain.KindMovementEntry, permission.OperationDelete, entryID, actor)
	return nil
}

// EntryHistory returns the decoded history of an entry, newest first.
func (s *Service) EntryHistory(ctx context.Context, slug string, listID, entryID int64) ([]audit.View, error) {
	if _, err := s.GetEntry(ctx, slug, listID, entryID); err != nil {
		return nil, err
	}
	return s.history(ctx, domain.EntrySubject(entryID))
}

// ListExport is everything a printable report of one list needs.
type ListExport struct {
	Facility domain.Facility
	List     domain.MovementList
	Entries  []domain.EntryDetail
}

// ExportList collects the live entries of a list in creation order.
func (s *Service) ExportList(ctx context.Context, slug string, listID int64) (ListExport, error) {
	facility, list, err := resolveList(ctx, s.store, slug, listID, false)
	if err != nil {
		return ListExport{}, err
	}
	entries, err := s.store.Entries().ListForExport(ctx, list.ID)
	if err != nil {
		return ListExport{}, err
	}
	return ListExport{Facility: facility, List: list, Entries: entries}, nil
}
