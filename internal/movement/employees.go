package movement

import (
	"context"
	"strings"

	"github.com/rpattn/movementcontrol/internal/domain"
	"github.com/rpattn/movementcontrol/internal/permission"
	"github.com/rpattn/movementcontrol/internal/repository"
)

// DeleteEmployee hard-deletes an employee. It fails with a
// ConstraintViolationError while any entry, deleted or not, refers to them.
func (s *Service) DeleteEmployee(ctx context.Context, actor *permission.Actor, employeeID int64) error {
	err := s.gate.Require(actor, permission.DeleteEmployee, domain.KindEmployee)
	if err := s.authorize(domain.KindEmployee, permission.OperationDelete, actor, err); err != nil {
		return err
	}
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Employees().GetByID(ctx, employeeID); err != nil {
			return err
		}
		return tx.Employees().Delete(ctx, employeeID)
	})
	if err != nil {
		return err
	}
	s.applied(domain.KindEmployee, permission.OperationDelete, employeeID, actor)
	return nil
}

// Autocomplete suggests values for one of the person name fields.
func (s *Service) Autocomplete(ctx context.Context, field, prefix string) ([]string, error) {
	f, ok := domain.ParseAutocompleteField(field)
	if !ok {
		verr := domain.NewValidationError()
		verr.Add("field", "must be one of first_name, last_name, patronymic, position")
		return nil, verr
	}
	return s.store.Entries().Suggestions(ctx, f, strings.TrimSpace(prefix), s.suggestionLimit)
}
