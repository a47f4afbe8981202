package repository

import (
	"context"

	"github.com/rpattn/movementcontrol/internal/db"
	"github.com/rpattn/movementcontrol/internal/domain"
)

// employeeRepository implements EmployeeRepository on Postgres
type employeeRepository struct {
	q db.DBTX
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(q db.DBTX) EmployeeRepository {
	return &employeeRepository{q: q}
}

func (r *employeeRepository) Create(ctx context.Context, e domain.Employee) (domain.Employee, error) {
	err := r.q.QueryRow(ctx, `
		INSERT INTO employees (first_name, last_name, patronymic, position, is_senior)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		e.FirstName, e.LastName, e.Patronymic, e.Position, e.IsSenior,
	).Scan(&e.ID)
	if err != nil {
		return domain.Employee{}, mapError(err, "employee", e.FullName())
	}
	return e, nil
}

func (r *employeeRepository) GetByID(ctx context.Context, id int64) (domain.Employee, error) {
	var e domain.Employee
	err := r.q.QueryRow(ctx, `
		SELECT id, first_name, last_name, patronymic, position, is_senior
		FROM employees WHERE id = $1`, id,
	).Scan(&e.ID, &e.FirstName, &e.LastName, &e.Patronymic, &e.Position, &e.IsSenior)
	if err != nil {
		return domain.Employee{}, mapError(err, "employee", id)
	}
	return e, nil
}

func (r *employeeRepository) Update(ctx context.Context, e domain.Employee) (domain.Employee, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE employees
		SET first_name = $2, last_name = $3, patronymic = $4, position = $5, is_senior = $6
		WHERE id = $1`,
		e.ID, e.FirstName, e.LastName, e.Patronymic, e.Position, e.IsSenior,
	)
	if err != nil {
		return domain.Employee{}, mapError(err, "employee", e.ID)
	}
	if tag.RowsAffected() == 0 {
		return domain.Employee{}, domain.NewNotFound("employee", e.ID)
	}
	return e, nil
}

// Delete is rejected by the RESTRICT foreign key while an entry references the employee.
func (r *employeeRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "employee", id)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFound("employee", id)
	}
	return nil
}
