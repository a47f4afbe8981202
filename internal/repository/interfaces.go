package repository

import (
	"context"

	"github.com/rpattn/movementcontrol/internal/audit"
	"github.com/rpattn/movementcontrol/internal/domain"
)

// FacilityRepository defines the interface for facility operations
type FacilityRepository interface {
	Create(ctx context.Context, in domain.FacilityInput) (domain.Facility, error)
	GetByID(ctx context.Context, id int64) (domain.Facility, error)
	GetBySlug(ctx context.Context, slug string) (domain.Facility, error)
	List(ctx context.Context) ([]domain.Facility, error)
	// Delete removes the facility together with its lists, entries and their history.
	Delete(ctx context.Context, id int64) error
}

// UserRepository defines the interface for user account operations
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	GetByID(ctx context.Context, id int64) (domain.User, error)
	GetByIDs(ctx context.Context, ids []int64) ([]domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	SetPassword(ctx context.Context, id int64, passwordHash string) error
}

// EmployeeRepository defines the interface for employee operations
type EmployeeRepository interface {
	Create(ctx context.Context, employee domain.Employee) (domain.Employee, error)
	GetByID(ctx context.Context, id int64) (domain.Employee, error)
	Update(ctx context.Context, employee domain.Employee) (domain.Employee, error)
	// Delete fails with a ConstraintViolationError while any entry references the employee.
	Delete(ctx context.Context, id int64) error
}

// MovementListRepository defines the interface for movement list operations
type MovementListRepository interface {
	Create(ctx context.Context, list domain.MovementList) (domain.MovementList, error)
	GetByID(ctx context.Context, id int64) (domain.MovementList, error)
	// GetForUpdate loads the list and holds a row lock until the transaction ends.
	GetForUpdate(ctx context.Context, id int64) (domain.MovementList, error)
	Update(ctx context.Context, list domain.MovementList) (domain.MovementList, error)
	List(ctx context.Context, filter domain.ListFilter, page domain.PageRequest) ([]domain.MovementList, int, error)
}

// MovementEntryRepository defines the interface for movement entry operations
type MovementEntryRepository interface {
	Create(ctx context.Context, entry domain.MovementEntry) (domain.MovementEntry, error)
	GetByID(ctx context.Context, id int64) (domain.EntryDetail, error)
	// GetForUpdate loads the entry and its employee and holds row locks until the transaction ends.
	GetForUpdate(ctx context.Context, id int64) (domain.EntryDetail, error)
	Update(ctx context.Context, entry domain.MovementEntry) (domain.MovementEntry, error)
	List(ctx context.Context, filter domain.EntryFilter, page domain.PageRequest) ([]domain.EntryDetail, int, error)
	// ListForExport returns the live entries of a list in creation order.
	ListForExport(ctx context.Context, listID int64) ([]domain.EntryDetail, error)
	// Suggestions returns distinct non-empty values of field across entry
	// employees and entry creators that start with prefix.
	Suggestions(ctx context.Context, field domain.AutocompleteField, prefix string, limit int) ([]string, error)
}

// HistoryRepository stores list and entry history records
type HistoryRepository interface {
	audit.HistoryWriter
	audit.HistoryReader
	Count(ctx context.Context, subject domain.Subject) (int, error)
}

// Store groups the repositories of one unit of work.
type Store interface {
	Facilities() FacilityRepository
	Users() UserRepository
	Employees() EmployeeRepository
	Lists() MovementListRepository
	Entries() MovementEntryRepository
	History() HistoryRepository
	// WithinTx runs fn against a transactional store. Nothing fn wrote is
	// visible to others if it returns an error.
	WithinTx(ctx context.Context, fn func(Store) error) error
	Ping(ctx context.Context) error
}
