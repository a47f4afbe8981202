package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/rpattn/movementcontrol/internal/db"
	"github.com/rpattn/movementcontrol/internal/domain"
)

const entryDetailSelect = `SELECT e.id, e.movement_list_id, e.employee_id, e.creator_id,
	e.creation_datetime, e.last_modified, e.state,
	emp.id, emp.first_name, emp.last_name, emp.patronymic, emp.position, emp.is_senior
	FROM movement_entries e
	JOIN employees emp ON emp.id = e.employee_id`

// movementEntryRepository implements MovementEntryRepository on Postgres
type movementEntryRepository struct {
	q db.DBTX
}

// NewMovementEntryRepository creates a new movement entry repository
func NewMovementEntryRepository(q db.DBTX) MovementEntryRepository {
	return &movementEntryRepository{q: q}
}

func scanEntryDetail(row pgx.Row) (domain.EntryDetail, error) {
	var (
		d     domain.EntryDetail
		state string
	)
	err := row.Scan(
		&d.ID, &d.ListID, &d.EmployeeID, &d.CreatorID,
		&d.CreatedAt, &d.LastModified, &state,
		&d.Employee.ID, &d.Employee.FirstName, &d.Employee.LastName, &d.Employee.Patronymic,
		&d.Employee.Position, &d.Employee.IsSenior,
	)
	if err != nil {
		return domain.EntryDetail{}, err
	}
	if d.State, err = domain.ParseState(state); err != nil {
		return domain.EntryDetail{}, err
	}
	d.CreatedAt = d.CreatedAt.UTC()
	d.LastModified = d.LastModified.UTC()
	return d, nil
}

func (r *movementEntryRepository) Create(ctx context.Context, e domain.MovementEntry) (domain.MovementEntry, error) {
	err := r.q.QueryRow(ctx, `
		INSERT INTO movement_entries (movement_list_id, employee_id, creator_id, creation_datetime, last_modified, state)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		e.ListID, e.EmployeeID, e.CreatorID, e.CreatedAt, e.LastModified, string(e.State),
	).Scan(&e.ID)
	if err != nil {
		return domain.MovementEntry{}, mapError(err, "movement entry", e.ListID)
	}
	return e, nil
}

func (r *movementEntryRepository) GetByID(ctx context.Context, id int64) (domain.EntryDetail, error) {
	d, err := scanEntryDetail(r.q.QueryRow(ctx, entryDetailSelect+` WHERE e.id = $1`, id))
	if err != nil {
		return domain.EntryDetail{}, mapError(err, "movement entry", id)
	}
	return d, nil
}

func (r *movementEntryRepository) GetForUpdate(ctx context.Context, id int64) (domain.EntryDetail, error) {
	d, err := scanEntryDetail(r.q.QueryRow(ctx, entryDetailSelect+` WHERE e.id = $1 FOR UPDATE OF e, emp`, id))
	if err != nil {
		return domain.EntryDetail{}, mapError(err, "movement entry", id)
	}
	return d, nil
}

func (r *movementEntryRepository) Update(ctx context.Context, e domain.MovementEntry) (domain.MovementEntry, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE movement_entries SET state = $2, last_modified = $3 WHERE id = $1`,
		e.ID, string(e.State), e.LastModified,
	)
	if err != nil {
		return domain.MovementEntry{}, mapError(err, "movement entry", e.ID)
	}
	if tag.RowsAffected() == 0 {
		return domain.MovementEntry{}, domain.NewNotFound("movement entry", e.ID)
	}
	return e, nil
}

func (r *movementEntryRepository) List(ctx context.Context, filter domain.EntryFilter, page domain.PageRequest) ([]domain.EntryDetail, int, error) {
	where, args := entryWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM movement_entries e JOIN employees emp ON emp.id = e.employee_id` + where
	if err := r.q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count movement entries: %w", err)
	}

	args = append(args, page.PageSize, page.Offset())
	query := fmt.Sprintf(`%s%s ORDER BY e.id DESC LIMIT $%d OFFSET $%d`, entryDetailSelect, where, len(args)-1, len(args))
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list movement entries: %w", err)
	}
	defer rows.Close()

	out, err := collectEntryDetails(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *movementEntryRepository) ListForExport(ctx context.Context, listID int64) ([]domain.EntryDetail, error) {
	rows, err := r.q.Query(ctx,
		entryDetailSelect+` WHERE e.movement_list_id = $1 AND e.state <> $2 ORDER BY e.id`,
		listID, string(domain.StateDeleted),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries for export: %w", err)
	}
	defer rows.Close()
	return collectEntryDetails(rows)
}

var suggestionColumns = map[domain.AutocompleteField]string{
	domain.AutocompleteFirstName:  "first_name",
	domain.AutocompleteLastName:   "last_name",
	domain.AutocompletePatronymic: "patronymic",
	domain.AutocompletePosition:   "position",
}

func (r *movementEntryRepository) Suggestions(ctx context.Context, field domain.AutocompleteField, prefix string, limit int) ([]string, error) {
	column, ok := suggestionColumns[field]
	if !ok {
		return nil, fmt.Errorf("unsupported autocomplete field %q", field)
	}
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`
		SELECT value FROM (
			SELECT emp.%[1]s AS value
			FROM movement_entries e JOIN employees emp ON emp.id = e.employee_id
			UNION
			SELECT u.%[1]s AS value
			FROM movement_entries e JOIN users u ON u.id = e.creator_id
		) suggestions
		WHERE value <> '' AND LOWER(value) LIKE $1
		ORDER BY value
		LIMIT $2`, column)

	rows, err := r.q.Query(ctx, query, strings.ToLower(escapeLike(prefix))+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load suggestions: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("failed to scan suggestion: %w", err)
		}
		out = append(out, value)
	}
	return out, rows.Err()
}

func collectEntryDetails(rows pgx.Rows) ([]domain.EntryDetail, error) {
	out := make([]domain.EntryDetail, 0)
	for rows.Next() {
		d, err := scanEntryDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movement entry: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// entryWhere renders the WHERE clause and positional args for filter.
func entryWhere(filter domain.EntryFilter) (string, []any) {
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 3)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, strings.ReplaceAll(clause, "$?", fmt.Sprintf("$%d", len(args))))
	}

	if filter.ListID != 0 {
		add("e.movement_list_id = $?", filter.ListID)
	}
	if !filter.IncludeDeleted {
		add("e.state <> $?", string(domain.StateDeleted))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		add(`(LOWER(TRIM(emp.last_name || ' ' || emp.first_name || ' ' || emp.patronymic)) LIKE $? OR LOWER(emp.position) LIKE $?)`,
			"%"+strings.ToLower(escapeLike(search))+"%")
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
