package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/rpattn/movementcontrol/internal/db"
	"github.com/rpattn/movementcontrol/internal/domain"
)

const listColumns = `id, facility_id, list_type, scheduled_datetime, creator_id,
	creation_datetime, last_modified, state, place, watch`

// movementListRepository implements MovementListRepository on Postgres
type movementListRepository struct {
	q db.DBTX
}

// NewMovementListRepository creates a new movement list repository
func NewMovementListRepository(q db.DBTX) MovementListRepository {
	return &movementListRepository{q: q}
}

func scanList(row pgx.Row) (domain.MovementList, error) {
	var (
		l        domain.MovementList
		listType string
		state    string
	)
	err := row.Scan(
		&l.ID, &l.FacilityID, &listType, &l.ScheduledDatetime, &l.CreatorID,
		&l.CreatedAt, &l.LastModified, &state, &l.Place, &l.Watch,
	)
	if err != nil {
		return domain.MovementList{}, err
	}
	if l.Type, err = domain.ParseListType(listType); err != nil {
		return domain.MovementList{}, err
	}
	if l.State, err = domain.ParseState(state); err != nil {
		return domain.MovementList{}, err
	}
	l.ScheduledDatetime = l.ScheduledDatetime.UTC()
	l.CreatedAt = l.CreatedAt.UTC()
	l.LastModified = l.LastModified.UTC()
	return l, nil
}

func (r *movementListRepository) Create(ctx context.Context, l domain.MovementList) (domain.MovementList, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO movement_lists (facility_id, list_type, scheduled_datetime, creator_id,
			creation_datetime, last_modified, state, place, watch)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+listColumns,
		l.FacilityID, string(l.Type), l.ScheduledDatetime.UTC(), l.CreatorID,
		l.CreatedAt, l.LastModified, string(l.State), l.Place, l.Watch,
	)
	created, err := scanList(row)
	if err != nil {
		return domain.MovementList{}, mapError(err, "movement list", l.FacilityID)
	}
	return created, nil
}

func (r *movementListRepository) GetByID(ctx context.Context, id int64) (domain.MovementList, error) {
	l, err := scanList(r.q.QueryRow(ctx, `SELECT `+listColumns+` FROM movement_lists WHERE id = $1`, id))
	if err != nil {
		return domain.MovementList{}, mapError(err, "movement list", id)
	}
	return l, nil
}

func (r *movementListRepository) GetForUpdate(ctx context.Context, id int64) (domain.MovementList, error) {
	l, err := scanList(r.q.QueryRow(ctx, `SELECT `+listColumns+` FROM movement_lists WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return domain.MovementList{}, mapError(err, "movement list", id)
	}
	return l, nil
}

func (r *movementListRepository) Update(ctx context.Context, l domain.MovementList) (domain.MovementList, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE movement_lists
		SET scheduled_datetime = $2, place = $3, watch = $4, state = $5, last_modified = $6
		WHERE id = $1
		RETURNING `+listColumns,
		l.ID, l.ScheduledDatetime.UTC(), l.Place, l.Watch, string(l.State), l.LastModified,
	)
	updated, err := scanList(row)
	if err != nil {
		return domain.MovementList{}, mapError(err, "movement list", l.ID)
	}
	return updated, nil
}

func (r *movementListRepository) List(ctx context.Context, filter domain.ListFilter, page domain.PageRequest) ([]domain.MovementList, int, error) {
	where, args := listWhere(filter)

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM movement_lists`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count movement lists: %w", err)
	}

	args = append(args, page.PageSize, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM movement_lists%s ORDER BY id DESC LIMIT $%d OFFSET $%d`,
		listColumns, where, len(args)-1, len(args))
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list movement lists: %w", err)
	}
	defer rows.Close()

	out := make([]domain.MovementList, 0, page.PageSize)
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan movement list: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// listWhere renders the WHERE clause and positional args for filter.
func listWhere(filter domain.ListFilter) (string, []any) {
	clauses := make([]string, 0, 6)
	args := make([]any, 0, 6)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.FacilityID != 0 {
		add("facility_id = $%d", filter.FacilityID)
	}
	if !filter.IncludeDeleted {
		add("state <> $%d", string(domain.StateDeleted))
	}
	if filter.Type != nil {
		add("list_type = $%d", string(*filter.Type))
	}
	if filter.ScheduledFrom != nil {
		add("scheduled_datetime >= $%d", filter.ScheduledFrom.UTC())
	}
	if filter.ScheduledTo != nil {
		add("scheduled_datetime < $%d", filter.ScheduledTo.UTC())
	}
	if filter.CreatorID != nil {
		add("creator_id = $%d", *filter.CreatorID)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
