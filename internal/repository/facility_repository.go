package repository

import (
	"context"
	"fmt"

	"github.com/rpattn/movementcontrol/internal/db"
	"github.com/rpattn/movementcontrol/internal/domain"
)

// facilityRepository implements FacilityRepository on Postgres
type facilityRepository struct {
	q db.DBTX
}

// NewFacilityRepository creates a new facility repository
func NewFacilityRepository(q db.DBTX) FacilityRepository {
	return &facilityRepository{q: q}
}

func (r *facilityRepository) Create(ctx context.Context, in domain.FacilityInput) (domain.Facility, error) {
	var f domain.Facility
	err := r.q.QueryRow(ctx,
		`INSERT INTO facilities (name, slug) VALUES ($1, $2) RETURNING id, name, slug`,
		in.Name, in.Slug,
	).Scan(&f.ID, &f.Name, &f.Slug)
	if err != nil {
		return domain.Facility{}, mapError(err, "facility", in.Slug)
	}
	return f, nil
}

func (r *facilityRepository) GetByID(ctx context.Context, id int64) (domain.Facility, error) {
	var f domain.Facility
	err := r.q.QueryRow(ctx, `SELECT id, name, slug FROM facilities WHERE id = $1`, id).
		Scan(&f.ID, &f.Name, &f.Slug)
	if err != nil {
		return domain.Facility{}, mapError(err, "facility", id)
	}
	return f, nil
}

func (r *facilityRepository) GetBySlug(ctx context.Context, slug string) (domain.Facility, error) {
	var f domain.Facility
	err := r.q.QueryRow(ctx, `SELECT id, name, slug FROM facilities WHERE slug = $1`, slug).
		Scan(&f.ID, &f.Name, &f.Slug)
	if err != nil {
		return domain.Facility{}, mapError(err, "facility", slug)
	}
	return f, nil
}

func (r *facilityRepository) List(ctx context.Context) ([]domain.Facility, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, slug FROM facilities ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list facilities: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Facility, 0)
	for rows.Next() {
		var f domain.Facility
		if err := rows.Scan(&f.ID, &f.Name, &f.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan facility: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Delete relies on ON DELETE CASCADE for lists, entries and history.
func (r *facilityRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM facilities WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "facility", id)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFound("facility", id)
	}
	return nil
}
