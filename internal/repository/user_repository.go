package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rpattn/movementcontrol/internal/db"
	"github.com/rpattn/movementcontrol/internal/domain"
)

const userColumns = `id, username, password_hash, first_name, last_name, patronymic, position,
	is_superuser, is_active, groups, created_at`

// userRepository implements UserRepository on Postgres
type userRepository struct {
	q db.DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(q db.DBTX) UserRepository {
	return &userRepository{q: q}
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash,
		&u.FirstName, &u.LastName, &u.Patronymic, &u.Position,
		&u.IsSuperuser, &u.IsActive, &u.Groups, &u.CreatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	if u.Groups == nil {
		u.Groups = []string{}
	}
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	groups := user.Groups
	if groups == nil {
		groups = []string{}
	}
	row := r.q.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, first_name, last_name, patronymic, position,
			is_superuser, is_active, groups)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+userColumns,
		user.Username, user.PasswordHash, user.FirstName, user.LastName, user.Patronymic, user.Position,
		user.IsSuperuser, user.IsActive, groups,
	)
	created, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapError(err, "user", user.Username)
	}
	return created, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (domain.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return domain.User{}, mapError(err, "user", id)
	}
	return u, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.User, error) {
	if len(ids) == 0 {
		return []domain.User{}, nil
	}
	rows, err := r.q.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get users by IDs: %w", err)
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(username) = LOWER($1)`, username))
	if err != nil {
		return domain.User{}, mapError(err, "user", username)
	}
	return u, nil
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.q.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (r *userRepository) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.q.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return mapError(err, "user", id)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFound("user", id)
	}
	return nil
}

func collectUsers(rows pgx.Rows) ([]domain.User, error) {
	out := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
