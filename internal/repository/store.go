package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/rpattn/movementcontrol/internal/db"
)

// PostgresStore is the pgx-backed Store.
type PostgresStore struct {
	conn *db.Connection
	q    db.DBTX
	inTx bool
}

// NewPostgresStore creates a store that runs statements on the connection pool.
func NewPostgresStore(conn *db.Connection) *PostgresStore {
	return &PostgresStore{conn: conn, q: conn.Pool}
}

func (s *PostgresStore) Facilities() FacilityRepository   { return NewFacilityRepository(s.q) }
func (s *PostgresStore) Users() UserRepository            { return NewUserRepository(s.q) }
func (s *PostgresStore) Employees() EmployeeRepository    { return NewEmployeeRepository(s.q) }
func (s *PostgresStore) Lists() MovementListRepository    { return NewMovementListRepository(s.q) }
func (s *PostgresStore) Entries() MovementEntryRepository { return NewMovementEntryRepository(s.q) }
func (s *PostgresStore) History() HistoryRepository       { return NewHistoryRepository(s.q) }
func (s *PostgresStore) Ping(ctx context.Context) error   { return s.conn.Pool.Ping(ctx) }

// WithinTx starts a transaction, or joins the current one when already inside it.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.conn.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(&PostgresStore{conn: s.conn, q: tx, inTx: true})
	})
}

var _ Store = (*PostgresStore)(nil)
