package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rpattn/movementcontrol/internal/db"
	"github.com/rpattn/movementcontrol/internal/domain"
)

// historyRepository implements HistoryRepository on the two history tables
type historyRepository struct {
	q db.DBTX
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(q db.DBTX) HistoryRepository {
	return &historyRepository{q: q}
}

// historyTable returns the table and parent column that store history for kind.
func historyTable(kind domain.EntityKind) (table, parent string, err error) {
	switch kind {
	case domain.KindMovementList:
		return "movement_list_history", "movement_list_id", nil
	case domain.KindMovementEntry:
		return "movement_entry_history", "movement_entry_id", nil
	default:
		return "", "", fmt.Errorf("history is not kept for %q", kind)
	}
}

func (r *historyRepository) AppendHistory(ctx context.Context, record domain.HistoryRecord) (domain.HistoryRecord, error) {
	table, parent, err := historyTable(record.Subject.Kind)
	if err != nil {
		return domain.HistoryRecord{}, err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, modified_by, modified_datetime, prev_snapshot, post_snapshot)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`, table, parent)

	err = r.q.QueryRow(ctx, query,
		record.Subject.ID, record.ModifiedBy, record.ModifiedAt, record.Prev, record.Post,
	).Scan(&record.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return domain.HistoryRecord{}, domain.NewNotFound(string(record.Subject.Kind), record.Subject.ID)
		}
		return domain.HistoryRecord{}, fmt.Errorf("failed to append history: %w", err)
	}
	return record, nil
}

func (r *historyRepository) ListHistoryPage(ctx context.Context, subject domain.Subject, beforeID int64, limit int) ([]domain.HistoryRecord, error) {
	table, parent, err := historyTable(subject.Kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT id, modified_by, modified_datetime, prev_snapshot, post_snapshot
		FROM %s
		WHERE %s = $1 AND ($2::bigint = 0 OR id < $2::bigint)
		ORDER BY id DESC
		LIMIT $3`, table, parent)

	rows, err := r.q.Query(ctx, query, subject.ID, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	out := make([]domain.HistoryRecord, 0, limit)
	for rows.Next() {
		rec := domain.HistoryRecord{Subject: subject}
		if err := rows.Scan(&rec.ID, &rec.ModifiedBy, &rec.ModifiedAt, &rec.Prev, &rec.Post); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		rec.ModifiedAt = rec.ModifiedAt.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *historyRepository) Count(ctx context.Context, subject domain.Subject) (int, error) {
	table, parent, err := historyTable(subject.Kind)
	if err != nil {
		return 0, err
	}
	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`, table, parent)
	if err := r.q.QueryRow(ctx, query, subject.ID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return count, nil
}
