// Package audit appends and reads the per-record change history of movement
// lists and entries.
package audit

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/rpattn/movementcontrol/internal/domain"
	"github.com/rpattn/movementcontrol/internal/snapshot"
)

// DefaultPageSize is the number of records fetched per round trip by ListHistory.
const DefaultPageSize = 50

// HistoryWriter appends history records. Implementations assign ID.
type HistoryWriter interface {
	AppendHistory(ctx context.Context, record domain.HistoryRecord) (domain.HistoryRecord, error)
}

// HistoryReader returns history records of a subject, newest first, with ids
// strictly below beforeID (0 means no bound).
type HistoryReader interface {
	ListHistoryPage(ctx context.Context, subject domain.Subject, beforeID int64, limit int) ([]domain.HistoryRecord, error)
}

// RecordChange encodes both snapshots and appends one history record for subject.
func RecordChange(
	ctx context.Context,
	w HistoryWriter,
	subject domain.Subject,
	actor *int64,
	prev, post snapshot.Snapshot,
	at time.Time,
) (domain.HistoryRecord, error) {
	if err := subject.Validate(); err != nil {
		return domain.HistoryRecord{}, err
	}
	want, err := snapshot.KindFor(subject.Kind)
	if err != nil {
		return domain.HistoryRecord{}, err
	}
	if prev == nil || post == nil {
		return domain.HistoryRecord{}, fmt.Errorf("record change for %s: both snapshots are required", subject)
	}
	if prev.Kind() != want || post.Kind() != want {
		return domain.HistoryRecord{}, fmt.Errorf(
			"record change for %s: snapshot kinds %s/%s do not match %s",
			subject, prev.Kind(), post.Kind(), want,
		)
	}

	prevData, err := snapshot.Encode(prev)
	if err != nil {
		return domain.HistoryRecord{}, err
	}
	postData, err := snapshot.Encode(post)
	if err != nil {
		return domain.HistoryRecord{}, err
	}

	var modifiedBy *int64
	if actor != nil {
		id := *actor
		modifiedBy = &id
	}

	record, err := w.AppendHistory(ctx, domain.HistoryRecord{
		Subject:    subject,
		ModifiedBy: modifiedBy,
		ModifiedAt: at.UTC(),
		Prev:       prevData,
		Post:       postData,
	})
	if err != nil {
		return domain.HistoryRecord{}, fmt.Errorf("append history for %s: %w", subject, err)
	}
	return record, nil
}

type listOptions struct {
	pageSize int
}

// ListOption tunes ListHistory.
type ListOption func(*listOptions)

// WithPageSize sets how many records are fetched per page.
func WithPageSize(n int) ListOption {
	return func(o *listOptions) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// ListHistory yields the history of subject newest first. Pages are fetched
// lazily as the caller ranges, and every range starts a fresh scan. A read
// error is yielded once and ends the sequence.
func ListHistory(ctx context.Context, r HistoryReader, subject domain.Subject, opts ...ListOption) iter.Seq2[domain.HistoryRecord, error] {
	options := listOptions{pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(&options)
	}

	return func(yield func(domain.HistoryRecord, error) bool) {
		var before int64
		for {
			page, err := r.ListHistoryPage(ctx, subject, before, options.pageSize)
			if err != nil {
				yield(domain.HistoryRecord{}, fmt.Errorf("list history for %s: %w", subject, err))
				return
			}
			for _, record := range page {
				if !yield(record, nil) {
					return
				}
				before = record.ID
			}
			if len(page) < options.pageSize {
				return
			}
		}
	}
}
