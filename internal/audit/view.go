package audit

import (
	"iter"

	"github.com/rpattn/movementcontrol/internal/domain"
	"github.com/rpattn/movementcontrol/internal/snapshot"
)

// View is a history record with its snapshots decoded for display. When
// either snapshot cannot be decoded Err is set and the other fields beyond
// Record are left empty.
type View struct {
	Record  domain.HistoryRecord
	Prev    snapshot.Snapshot
	Post    snapshot.Snapshot
	Changes []snapshot.FieldChange
	Err     error
}

// Decode turns one record into a View.
func Decode(record domain.HistoryRecord) View {
	view := View{Record: record}
	prev, err := snapshot.Decode(record.Prev)
	if err != nil {
		view.Err = err
		return view
	}
	post, err := snapshot.Decode(record.Post)
	if err != nil {
		view.Err = err
		return view
	}
	view.Prev = prev
	view.Post = post
	view.Changes = snapshot.Diff(prev, post)
	return view
}

// Views drains a history sequence into decoded views. A record that fails to
// decode is kept with its Err set; a read error aborts and is returned.
func Views(seq iter.Seq2[domain.HistoryRecord, error]) ([]View, error) {
	views := make([]View, 0)
	for record, err := range seq {
		if err != nil {
			return nil, err
		}
		views = append(views, Decode(record))
	}
	return views, nil
}
