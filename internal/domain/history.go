package domain

import (
	"fmt"
	"time"
)

// EntityKind names a record type in permission codenames and history subjects.
type EntityKind string

const (
	KindFacility      EntityKind = "facility"
	KindEmployee      EntityKind = "employee"
	KindMovementList  EntityKind = "movementlist"
	KindMovementEntry EntityKind = "movemententry"
)

// Subject identifies the record a history entry documents.
type Subject struct {
	Kind EntityKind `json:"kind"`
	ID   int64      `json:"id"`
}

// ListSubject returns the history subject for a movement list.
func ListSubject(id int64) Subject {
	return Subject{Kind: KindMovementList, ID: id}
}

// EntrySubject returns the history subject for a movement entry.
func EntrySubject(id int64) Subject {
	return Subject{Kind: KindMovementEntry, ID: id}
}

// Validate rejects subjects that have no history table.
func (s Subject) Validate() error {
	switch s.Kind {
	case KindMovementList, KindMovementEntry:
	default:
		return fmt.Errorf("history is not kept for %q", s.Kind)
	}
	if s.ID <= 0 {
		return fmt.Errorf("history subject id must be positive, got %d", s.ID)
	}
	return nil
}

func (s Subject) String() string {
	return fmt.Sprintf("%s#%d", s.Kind, s.ID)
}

// HistoryRecord is one append-only change to a list or entry.
// Prev and Post hold encoded snapshots.
type HistoryRecord struct {
	ID         int64     `json:"id"`
	Subject    Subject   `json:"subject"`
	ModifiedBy *int64    `json:"modified_by"`
	ModifiedAt time.Time `json:"modified_datetime"`
	Prev       []byte    `json:"-"`
	Post       []byte    `json:"-"`
}
