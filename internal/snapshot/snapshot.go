// Package snapshot captures the watched fields of movement lists and entries
// and encodes them into the self-describing blobs stored in history tables.
package snapshot

import (
	"fmt"
	"time"

	"github.com/rpattn/movementcontrol/internal/domain"
)

// Kind tags the snapshot variant inside an encoded envelope.
type Kind string

const (
	KindList  Kind = "movement_list"
	KindEntry Kind = "movement_entry"
)

// Version is the envelope format written by Encode.
const Version = 1

// Snapshot is implemented by ListSnapshot and EntrySnapshot only.
type Snapshot interface {
	Kind() Kind
	Fields() []Field
	sealed()
}

// Field is one watched field rendered as text.
type Field struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// ListSnapshot holds the watched fields of a movement list.
// ScheduledDatetime is always in UTC; build snapshots with CaptureList.
type ListSnapshot struct {
	ScheduledDatetime time.Time
	Watch             string
	Place             string
}

// CaptureList copies the watched fields of a list. The datetime is stored in UTC.
func CaptureList(list domain.MovementList) ListSnapshot {
	return ListSnapshot{
		ScheduledDatetime: list.ScheduledDatetime.UTC(),
		Watch:             list.Watch,
		Place:             list.Place,
	}
}

func (ListSnapshot) Kind() Kind { return KindList }

func (s ListSnapshot) Fields() []Field {
	return []Field{
		{Name: "scheduled_datetime", Label: "Дата и время заезда/выезда", Value: formatTime(s.ScheduledDatetime)},
		{Name: "watch", Label: "Вахта", Value: s.Watch},
		{Name: "place", Label: "Место выезда/заезда", Value: s.Place},
	}
}

func (ListSnapshot) sealed() {}

// EntrySnapshot holds the watched employee fields of a movement entry.
type EntrySnapshot struct {
	FirstName  string
	LastName   string
	Patronymic string
	Position   string
}

// CaptureEntry copies the watched fields of the entry's employee.
func CaptureEntry(employee domain.Employee) EntrySnapshot {
	return EntrySnapshot{
		FirstName:  employee.FirstName,
		LastName:   employee.LastName,
		Patronymic: employee.Patronymic,
		Position:   employee.Position,
	}
}

func (EntrySnapshot) Kind() Kind { return KindEntry }

func (s EntrySnapshot) Fields() []Field {
	return []Field{
		{Name: "first_name", Label: "Имя", Value: s.FirstName},
		{Name: "last_name", Label: "Фамилия", Value: s.LastName},
		{Name: "patronymic", Label: "Отчество", Value: s.Patronymic},
		{Name: "position", Label: "Должность", Value: s.Position},
	}
}

func (EntrySnapshot) sealed() {}

// PersonName returns the captured name fields.
func (s EntrySnapshot) PersonName() domain.PersonName {
	return domain.PersonName{
		FirstName:  s.FirstName,
		LastName:   s.LastName,
		Patronymic: s.Patronymic,
		Position:   s.Position,
	}
}

// KindFor maps a history subject kind to the snapshot variant it stores.
func KindFor(kind domain.EntityKind) (Kind, error) {
	switch kind {
	case domain.KindMovementList:
		return KindList, nil
	case domain.KindMovementEntry:
		return KindEntry, nil
	default:
		return "", fmt.Errorf("no snapshot variant for %q", kind)
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
