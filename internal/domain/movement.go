package domain

import (
	"fmt"
	"strings"
	"time"
)

// ListType says whether a list schedules arrivals or departures.
type ListType string

const (
	ListTypeArriving ListType = "ARRIVING"
	ListTypeLeaving  ListType = "LEAVING"
)

// ParseListType accepts the canonical names as well as the short stored codes.
func ParseListType(value string) (ListType, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "ARRIVING", "ARR":
		return ListTypeArriving, nil
	case "LEAVING", "LVN":
		return ListTypeLeaving, nil
	default:
		return "", fmt.Errorf("unknown list type %q", value)
	}
}

// Humanize returns the lower-case Russian noun for the list type.
func (t ListType) Humanize() string {
	if t == ListTypeLeaving {
		return "выезд"
	}
	return "заезд"
}

// MovementList is a scheduled batch of arrivals or departures at a facility.
type MovementList struct {
	ID                int64     `json:"id"`
	FacilityID        int64     `json:"facility_id"`
	Type              ListType  `json:"list_type"`
	ScheduledDatetime time.Time `json:"scheduled_datetime"`
	CreatorID         *int64    `json:"creator_id"`
	CreatedAt         time.Time `json:"creation_datetime"`
	LastModified      time.Time `json:"last_modified"`
	State             State     `json:"state"`
	Place             string    `json:"place"`
	Watch             string    `json:"watch"`
}

// Title renders a list heading such as "Заезд на 10.01.2024 08:00" in the given zone.
func (l MovementList) Title(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	kind := l.Type.Humanize()
	return fmt.Sprintf("%s на %s",
		capitalize(kind),
		l.ScheduledDatetime.In(loc).Format("02.01.2006 15:04"),
	)
}

func capitalize(value string) string {
	runes := []rune(value)
	if len(runes) == 0 {
		return value
	}
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}

// Kind identifies the permission namespace for lists.
func (l MovementList) Kind() EntityKind { return KindMovementList }

// Creator returns the id of the user who created the list, if known.
func (l MovementList) Creator() *int64 { return l.CreatorID }

// Deleted reports whether the list was soft-deleted.
func (l MovementList) Deleted() bool { return l.State.IsDeleted() }

// WithChanges returns a copy carrying the editable fields of in.
func (l MovementList) WithChanges(in ListChanges, now time.Time) (MovementList, error) {
	next, err := l.State.Edit()
	if err != nil {
		return l, err
	}
	updated := l
	updated.ScheduledDatetime = in.ScheduledDatetime.UTC()
	updated.Place = in.Place
	updated.Watch = in.Watch
	updated.State = next
	updated.LastModified = now
	return updated, nil
}

// MovementEntry records one employee within a movement list.
type MovementEntry struct {
	ID           int64     `json:"id"`
	ListID       int64     `json:"movement_list_id"`
	EmployeeID   int64     `json:"employee_id"`
	CreatorID    *int64    `json:"creator_id"`
	CreatedAt    time.Time `json:"creation_datetime"`
	LastModified time.Time `json:"last_modified"`
	State        State     `json:"state"`
}

// Kind identifies the permission namespace for entries.
func (e MovementEntry) Kind() EntityKind { return KindMovementEntry }

// Creator returns the id of the user who created the entry, if known.
func (e MovementEntry) Creator() *int64 { return e.CreatorID }

// Deleted reports whether the entry was soft-deleted.
func (e MovementEntry) Deleted() bool { return e.State.IsDeleted() }

// EntryDetail joins an entry with its employee.
type EntryDetail struct {
	MovementEntry
	Employee Employee `json:"employee"`
}
