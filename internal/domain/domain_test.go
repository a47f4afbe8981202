package domain

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestPersonNameHelpers(t *testing.T) {
	full := PersonName{FirstName: "Пётр", LastName: "Иванов", Patronymic: "Васильевич"}
	if got := full.FullName(); got != "Иванов Пётр Васильевич" {
		t.Fatalf("unexpected full name %q", got)
	}
	if got := full.Initials(); got != "Иванов П.В." {
		t.Fatalf("unexpected initials %q", got)
	}

	noPatronymic := PersonName{FirstName: "Ivan", LastName: "Ivanov"}
	if got := noPatronymic.FullName(); got != "Ivanov Ivan" {
		t.Fatalf("expected trailing space to be trimmed, got %q", got)
	}
	if got := noPatronymic.Initials(); got != "Ivanov I." {
		t.Fatalf("unexpected initials %q", got)
	}

	if got := (PersonName{LastName: "Ivanov"}).Initials(); got != MissingNameMarker {
		t.Fatalf("expected missing marker, got %q", got)
	}
}

func TestStateTransitions(t *testing.T) {
	next, err := StateActive.Edit()
	if err != nil || next != StateModified {
		t.Fatalf("active edit: got %q, %v", next, err)
	}
	if !next.WasModified() {
		t.Fatalf("expected modified state to report WasModified")
	}

	next, err = StateModified.Delete()
	if err != nil || !next.IsDeleted() {
		t.Fatalf("modified delete: got %q, %v", next, err)
	}
	if next.WasModified() {
		t.Fatalf("deleted state should not report WasModified")
	}

	if _, err := StateDeleted.Edit(); err == nil {
		t.Fatalf("expected edit of deleted record to fail")
	}
	if _, err := StateDeleted.Delete(); err == nil {
		t.Fatalf("expected second delete to fail")
	}

	if _, err := ParseState("archived"); err == nil {
		t.Fatalf("expected unknown state to be rejected")
	}
}

func TestListTitle(t *testing.T) {
	list := MovementList{
		Type:              ListTypeArriving,
		ScheduledDatetime: time.Date(2024, 1, 10, 5, 0, 0, 0, time.UTC),
	}
	loc := time.FixedZone("MSK", 3*60*60)
	if got := list.Title(loc); got != "Заезд на 10.01.2024 08:00" {
		t.Fatalf("unexpected title %q", got)
	}

	list.Type = ListTypeLeaving
	if got := list.Title(nil); got != "Выезд на 10.01.2024 05:00" {
		t.Fatalf("unexpected title %q", got)
	}
}

func TestListWithChangesMarksModified(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	list := MovementList{ID: 1, State: StateActive, Place: "gate", CreatedAt: created}
	now := created.Add(time.Hour)

	updated, err := list.WithChanges(ListChanges{
		ScheduledDatetime: time.Date(2024, 1, 10, 8, 0, 0, 0, time.FixedZone("X", 3600)),
		Place:             "north gate",
		Watch:             "A",
	}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.State != StateModified || updated.Place != "north gate" || updated.Watch != "A" {
		t.Fatalf("unexpected update %+v", updated)
	}
	if updated.ScheduledDatetime.Location() != time.UTC {
		t.Fatalf("expected scheduled datetime normalised to UTC")
	}
	if !updated.CreatedAt.Equal(created) || !updated.LastModified.Equal(now) {
		t.Fatalf("timestamps not handled: %+v", updated)
	}
	if list.Place != "gate" {
		t.Fatalf("original list mutated")
	}

	deleted := list
	deleted.State = StateDeleted
	if _, err := deleted.WithChanges(ListChanges{ScheduledDatetime: now}, now); err == nil {
		t.Fatalf("expected edit of deleted list to fail")
	}
}

func TestEntryInputValidation(t *testing.T) {
	valid := EntryInput{PersonName: PersonName{FirstName: "Иван", LastName: "Иванов", Position: "водитель"}}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}

	invalid := EntryInput{PersonName: PersonName{
		FirstName:  "И",
		LastName:   strings.Repeat("я", 41),
		Patronymic: "В",
	}}
	err := invalid.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"first_name", "last_name", "patronymic", "position"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("expected message for %s, got %v", field, verr.Fields)
		}
	}
}

// cp1251 bytes for "Иванов" and "водитель"
func TestEntryInputRejectsInvalidUTF8(t *testing.T) {
	in := EntryInput{PersonName: PersonName{
		FirstName:  "Иван",
		LastName:   "\xc8\xe2\xe0\xed\xee\xe2",
		Patronymic: "\xff",
		Position:   "\xe2\xee\xe4\xe8\xf2\xe5\xeb\xfc",
	}}
	err := in.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"last_name", "patronymic", "position"} {
		if verr.Fields[field] != invalidEncoding {
			t.Errorf("expected encoding error for %s, got %v", field, verr.Fields)
		}
	}
	if _, ok := verr.Fields["first_name"]; ok {
		t.Errorf("first_name is valid, got %v", verr.Fields)
	}

	err = ListChanges{ScheduledDatetime: time.Now(), Watch: "\xc2\xe0\xf5\xf2\xe0"}.Validate()
	if !errors.As(err, &verr) || verr.Fields["watch"] != invalidEncoding {
		t.Fatalf("expected encoding error for watch, got %v", err)
	}
}

func TestListInputValidation(t *testing.T) {
	err := ListInput{Type: "SIDEWAYS", Place: strings.Repeat("x", 256)}.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"list_type", "scheduled_datetime", "place"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("expected message for %s, got %v", field, verr.Fields)
		}
	}

	ok := ListInput{Type: ListTypeLeaving, ScheduledDatetime: time.Now()}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}
}

func TestFacilityInputValidation(t *testing.T) {
	if err := (FacilityInput{Name: "Шануч", Slug: "shanuch-mine"}).Validate(); err != nil {
		t.Fatalf("expected valid facility, got %v", err)
	}
	err := FacilityInput{Name: "", Slug: "bad slug!"}.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) || len(verr.Fields) != 2 {
		t.Fatalf("expected two field errors, got %v", err)
	}
}

func TestPageMetadata(t *testing.T) {
	req := PageRequest{Page: 0, PageSize: 0}.Normalize(0)
	if req.Page != 1 || req.PageSize != DefaultPageSize {
		t.Fatalf("unexpected defaults %+v", req)
	}
	page := NewPage([]int{1, 2, 3}, 23, req)
	if page.TotalPages != 3 || page.CurrentPage != 1 || page.TotalRows != 23 {
		t.Fatalf("unexpected page %+v", page)
	}
	if (PageRequest{Page: 3, PageSize: 10}).Offset() != 20 {
		t.Fatalf("unexpected offset")
	}

	huge := PageRequest{Page: math.MaxInt, PageSize: 1000}.Normalize(0)
	if huge.Page != MaxPage || huge.PageSize != MaxPageSize {
		t.Fatalf("expected clamped request, got %+v", huge)
	}
	if huge.Offset() < 0 {
		t.Fatalf("offset overflowed: %d", huge.Offset())
	}
}

func TestEntryFilterSearch(t *testing.T) {
	detail := EntryDetail{
		MovementEntry: MovementEntry{ListID: 4, State: StateActive},
		Employee:      Employee{PersonName: PersonName{FirstName: "Ivan", LastName: "Ivanov", Position: "Driver"}},
	}
	if !(EntryFilter{ListID: 4, Search: "ivanov ivan"}).Matches(detail) {
		t.Fatalf("expected name match")
	}
	if !(EntryFilter{Search: "DRIV"}).Matches(detail) {
		t.Fatalf("expected position match")
	}
	if (EntryFilter{ListID: 5}).Matches(detail) {
		t.Fatalf("expected list mismatch")
	}
	detail.State = StateDeleted
	if (EntryFilter{}).Matches(detail) {
		t.Fatalf("deleted entries should be hidden by default")
	}
	if !(EntryFilter{IncludeDeleted: true}).Matches(detail) {
		t.Fatalf("deleted entries should be visible when requested")
	}
}
