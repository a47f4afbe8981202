package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	minNameLength     = 2
	maxNameLength     = 40
	maxPositionLength = 100
	maxListTextLength = 255

	invalidEncoding = "must be valid UTF-8 text"
)

func runeCount(value string) int {
	return utf8.RuneCountInString(value)
}

// ListInput carries the fields needed to create a movement list.
type ListInput struct {
	Type              ListType  `json:"list_type"`
	ScheduledDatetime time.Time `json:"scheduled_datetime"`
	Place             string    `json:"place"`
	Watch             string    `json:"watch"`
}

// Normalize trims free-text fields.
func (in ListInput) Normalize() ListInput {
	in.Place = strings.TrimSpace(in.Place)
	in.Watch = strings.TrimSpace(in.Watch)
	return in
}

// Validate checks the list type, the schedule and text limits.
func (in ListInput) Validate() error {
	verr := NewValidationError()
	if _, err := ParseListType(string(in.Type)); err != nil {
		verr.Add("list_type", "must be ARRIVING or LEAVING")
	}
	validateListText(verr, in.ScheduledDatetime, in.Place, in.Watch)
	return verr.OrNil()
}

// ListChanges carries the editable fields of a movement list.
type ListChanges struct {
	ScheduledDatetime time.Time `json:"scheduled_datetime"`
	Place             string    `json:"place"`
	Watch             string    `json:"watch"`
}

// Normalize trims free-text fields.
func (in ListChanges) Normalize() ListChanges {
	in.Place = strings.TrimSpace(in.Place)
	in.Watch = strings.TrimSpace(in.Watch)
	return in
}

// Validate checks the schedule and text limits.
func (in ListChanges) Validate() error {
	verr := NewValidationError()
	validateListText(verr, in.ScheduledDatetime, in.Place, in.Watch)
	return verr.OrNil()
}

func validateListText(verr *ValidationError, scheduled time.Time, place, watch string) {
	if scheduled.IsZero() {
		verr.Add("scheduled_datetime", "required")
	}
	checkListText(verr, "place", place)
	checkListText(verr, "watch", watch)
}

func checkListText(verr *ValidationError, field, value string) {
	switch {
	case !utf8.ValidString(value):
		verr.Add(field, invalidEncoding)
	case runeCount(value) > maxListTextLength:
		verr.Add(field, fmt.Sprintf("must be at most %d characters", maxListTextLength))
	}
}

// EntryInput carries the employee fields of a new or edited movement entry.
// IsSenior is only honoured for actors allowed to set it.
type EntryInput struct {
	PersonName
	IsSenior *bool `json:"is_senior,omitempty"`
}

// Normalize trims every name field.
func (in EntryInput) Normalize() EntryInput {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Patronymic = strings.TrimSpace(in.Patronymic)
	in.Position = strings.TrimSpace(in.Position)
	return in
}

// Validate applies the name and position limits.
func (in EntryInput) Validate() error {
	verr := NewValidationError()
	checkName(verr, "first_name", in.FirstName, true)
	checkName(verr, "last_name", in.LastName, true)
	checkName(verr, "patronymic", in.Patronymic, false)
	switch n := runeCount(in.Position); {
	case !utf8.ValidString(in.Position):
		verr.Add("position", invalidEncoding)
	case n == 0:
		verr.Add("position", "required")
	case n > maxPositionLength:
		verr.Add("position", fmt.Sprintf("must be at most %d characters", maxPositionLength))
	}
	return verr.OrNil()
}

func checkName(verr *ValidationError, field, value string, required bool) {
	n := runeCount(value)
	switch {
	case !utf8.ValidString(value):
		verr.Add(field, invalidEncoding)
	case n == 0 && required:
		verr.Add(field, "required")
	case n == 0:
	case n < minNameLength:
		verr.Add(field, fmt.Sprintf("must be at least %d characters", minNameLength))
	case n > maxNameLength:
		verr.Add(field, fmt.Sprintf("must be at most %d characters", maxNameLength))
	}
}
