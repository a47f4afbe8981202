package domain

import (
	"strings"
	"time"
)

const (
	// DefaultPageSize is used when a listing does not ask for a specific size.
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPage bounds page numbers so that offsets stay far from overflow.
	MaxPage         = 1_000_000
)

// PageRequest selects a 1-based page of a listing.
type PageRequest struct {
	Page     int
	PageSize int
}

// Normalize fills defaults and clamps out-of-range values.
func (p PageRequest) Normalize(defaultSize int) PageRequest {
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	switch {
	case p.Page <= 0:
		p.Page = 1
	case p.Page > MaxPage:
		p.Page = MaxPage
	}
	return p
}

// Offset returns the number of rows skipped before this page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Page is one slice of an id-descending listing.
type Page[T any] struct {
	Items       []T `json:"items"`
	TotalRows   int `json:"total_rows"`
	TotalPages  int `json:"total_pages"`
	CurrentPage int `json:"current_page"`
	PageSize    int `json:"page_size"`
}

// NewPage assembles page metadata for items out of total rows.
func NewPage[T any](items []T, total int, req PageRequest) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if req.PageSize > 0 {
		pages = (total + req.PageSize - 1) / req.PageSize
	}
	return Page[T]{
		Items:       items,
		TotalRows:   total,
		TotalPages:  pages,
		CurrentPage: req.Page,
		PageSize:    req.PageSize,
	}
}

// ListFilter narrows movement list listings.
type ListFilter struct {
	FacilityID     int64
	Type           *ListType
	ScheduledFrom  *time.Time
	ScheduledTo    *time.Time
	CreatorID      *int64
	IncludeDeleted bool
}

// Matches reports whether the list satisfies the filter.
func (f ListFilter) Matches(l MovementList) bool {
	if f.FacilityID != 0 && l.FacilityID != f.FacilityID {
		return false
	}
	if !f.IncludeDeleted && l.State.IsDeleted() {
		return false
	}
	if f.Type != nil && l.Type != *f.Type {
		return false
	}
	if f.ScheduledFrom != nil && l.ScheduledDatetime.Before(*f.ScheduledFrom) {
		return false
	}
	if f.ScheduledTo != nil && !l.ScheduledDatetime.Before(*f.ScheduledTo) {
		return false
	}
	if f.CreatorID != nil && (l.CreatorID == nil || *l.CreatorID != *f.CreatorID) {
		return false
	}
	return true
}

// EntryFilter narrows movement entry listings.
type EntryFilter struct {
	ListID         int64
	Search         string
	IncludeDeleted bool
}

// AutocompleteField enumerates employee columns that offer suggestions.
type AutocompleteField string

const (
	AutocompleteFirstName  AutocompleteField = "first_name"
	AutocompleteLastName   AutocompleteField = "last_name"
	AutocompletePatronymic AutocompleteField = "patronymic"
	AutocompletePosition   AutocompleteField = "position"
)

// ParseAutocompleteField validates a requested suggestion column.
func ParseAutocompleteField(value string) (AutocompleteField, bool) {
	switch AutocompleteField(value) {
	case AutocompleteFirstName, AutocompleteLastName, AutocompletePatronymic, AutocompletePosition:
		return AutocompleteField(value), true
	default:
		return "", false
	}
}

// Value extracts the column from a person name.
func (f AutocompleteField) Value(p PersonName) string {
	switch f {
	case AutocompleteFirstName:
		return p.FirstName
	case AutocompleteLastName:
		return p.LastName
	case AutocompletePatronymic:
		return p.Patronymic
	case AutocompletePosition:
		return p.Position
	default:
		return ""
	}
}

// Matches reports whether the entry satisfies the filter. Search is a
// case-insensitive substring of the employee's full name or position.
func (f EntryFilter) Matches(d EntryDetail) bool {
	if f.ListID != 0 && d.ListID != f.ListID {
		return false
	}
	if !f.IncludeDeleted && d.State.IsDeleted() {
		return false
	}
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(d.Employee.FullName()), needle) ||
		strings.Contains(strings.ToLower(d.Employee.Position), needle)
}
