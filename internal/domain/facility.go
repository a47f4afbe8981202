package domain

import "regexp"

const (
	maxFacilityNameLength = 100
	maxFacilitySlugLength = 100
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// Facility is a physical site that owns movement lists. Its identity never changes.
type Facility struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// FacilityInput carries the fields needed to create a facility.
type FacilityInput struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Validate checks name and slug limits.
func (in FacilityInput) Validate() error {
	verr := NewValidationError()
	switch n := runeCount(in.Name); {
	case n == 0:
		verr.Add("name", "required")
	case n > maxFacilityNameLength:
		verr.Add("name", "must be at most 100 characters")
	}
	switch {
	case in.Slug == "":
		verr.Add("slug", "required")
	case len(in.Slug) > maxFacilitySlugLength:
		verr.Add("slug", "must be at most 100 characters")
	case !slugPattern.MatchString(in.Slug):
		verr.Add("slug", "may contain only letters, digits, hyphens and underscores")
	}
	return verr.OrNil()
}
