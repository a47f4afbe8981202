package domain

import (
	"fmt"
	"strings"
	"time"
)

// MissingNameMarker is shown in place of initials when a name is incomplete.
const MissingNameMarker = "*данные отсутствуют*"

// PersonName holds the name and position fields shared by employees and users.
type PersonName struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Patronymic string `json:"patronymic"`
	Position   string `json:"position"`
}

// FullName renders "Last First Patronymic" without trailing blanks.
func (p PersonName) FullName() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s %s", p.LastName, p.FirstName, p.Patronymic))
}

// Initials renders "Last F.P.", dropping the patronymic initial when it is empty.
func (p PersonName) Initials() string {
	if p.FirstName == "" || p.LastName == "" {
		return MissingNameMarker
	}
	initials := fmt.Sprintf("%s %s.", p.LastName, firstRune(p.FirstName))
	if p.Patronymic != "" {
		initials += firstRune(p.Patronymic) + "."
	}
	return initials
}

func firstRune(value string) string {
	for _, r := range value {
		return string(r)
	}
	return ""
}

// Employee is a person who arrives at or leaves a facility.
type Employee struct {
	PersonName
	ID       int64 `json:"id"`
	IsSenior bool  `json:"is_senior"`
}

// WithName returns a copy of the employee carrying the given name fields.
func (e Employee) WithName(name PersonName) Employee {
	return Employee{
		ID:         e.ID,
		PersonName: name,
		IsSenior:   e.IsSenior,
	}
}

// User is an account that can sign in and author records.
type User struct {
	PersonName
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsSuperuser  bool      `json:"is_superuser"`
	IsActive     bool      `json:"is_active"`
	Groups       []string  `json:"groups"`
	CreatedAt    time.Time `json:"created_at"`
}

// InGroup reports whether the user belongs to the named group.
func (u User) InGroup(group string) bool {
	for _, g := range u.Groups {
		if strings.EqualFold(g, group) {
			return true
		}
	}
	return false
}
