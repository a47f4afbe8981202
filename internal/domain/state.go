package domain

import "fmt"

// State is the lifecycle stage of a movement list or entry.
type State string

const (
	StateActive   State = "active"
	StateModified State = "modified"
	StateDeleted  State = "deleted"
)

// ParseState converts a stored value into a State.
func ParseState(value string) (State, error) {
	switch State(value) {
	case StateActive, StateModified, StateDeleted:
		return State(value), nil
	default:
		return "", fmt.Errorf("unknown record state %q", value)
	}
}

// WasModified reports whether the record has been edited at least once and is still live.
func (s State) WasModified() bool {
	return s == StateModified
}

// IsDeleted reports whether the record has been soft-deleted.
func (s State) IsDeleted() bool {
	return s == StateDeleted
}

// Edit returns the state after a successful edit. Deleted is terminal.
func (s State) Edit() (State, error) {
	if s.IsDeleted() {
		return s, fmt.Errorf("cannot edit a deleted record")
	}
	return StateModified, nil
}

// Delete returns the state after a soft delete. Deleted is terminal.
func (s State) Delete() (State, error) {
	if s.IsDeleted() {
		return s, fmt.Errorf("record is already deleted")
	}
	return StateDeleted, nil
}
