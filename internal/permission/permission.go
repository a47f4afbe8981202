// Package permission decides whether an actor may create, change or delete
// movement records, based on group grants and record ownership.
package permission

import (
	"fmt"
	"sort"

	"github.com/rpattn/movementcontrol/internal/domain"
)

// Operation is a mutating action checked by the gate.
type Operation string

const (
	OperationAdd    Operation = "add"
	OperationChange Operation = "change"
	OperationDelete Operation = "delete"
	OperationView   Operation = "view"
)

// Permission is a codename such as "change_owned_movementlist".
type Permission string

// Standalone permissions that are not derived from an operation on a record kind.
const (
	AddFacility    Permission = "add_facility"
	DeleteFacility Permission = "delete_facility"
	DeleteEmployee Permission = "delete_employee"
	SetIsSenior    Permission = "can_set_is_senior"
)

// Codename returns the global permission for op on kind.
func Codename(op Operation, kind domain.EntityKind) Permission {
	return Permission(fmt.Sprintf("%s_%s", op, kind))
}

// OwnedCodename returns the creator-only variant of op on kind.
func OwnedCodename(op Operation, kind domain.EntityKind) Permission {
	return Permission(fmt.Sprintf("%s_owned_%s", op, kind))
}

var catalog = buildCatalog()

func buildCatalog() map[Permission]struct{} {
	out := map[Permission]struct{}{
		AddFacility:    {},
		DeleteFacility: {},
		DeleteEmployee: {},
		SetIsSenior:    {},
	}
	for _, kind := range []domain.EntityKind{domain.KindMovementList, domain.KindMovementEntry} {
		for _, op := range []Operation{OperationAdd, OperationChange, OperationDelete, OperationView} {
			out[Codename(op, kind)] = struct{}{}
		}
		out[OwnedCodename(OperationChange, kind)] = struct{}{}
		out[OwnedCodename(OperationDelete, kind)] = struct{}{}
	}
	return out
}

// Known reports whether p is a recognised codename.
func Known(p Permission) bool {
	_, ok := catalog[p]
	return ok
}

// All returns every recognised codename, sorted.
func All() []Permission {
	out := make([]Permission, 0, len(catalog))
	for p := range catalog {
		out = append(out, p)
	}
	sortPermissions(out)
	return out
}

func sortPermissions(perms []Permission) {
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
}
