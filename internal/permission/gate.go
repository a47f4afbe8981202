package permission

import (
	"github.com/rpattn/movementcontrol/internal/domain"
)

// Actor is the authenticated principal a decision is made for.
type Actor struct {
	UserID    int64
	Groups    []string
	Superuser bool
}

// ActorFromUser derives an actor from a stored user. Inactive users yield nil.
func ActorFromUser(u domain.User) *Actor {
	if !u.IsActive {
		return nil
	}
	groups := make([]string, len(u.Groups))
	copy(groups, u.Groups)
	return &Actor{UserID: u.ID, Groups: groups, Superuser: u.IsSuperuser}
}

// ID returns a pointer to the actor's user id, or nil for an anonymous caller.
func (a *Actor) ID() *int64 {
	if a == nil {
		return nil
	}
	id := a.UserID
	return &id
}

// Ownable is a record whose mutation depends on who created it.
type Ownable interface {
	Kind() domain.EntityKind
	Creator() *int64
	Deleted() bool
}

// Gate evaluates permissions against a fixed set of grants.
type Gate struct {
	grants Grants
}

// NewGate returns a gate bound to grants.
func NewGate(grants Grants) *Gate {
	return &Gate{grants: grants}
}

// Grants returns the grants the gate was built with.
func (g *Gate) Grants() Grants {
	return g.grants
}

// Has reports whether actor holds p through superuser status or any group.
func (g *Gate) Has(actor *Actor, p Permission) bool {
	if actor == nil {
		return false
	}
	if actor.Superuser {
		return true
	}
	for _, group := range actor.Groups {
		if g.grants.Allows(group, p) {
			return true
		}
	}
	return false
}

// CanCreate checks the global add permission for kind.
func (g *Gate) CanCreate(actor *Actor, kind domain.EntityKind) bool {
	return g.Has(actor, Codename(OperationAdd, kind))
}

// CanMutate decides whether actor may change or delete record. Soft-deleted
// records are never mutable. Otherwise the global permission suffices, and the
// owned variant suffices for the record's creator.
func (g *Gate) CanMutate(actor *Actor, record Ownable, op Operation) bool {
	if actor == nil || record == nil || record.Deleted() {
		return false
	}
	if op != OperationChange && op != OperationDelete {
		return false
	}
	kind := record.Kind()
	if g.Has(actor, Codename(op, kind)) {
		return true
	}
	creator := record.Creator()
	if creator == nil || *creator != actor.UserID {
		return false
	}
	return g.Has(actor, OwnedCodename(op, kind))
}

// Effective lists the permissions actor holds, sorted.
func (g *Gate) Effective(actor *Actor) []Permission {
	if actor == nil {
		return []Permission{}
	}
	if actor.Superuser {
		return All()
	}
	seen := map[Permission]struct{}{}
	for _, group := range actor.Groups {
		for _, p := range g.grants.Permissions(group) {
			seen[p] = struct{}{}
		}
	}
	out := make([]Permission, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sortPermissions(out)
	return out
}

// RequireCreate returns nil when actor may create kind, and a typed error otherwise.
func (g *Gate) RequireCreate(actor *Actor, kind domain.EntityKind) error {
	if actor == nil {
		return domain.ErrUnauthenticated
	}
	if !g.CanCreate(actor, kind) {
		return &domain.PermissionDeniedError{Operation: string(OperationAdd), Entity: string(kind)}
	}
	return nil
}

// RequireMutate returns nil when actor may apply op to record, and a typed error otherwise.
func (g *Gate) RequireMutate(actor *Actor, record Ownable, op Operation) error {
	if actor == nil {
		return domain.ErrUnauthenticated
	}
	if !g.CanMutate(actor, record, op) {
		return &domain.PermissionDeniedError{Operation: string(op), Entity: string(record.Kind())}
	}
	return nil
}

// Require returns nil when actor holds p, and a typed error otherwise.
func (g *Gate) Require(actor *Actor, p Permission, entity domain.EntityKind) error {
	if actor == nil {
		return domain.ErrUnauthenticated
	}
	if !g.Has(actor, p) {
		return &domain.PermissionDeniedError{Operation: string(p), Entity: string(entity)}
	}
	return nil
}
