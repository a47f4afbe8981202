package permission

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rpattn/movementcontrol/internal/domain"
)

// Default group names created at provisioning time.
const (
	GroupCommandant = "commandant"
	GroupManager    = "manager"
)

// Grants maps group names to permission sets. A Grants value is never
// modified after construction; every method returns copies.
type Grants struct {
	groups map[string]map[Permission]struct{}
}

// NewGrants builds grants from group → codename lists, rejecting unknown codenames.
func NewGrants(groups map[string][]Permission) (Grants, error) {
	out := make(map[string]map[Permission]struct{}, len(groups))
	for group, perms := range groups {
		name := normalizeGroup(group)
		if name == "" {
			return Grants{}, fmt.Errorf("group name is required")
		}
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			if !Known(p) {
				return Grants{}, fmt.Errorf("group %q: unknown permission %q", group, p)
			}
			set[p] = struct{}{}
		}
		out[name] = set
	}
	return Grants{groups: out}, nil
}

// DefaultGrants gives commandants full control of lists and entries and
// managers add plus owned change/delete on entries.
func DefaultGrants() Grants {
	list, entry := domain.KindMovementList, domain.KindMovementEntry
	grants, err := NewGrants(map[string][]Permission{
		GroupCommandant: {
			Codename(OperationAdd, list),
			Codename(OperationChange, list),
			Codename(OperationDelete, list),
			Codename(OperationView, list),
			Codename(OperationAdd, entry),
			Codename(OperationChange, entry),
			Codename(OperationDelete, entry),
			Codename(OperationView, entry),
			SetIsSenior,
		},
		GroupManager: {
			Codename(OperationAdd, entry),
			OwnedCodename(OperationChange, entry),
			OwnedCodename(OperationDelete, entry),
			Codename(OperationView, list),
			Codename(OperationView, entry),
		},
	})
	if err != nil {
		panic(fmt.Sprintf("default grants are invalid: %v", err))
	}
	return grants
}

// WithOverrides returns new grants where each named group is replaced by the given codenames.
func (g Grants) WithOverrides(overrides map[string][]string) (Grants, error) {
	merged := make(map[string][]Permission, len(g.groups)+len(overrides))
	for group := range g.groups {
		merged[group] = g.Permissions(group)
	}
	for group, codes := range overrides {
		perms := make([]Permission, 0, len(codes))
		for _, code := range codes {
			perms = append(perms, Permission(strings.TrimSpace(code)))
		}
		merged[normalizeGroup(group)] = perms
	}
	return NewGrants(merged)
}

// Allows reports whether the group holds p.
func (g Grants) Allows(group string, p Permission) bool {
	set, ok := g.groups[normalizeGroup(group)]
	if !ok {
		return false
	}
	_, ok = set[p]
	return ok
}

// Permissions returns the sorted codenames granted to the group.
func (g Grants) Permissions(group string) []Permission {
	set := g.groups[normalizeGroup(group)]
	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sortPermissions(out)
	return out
}

// Groups returns the configured group names, sorted.
func (g Grants) Groups() []string {
	out := make([]string, 0, len(g.groups))
	for group := range g.groups {
		out = append(out, group)
	}
	sort.Strings(out)
	return out
}

func normalizeGroup(group string) string {
	return strings.ToLower(strings.TrimSpace(group))
}
