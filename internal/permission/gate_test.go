package permission

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/movementcontrol/internal/domain"
)

func ownedList(creator int64, state domain.State) domain.MovementList {
	return domain.MovementList{ID: 1, CreatorID: &creator, State: state}
}

func ownedEntry(creator int64, state domain.State) domain.MovementEntry {
	return domain.MovementEntry{ID: 1, CreatorID: &creator, State: state}
}

func TestOwnerWithOwnedPermissionCanEditOwnList(t *testing.T) {
	grants, err := NewGrants(map[string][]Permission{
		"owners": {OwnedCodename(OperationChange, domain.KindMovementList)},
	})
	require.NoError(t, err)
	gate := NewGate(grants)

	a := &Actor{UserID: 1, Groups: []string{"owners"}}
	b := &Actor{UserID: 2}
	list := ownedList(1, domain.StateActive)

	assert.True(t, gate.CanMutate(a, list, OperationChange))
	assert.False(t, gate.CanMutate(b, list, OperationChange))
	assert.False(t, gate.CanMutate(a, list, OperationDelete), "owned change does not imply delete")

	// a list created by someone else is out of reach for the owned variant
	assert.False(t, gate.CanMutate(a, ownedList(3, domain.StateActive), OperationChange))
}

func TestDeletedRecordsAreNeverMutable(t *testing.T) {
	gate := NewGate(DefaultGrants())
	actors := []*Actor{
		{UserID: 1, Superuser: true},
		{UserID: 1, Groups: []string{GroupCommandant}},
		{UserID: 1, Groups: []string{GroupManager}},
		{UserID: 2},
		nil,
	}
	records := []Ownable{ownedList(1, domain.StateDeleted), ownedEntry(1, domain.StateDeleted)}

	for _, actor := range actors {
		for _, record := range records {
			assert.False(t, gate.CanMutate(actor, record, OperationChange))
			assert.False(t, gate.CanMutate(actor, record, OperationDelete))
		}
	}
}

func TestDefaultGrants(t *testing.T) {
	gate := NewGate(DefaultGrants())
	commandant := &Actor{UserID: 10, Groups: []string{"Commandant"}}
	manager := &Actor{UserID: 20, Groups: []string{GroupManager}}

	foreignList := ownedList(99, domain.StateModified)
	assert.True(t, gate.CanMutate(commandant, foreignList, OperationChange))
	assert.True(t, gate.CanMutate(commandant, foreignList, OperationDelete))
	assert.True(t, gate.CanCreate(commandant, domain.KindMovementList))
	assert.True(t, gate.Has(commandant, SetIsSenior))

	assert.False(t, gate.CanCreate(manager, domain.KindMovementList))
	assert.False(t, gate.CanMutate(manager, ownedList(20, domain.StateActive), OperationChange))
	assert.True(t, gate.CanCreate(manager, domain.KindMovementEntry))
	assert.True(t, gate.CanMutate(manager, ownedEntry(20, domain.StateActive), OperationChange))
	assert.True(t, gate.CanMutate(manager, ownedEntry(20, domain.StateModified), OperationDelete))
	assert.False(t, gate.CanMutate(manager, ownedEntry(21, domain.StateActive), OperationDelete))
	assert.False(t, gate.Has(manager, SetIsSenior))
}

func TestSuperuserHoldsEverything(t *testing.T) {
	gate := NewGate(Grants{})
	root := &Actor{UserID: 1, Superuser: true}

	assert.True(t, gate.Has(root, DeleteFacility))
	assert.True(t, gate.CanMutate(root, ownedList(5, domain.StateActive), OperationDelete))
	assert.Equal(t, All(), gate.Effective(root))
}

func TestNilActorHoldsNothing(t *testing.T) {
	gate := NewGate(DefaultGrants())
	assert.False(t, gate.Has(nil, AddFacility))
	assert.False(t, gate.CanCreate(nil, domain.KindMovementEntry))
	assert.Empty(t, gate.Effective(nil))
	assert.ErrorIs(t, gate.RequireCreate(nil, domain.KindMovementEntry), domain.ErrUnauthenticated)
}

func TestRequireReturnsTypedErrors(t *testing.T) {
	gate := NewGate(DefaultGrants())
	stranger := &Actor{UserID: 2}

	err := gate.RequireMutate(stranger, ownedList(1, domain.StateActive), OperationDelete)
	var denied *domain.PermissionDeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, "delete", denied.Operation)
	assert.Equal(t, "movementlist", denied.Entity)

	err = gate.Require(stranger, DeleteEmployee, domain.KindEmployee)
	assert.True(t, errors.As(err, &denied))

	assert.NoError(t, gate.RequireMutate(&Actor{UserID: 1, Superuser: true}, ownedList(1, domain.StateActive), OperationChange))
}

func TestGrantsAreImmutable(t *testing.T) {
	source := map[string][]Permission{"crew": {Codename(OperationAdd, domain.KindMovementEntry)}}
	grants, err := NewGrants(source)
	require.NoError(t, err)

	source["crew"][0] = DeleteFacility
	source["intruders"] = []Permission{DeleteFacility}

	assert.True(t, grants.Allows("crew", Codename(OperationAdd, domain.KindMovementEntry)))
	assert.False(t, grants.Allows("crew", DeleteFacility))
	assert.Equal(t, []string{"crew"}, grants.Groups())

	listed := grants.Permissions("crew")
	listed[0] = DeleteFacility
	assert.False(t, grants.Allows("crew", DeleteFacility))
}

func TestGrantsWithOverrides(t *testing.T) {
	base := DefaultGrants()
	overridden, err := base.WithOverrides(map[string][]string{
		"manager": {"add_movemententry", "change_movemententry"},
		"auditor": {"view_movementlist"},
	})
	require.NoError(t, err)

	assert.True(t, overridden.Allows(GroupManager, Codename(OperationChange, domain.KindMovementEntry)))
	assert.False(t, overridden.Allows(GroupManager, OwnedCodename(OperationDelete, domain.KindMovementEntry)))
	assert.True(t, overridden.Allows("auditor", Codename(OperationView, domain.KindMovementList)))
	assert.True(t, overridden.Allows(GroupCommandant, Codename(OperationDelete, domain.KindMovementList)))

	// the original grants are untouched
	assert.True(t, base.Allows(GroupManager, OwnedCodename(OperationDelete, domain.KindMovementEntry)))

	_, err = base.WithOverrides(map[string][]string{"manager": {"launch_rockets"}})
	assert.Error(t, err)
}

func TestActorFromUser(t *testing.T) {
	user := domain.User{ID: 7, IsActive: true, Groups: []string{GroupManager}}
	actor := ActorFromUser(user)
	require.NotNil(t, actor)
	assert.Equal(t, int64(7), *actor.ID())

	user.IsActive = false
	assert.Nil(t, ActorFromUser(user))
	var anonymous *Actor
	assert.Nil(t, anonymous.ID())
}
