package movement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/movementcontrol/internal/domain"
	"github.com/rpattn/movementcontrol/internal/permission"
	"github.com/rpattn/movementcontrol/internal/repository"
	"github.com/rpattn/movementcontrol/internal/repository/memory"
	"github.com/rpattn/movementcontrol/internal/snapshot"
)

var fixedNow = time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)

type harness struct {
	svc        *Service
	store      *memory.Store
	facility   domain.Facility
	commandant *permission.Actor
	manager    *permission.Actor
	stranger   *permission.Actor
	recorder   *countingRecorder
}

type countingRecorder struct {
	applied  int
	denied   int
	appended int
}

func (r *countingRecorder) MutationApplied(domain.EntityKind, permission.Operation) { r.applied++ }
func (r *countingRecorder) MutationDenied(domain.EntityKind, permission.Operation)  { r.denied++ }
func (r *countingRecorder) HistoryAppended(domain.EntityKind)                       { r.appended++ }

func newHarness(t *testing.T, grants permission.Grants) *harness {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	facility, err := store.Facilities().Create(ctx, domain.FacilityInput{Name: "Рудник Шануч", Slug: "shanuch-mine"})
	require.NoError(t, err)

	mkUser := func(username string, groups ...string) *permission.Actor {
		u, err := store.Users().Create(ctx, domain.User{
			Username:   username,
			IsActive:   true,
			Groups:     groups,
			PersonName: domain.PersonName{FirstName: "Пётр", LastName: "Сидоров", Position: "комендант"},
		})
		require.NoError(t, err)
		return permission.ActorFromUser(u)
	}

	recorder := &countingRecorder{}
	h := &harness{
		store:      store,
		facility:   facility,
		commandant: mkUser("commandant", permission.GroupCommandant),
		manager:    mkUser("manager", permission.GroupManager),
		stranger:   mkUser("stranger"),
		recorder:   recorder,
	}
	h.svc = NewService(store, permission.NewGate(grants),
		WithClock(func() time.Time { return fixedNow }),
		WithRecorder(recorder),
	)
	return h
}

func (h *harness) createList(t *testing.T, actor *permission.Actor) domain.MovementList {
	t.Helper()
	list, err := h.svc.CreateList(context.Background(), actor, h.facility.Slug, domain.ListInput{
		Type:              domain.ListTypeArriving,
		ScheduledDatetime: time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC),
		Place:             "КПП-1",
		Watch:             "1 вахта",
	})
	require.NoError(t, err)
	return list
}

func driverInput() domain.EntryInput {
	return domain.EntryInput{PersonName: domain.PersonName{
		FirstName:  "Иван",
		LastName:   "Иванов",
		Patronymic: "Иванович",
		Position:   "водитель",
	}}
}

func (h *harness) createEntry(t *testing.T, actor *permission.Actor, list domain.MovementList) domain.EntryDetail {
	t.Helper()
	entry, err := h.svc.CreateEntry(context.Background(), actor, h.facility.Slug, list.ID, driverInput())
	require.NoError(t, err)
	return entry
}

func (h *harness) historyCount(t *testing.T, subject domain.Subject) int {
	t.Helper()
	n, err := h.store.History().Count(context.Background(), subject)
	require.NoError(t, err)
	return n
}

func TestShanuchMineEntryEditProducesOneHistoryRecord(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, permission.DefaultGrants())
	list := h.createList(t, h.commandant)
	entry := h.createEntry(t, h.manager, list)

	assert.Equal(t, domain.StateActive, entry.State)
	assert.Equal(t, 0, h.historyCount(t, domain.EntrySubject(entry.ID)), "create writes no history")

	in := driverInput()
	in.Position = "старший водитель"
	updated, err := h.svc.EditEntry(ctx, h.manager, h.facility.Slug, list.ID, entry.ID, in)
	require.NoError(t, err)
	assert.Equal(t, domain.StateModified, updated.State)
	assert.Equal(t, "старший водитель", updated.Employee.Position)
	assert.True(t, updated.State.WasModified())

	views, err := h.svc.EntryHistory(ctx, h.facility.Slug, list.ID, entry.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)

	view := views[0]
	require.NoError(t, view.Err)
	assert.Equal(t, h.manager.ID(), view.Record.ModifiedBy)
	assert.Equal(t, fixedNow, view.Record.ModifiedAt)

	prev, ok := view.Prev.(snapshot.EntrySnapshot)
	require.True(t, ok)
	post, ok := view.Post.(snapshot.EntrySnapshot)
	require.True(t, ok)
	assert.Equal(t, "водитель", prev.Position)
	assert.Equal(t, "старший водитель", post.Position)
	assert.Equal(t, prev.FirstName, post.FirstName)

	require.Len(t, view.Changes, 1)
	assert.Equal(t, "position", view.Changes[0].Name)
	assert.Equal(t, 1, h.recorder.appended)
}

func TestEveryListEditAppendsExactlyOneRecord(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, permission.DefaultGrants())
	list := h.createList(t, h.commandant)

	first := domain.ListChanges{ScheduledDatetime: time.Date(2024, 1, 11, 8, 0, 0, 0, time.UTC), Place: "КПП-2", Watch: "1 вахта"}
	second := domain.ListChanges{ScheduledDatetime: time.Date(2024, 1, 12, 8, 0, 0, 0, time.UTC), Place: "КПП-2", Watch: "2 вахта"}
	_, err := h.svc.EditList(ctx, h.commandant, h.facility.Slug, list.ID, first)
	require.NoError(t, err)
	assert.Equal(t, 1, h.historyCount(t, domain.ListSubject(list.ID)))

	// an edit that changes nothing is still recorded
	_, err = h.svc.EditList(ctx, h.commandant, h.facility.Slug, list.ID, first)
	require.NoError(t, err)
	assert.Equal(t, 2, h.historyCount(t, domain.ListSubject(list.ID)))

	updated, err := h.svc.EditList(ctx, h.commandant, h.facility.Slug, list.ID, second)
	require.NoError(t, err)
	assert.Equal(t, "2 вахта", updated.Watch)
	assert.Equal(t, domain.StateModified, updated.State)

	views, err := h.svc.ListHistory(ctx, h.facility.Slug, list.ID)
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Greater(t, views[0].Record.ID, views[1].Record.ID, "newest first")
	for i := 0; i+1 < len(views); i++ {
		assert.Equal(t, views[i+1].Post, views[i].Prev, "post of an older record is prev of the next")
	}
	assert.Empty(t, views[1].Changes)

	newest := views[0].Post.(snapshot.ListSnapshot)
	assert.Equal(t, second.ScheduledDatetime, newest.ScheduledDatetime)
}

func TestStrangerCannotDeleteAnotherUsersList(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, permission.DefaultGrants())
	list := h.createList(t, h.commandant)

	err := h.svc.DeleteList(ctx, h.stranger, h.facility.Slug, list.ID)
	var denied *domain.PermissionDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "delete", denied.Operation)

	reloaded, err := h.svc.GetList(ctx, h.facility.Slug, list.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateActive, reloaded.State)
	assert.Equal(t, 0, h.historyCount(t, domain.ListSubject(list.ID)))
	assert.Equal(t, 1, h.recorder.denied)
}

func TestOwnedPermissionAllowsEditingOwnListOnly(t *testing.T) {
	ctx := context.Background()
	grants, err := permission.NewGrants(map[string][]permission.Permission{
		"dispatchers": {
			permission.Codename(permission.OperationAdd, domain.KindMovementList),
			permission.OwnedCodename(permission.OperationChange, domain.KindMovementList),
		},
	})
	require.NoError(t, err)
	h := newHarness(t, grants)

	owner := &permission.Actor{UserID: h.manager.UserID, Groups: []string{"dispatchers"}}
	other := &permission.Actor{UserID: h.stranger.UserID, Groups: []string{"dispatchers"}}
	list := h.createList(t, owner)

	changes := domain.ListChanges{ScheduledDatetime: list.ScheduledDatetime, Place: "КПП-3"}
	_, err = h.svc.EditList(ctx, owner, h.facility.Slug, list.ID, changes)
	require.NoError(t, err)

	_, err = h.svc.EditList(ctx, other, h.facility.Slug, list.ID, changes)
	var denied *domain.PermissionDeniedError
	require.ErrorAs(t, err, &denied)

	err = h.svc.DeleteList(ctx, owner, h.facility.Slug, list.ID)
	require.ErrorAs(t, err, &denied, "owned change does not grant delete")
	assert.Equal(t, 1, h.historyCount(t, domain.ListSubject(list.ID)))
}

func TestDeletedListCannotBeMutated(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, permission.DefaultGrants())
	list := h.createList(t, h.commandant)
	entry := h.createEntry(t, h.commandant, list)

	require.NoError(t, h.svc.DeleteList(ctx, h.commandant, h.facility.Slug, list.ID))
	deleted, err := h.svc.GetList(ctx, h.facility.Slug, list.ID)
	require.NoError(t, err)
	assert.True(t, deleted.Deleted())
	assert.Equal(t, 0, h.historyCount(t, domain.ListSubject(list.ID)), "delete writes no history")

	superuser := &permission.Actor{UserID: h.commandant.UserID, Superuser: true}
	for _, op := range []permission.Operation{permission.OperationChange, permission.OperationDelete} {
		assert.False(t, h.svc.Gate().CanMutate(superuser, deleted, op))
	}

	var denied *domain.PermissionDeniedError
	_, err = h.svc.EditList(ctx, superuser, h.facility.Slug, list.ID, domain.ListChanges{ScheduledDatetime: fixedNow})
	require.ErrorAs(t, err, &denied)
	require.ErrorAs(t, h.svc.DeleteList(ctx, superuser, h.facility.Slug, list.ID), &denied)

	var conflict *domain.ConstraintViolationError
	_, err = h.svc.CreateEntry(ctx, h.commandant, h.facility.Slug, list.ID, driverInput())
	require.ErrorAs(t, err, &conflict)
	_, err = h.svc.EditEntry(ctx, h.commandant, h.facility.Slug, list.ID, entry.ID, driverInput())
	require.ErrorAs(t, err, &conflict)

	page, err := h.svc.ListLists(ctx, h.facility.Slug, domain.ListFilter{}, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, page.TotalRows)

	page, err = h.svc.ListLists(ctx, h.facility.Slug, domain.ListFilter{IncludeDeleted: true}, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalRows)
}

func TestDeleteEntryKeepsEmployee(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, permission.DefaultGrants())
	list := h.createList(t, h.commandant)
	mine := h.createEntry(t, h.manager, list)
	theirs := h.createEntry(t, h.commandant, list)

	var denied *domain.PermissionDeniedError
	require.ErrorAs(t, h.svc.DeleteEntry(ctx, h.manager, h.facility.Slug, list.ID, theirs.ID), &denied)
	require.NoError(t, h.svc.DeleteEntry(ctx, h.manager, h.facility.Slug, list.ID, mine.ID))

	got, err := h.svc.GetEntry(ctx, h.facility.Slug, list.ID, mine.ID)
	require.NoError(t, err)
	assert.True(t, got.Deleted())
	assert.Equal(t, mine.Employee, got.Employee)

	page, err := h.svc.ListEntries(ctx, h.facility.Slug, list.ID, domain.EntryFilter{}, domain.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, theirs.ID, page.Items[0].ID)
}

func TestSettingSeniorRequiresPermission(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, permission.DefaultGrants())
	list := h.createList(t, h.commandant)

	senior := true
	in := driverInput()
	in.IsSenior = &senior

	_, err := h.svc.CreateEntry(ctx, h.manager, h.facility.Slug, list.ID, in)
	var denied *domain.PermissionDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, string(permission.SetIsSenior), denied.Operation)

	created, err := h.svc.CreateEntry(ctx, h.commandant, h.facility.Slug, list.ID, in)
	require.NoError(t, err)
	assert.True(t, created.Employee.IsSenior)

	// unchanged flag needs no extra permission
	own := h.createEntry(t, h.manager, list)
	notSenior := false
	in.IsSenior = &notSenior
	in.Position = "механик"
	_, err = h.svc.EditEntry(ctx, h.manager, h.facility.Slug, list.ID, own.ID, in)
	require.NoError(t, err)
}

func TestInvalidInputIsRejectedWithoutSideEffects(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, permission.DefaultGrants())
	list := h.createList(t, h.commandant)

	in := driverInput()
	in.FirstName = "И"
	in.Position = ""
	_, err := h.svc.CreateEntry(ctx, h.commandant, h.facility.Slug, list.ID, in)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "first_name")
	assert.Contains(t, verr.Fields, "position")

	page, err := h.svc.ListEntries(ctx, h.facility.Slug, list.ID, domain.EntryFilter{IncludeDeleted: true}, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, page.TotalRows)

	_, err = h.svc.EditList(ctx, h.commandant, h.facility.Slug, list.ID, domain.ListChanges{})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, h.historyCount(t, domain.ListSubject(list.ID)))
}

type failingHistoryStore struct {
	repository.Store
}

func (s failingHistoryStore) History() repository.HistoryRepository {
	return failingHistory{s.Store.History()}
}

func (s failingHistoryStore) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	return s.Store.WithinTx(ctx, func(tx repository.Store) error {
		return fn(failingHistoryStore{tx})
	})
}

type failingHistory struct {
	repository.HistoryRepository
}

func (failingHistory) AppendHistory(context.Context, domain.HistoryRecord) (domain.HistoryRecord, error) {
	return domain.HistoryRecord{}, errors.New("disk full")
}

func TestHistoryFailureRollsBackTheEdit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, permission.DefaultGrants())
	list := h.createList(t, h.commandant)
	entry := h.createEntry(t, h.commandant, list)

	broken := NewService(failingHistoryStore{h.store}, h.svc.Gate(), WithClock(func() time.Time { return fixedNow }))

	_, err := broken.EditList(ctx, h.commandant, h.facility.Slug, list.ID, domain.ListChanges{
		ScheduledDatetime: fixedNow,
		Place:             "КПП-9",
	})
	require.Error(t, err)

	in := driverInput()
	in.Position = "старший водитель"
	_, err = broken.EditEntry(ctx, h.commandant, h.facility.Slug, list.ID, entry.ID, in)
	require.Error(t, err)

	reloaded, err := h.svc.GetList(ctx, h.facility.Slug, list.ID)
	require.NoError(t, err)
	assert.Equal(t, list, reloaded)

	reloadedEntry, err := h.svc.GetEntry(ctx, h.facility.Slug, list.ID, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "водитель", reloadedEntry.Employee.Position)
	assert.Equal(t, domain.StateActive, reloadedEntry.State)
}

func TestUndecodableRecordDoesNotBreakHistory(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, permission.DefaultGrants())
	list := h.createList(t, h.commandant)

	_, err := h.svc.EditList(ctx, h.commandant, h.facility.Slug, list.ID, domain.ListChanges{ScheduledDatetime: fixedNow})
	require.NoError(t, err)
	_, err = h.store.History().AppendHistory(ctx, domain.HistoryRecord{
		Subject:    domain.ListSubject(list.ID),
		ModifiedAt: fixedNow,
		Prev:       []byte(`{"kind":"movement_list","version":1,"fields":{"watch":""}}`),
		Post:       []byte(`not json`),
	})
	require.NoError(t, err)

	views, err := h.svc.ListHistory(ctx, h.facility.Slug, list.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)

	var decodeErr *snapshot.DecodeError
	assert.ErrorAs(t, views[0].Err, &decodeErr)
	assert.Nil(t, views[0].Prev)
	assert.NoError(t, views[1].Err)
	assert.NotNil(t, views[1].Post)
}

func TestResourcesAreScopedToTheirParents(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, permission.DefaultGrants())
	list := h.createList(t, h.commandant)
	entry := h.createEntry(t, h.commandant, list)
	other := h.createList(t, h.commandant)

	superuser := &permission.Actor{UserID: h.commandant.UserID, Superuser: true}
	_, err := h.svc.CreateFacility(ctx, superuser, domain.FacilityInput{Name: "Рудник Норильск", Slug: "norilsk"})
	require.NoError(t, err)

	_, err = h.svc.GetList(ctx, "norilsk", list.ID)
	assert.True(t, domain.IsNotFound(err))

	_, err = h.svc.GetEntry(ctx, h.facility.Slug, other.ID, entry.ID)
	assert.True(t, domain.IsNotFound(err))

	err = h.svc.DeleteEntry(ctx, h.commandant, h.facility.Slug, other.ID, entry.ID)
	assert.True(t, domain.IsNotFound(err))

	_, err = h.svc.ListLists(ctx, "missing", domain.ListFilter{}, domain.PageRequest{})
	assert.True(t, domain.IsNotFound(err))
}

func TestDeleteEmployeeIsRestrictedByEntries(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, permission.DefaultGrants())
	list := h.createList(t, h.commandant)
	entry := h.createEntry(t, h.commandant, list)
	require.NoError(t, h.svc.DeleteEntry(ctx, h.commandant, h.facility.Slug, list.ID, entry.ID))

	superuser := &permission.Actor{UserID: h.commandant.UserID, Superuser: true}
	err := h.svc.DeleteEmployee(ctx, superuser, entry.EmployeeID)
	var conflict *domain.ConstraintViolationError
	require.ErrorAs(t, err, &conflict)

	_, err = h.store.Employees().GetByID(ctx, entry.EmployeeID)
	require.NoError(t, err)

	err = h.svc.DeleteEmployee(ctx, superuser, 9999)
	assert.True(t, domain.IsNotFound(err))
}

func TestDeleteFacilityCascades(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, permission.DefaultGrants())
	list := h.createList(t, h.commandant)
	entry := h.createEntry(t, h.commandant, list)
	_, err := h.svc.EditList(ctx, h.commandant, h.facility.Slug, list.ID, domain.ListChanges{ScheduledDatetime: fixedNow})
	require.NoError(t, err)
	_, err = h.svc.EditEntry(ctx, h.commandant, h.facility.Slug, list.ID, entry.ID, driverInput())
	require.NoError(t, err)

	superuser := &permission.Actor{UserID: h.commandant.UserID, Superuser: true}
	require.NoError(t, h.svc.DeleteFacility(ctx, superuser, h.facility.Slug))

	_, err = h.store.Lists().GetByID(ctx, list.ID)
	assert.True(t, domain.IsNotFound(err))
	_, err = h.store.Entries().GetByID(ctx, entry.ID)
	assert.True(t, domain.IsNotFound(err))
	assert.Equal(t, 0, h.historyCount(t, domain.ListSubject(list.ID)))
	assert.Equal(t, 0, h.historyCount(t, domain.EntrySubject(entry.ID)))

	facilities, err := h.svc.ListFacilities(ctx)
	require.NoError(t, err)
	assert.Empty(t, facilities)
}

func TestAutocompleteSuggestsEmployeesAndCreators(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, permission.DefaultGrants())
	list := h.createList(t, h.commandant)
	h.createEntry(t, h.commandant, list)

	got, err := h.svc.Autocomplete(ctx, "last_name", "и")
	require.NoError(t, err)
	assert.Equal(t, []string{"Иванов"}, got)

	got, err = h.svc.Autocomplete(ctx, "position", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"водитель", "комендант"}, got)

	_, err = h.svc.Autocomplete(ctx, "username", "a")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestExportListSkipsDeletedEntries(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, permission.DefaultGrants())
	list := h.createList(t, h.commandant)
	first := h.createEntry(t, h.commandant, list)
	second := h.createEntry(t, h.commandant, list)
	require.NoError(t, h.svc.DeleteEntry(ctx, h.commandant, h.facility.Slug, list.ID, second.ID))

	export, err := h.svc.ExportList(ctx, h.facility.Slug, list.ID)
	require.NoError(t, err)
	assert.Equal(t, h.facility, export.Facility)
	require.Len(t, export.Entries, 1)
	assert.Equal(t, first.ID, export.Entries[0].ID)
}
