package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/movementcontrol/internal/domain"
	"github.com/rpattn/movementcontrol/internal/repository"
)

type fixture struct {
	store    *Store
	facility domain.Facility
	list     domain.MovementList
	employee domain.Employee
	entry    domain.MovementEntry
}

func seed(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	store := NewStore()

	facility, err := store.Facilities().Create(ctx, domain.FacilityInput{Name: "Шануч", Slug: "shanuch-mine"})
	require.NoError(t, err)

	list, err := store.Lists().Create(ctx, domain.MovementList{
		FacilityID:        facility.ID,
		Type:              domain.ListTypeArriving,
		ScheduledDatetime: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		State:             domain.StateActive,
	})
	require.NoError(t, err)

	employee, err := store.Employees().Create(ctx, domain.Employee{PersonName: domain.PersonName{
		FirstName: "Ivan", LastName: "Ivanov", Position: "driver",
	}})
	require.NoError(t, err)

	entry, err := store.Entries().Create(ctx, domain.MovementEntry{
		ListID: list.ID, EmployeeID: employee.ID, State: domain.StateActive,
	})
	require.NoError(t, err)

	return fixture{store: store, facility: facility, list: list, employee: employee, entry: entry}
}

func TestFacilityUniqueness(t *testing.T) {
	f := seed(t)
	ctx := context.Background()

	_, err := f.store.Facilities().Create(ctx, domain.FacilityInput{Name: "Other", Slug: "shanuch-mine"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "slug")

	got, err := f.store.Facilities().GetBySlug(ctx, "shanuch-mine")
	require.NoError(t, err)
	assert.Equal(t, f.facility, got)

	_, err = f.store.Facilities().GetBySlug(ctx, "missing")
	assert.True(t, domain.IsNotFound(err))
}

func TestEmployeeDeleteIsRestricted(t *testing.T) {
	f := seed(t)
	ctx := context.Background()

	// soft-deleting the entry keeps the reference alive
	entry := f.entry
	entry.State = domain.StateDeleted
	_, err := f.store.Entries().Update(ctx, entry)
	require.NoError(t, err)

	err = f.store.Employees().Delete(ctx, f.employee.ID)
	var cv *domain.ConstraintViolationError
	require.ErrorAs(t, err, &cv)

	_, err = f.store.Employees().GetByID(ctx, f.employee.ID)
	assert.NoError(t, err, "employee must survive the rejected delete")

	orphan, err := f.store.Employees().Create(ctx, domain.Employee{PersonName: domain.PersonName{FirstName: "Petr", LastName: "Petrov"}})
	require.NoError(t, err)
	require.NoError(t, f.store.Employees().Delete(ctx, orphan.ID))
}

func TestFacilityDeleteCascades(t *testing.T) {
	f := seed(t)
	ctx := context.Background()

	_, err := f.store.History().AppendHistory(ctx, domain.HistoryRecord{Subject: domain.ListSubject(f.list.ID), Prev: []byte("{}"), Post: []byte("{}")})
	require.NoError(t, err)
	_, err = f.store.History().AppendHistory(ctx, domain.HistoryRecord{Subject: domain.EntrySubject(f.entry.ID), Prev: []byte("{}"), Post: []byte("{}")})
	require.NoError(t, err)

	require.NoError(t, f.store.Facilities().Delete(ctx, f.facility.ID))

	_, err = f.store.Lists().GetByID(ctx, f.list.ID)
	assert.True(t, domain.IsNotFound(err))
	_, err = f.store.Entries().GetByID(ctx, f.entry.ID)
	assert.True(t, domain.IsNotFound(err))

	for _, subject := range []domain.Subject{domain.ListSubject(f.list.ID), domain.EntrySubject(f.entry.ID)} {
		count, err := f.store.History().Count(ctx, subject)
		require.NoError(t, err)
		assert.Zero(t, count)
	}

	// the employee row outlives its entry and is now deletable
	require.NoError(t, f.store.Employees().Delete(ctx, f.employee.ID))
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := f.store.WithinTx(ctx, func(tx repository.Store) error {
		list := f.list
		list.Place = "changed"
		list.State = domain.StateModified
		if _, err := tx.Lists().Update(ctx, list); err != nil {
			return err
		}
		got, err := tx.Lists().GetByID(ctx, f.list.ID)
		require.NoError(t, err)
		assert.Equal(t, "changed", got.Place, "writes are visible inside the transaction")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := f.store.Lists().GetByID(ctx, f.list.ID)
	require.NoError(t, err)
	assert.Equal(t, "", got.Place)
	assert.Equal(t, domain.StateActive, got.State)
}

func TestWithinTxCommits(t *testing.T) {
	f := seed(t)
	ctx := context.Background()

	err := f.store.WithinTx(ctx, func(tx repository.Store) error {
		return tx.WithinTx(ctx, func(inner repository.Store) error {
			_, err := inner.History().AppendHistory(ctx, domain.HistoryRecord{Subject: domain.ListSubject(f.list.ID)})
			return err
		})
	})
	require.NoError(t, err)

	count, err := f.store.History().Count(ctx, domain.ListSubject(f.list.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestListFilteringAndPaging(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	creator := int64(42)
	for day := 11; day <= 22; day++ {
		_, err := f.store.Lists().Create(ctx, domain.MovementList{
			FacilityID:        f.facility.ID,
			Type:              domain.ListTypeLeaving,
			ScheduledDatetime: time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
			CreatorID:         &creator,
			State:             domain.StateActive,
		})
		require.NoError(t, err)
	}

	leaving := domain.ListTypeLeaving
	items, total, err := f.store.Lists().List(ctx, domain.ListFilter{FacilityID: f.facility.ID, Type: &leaving}, domain.PageRequest{Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.Len(t, items, 2)
	assert.Greater(t, items[0].ID, items[1].ID)

	from := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	items, total, err = f.store.Lists().List(ctx, domain.ListFilter{FacilityID: f.facility.ID, ScheduledFrom: &from, CreatorID: &creator}, domain.PageRequest{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, items, 3)

	items, _, err = f.store.Lists().List(ctx, domain.ListFilter{FacilityID: f.facility.ID}, domain.PageRequest{Page: 9, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestHistoryPagesNewestFirst(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	subject := domain.EntrySubject(f.entry.ID)
	ids := make([]int64, 0)
	for i := 0; i < 3; i++ {
		rec, err := f.store.History().AppendHistory(ctx, domain.HistoryRecord{Subject: subject})
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	page, err := f.store.History().ListHistoryPage(ctx, subject, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)

	page, err = f.store.History().ListHistoryPage(ctx, subject, ids[1], 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)

	_, err = f.store.History().AppendHistory(ctx, domain.HistoryRecord{Subject: domain.EntrySubject(9999)})
	assert.True(t, domain.IsNotFound(err))
}

func TestSuggestions(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	user, err := f.store.Users().Create(ctx, domain.User{Username: "u1", PersonName: domain.PersonName{FirstName: "Ilya", LastName: "Sidorov"}})
	require.NoError(t, err)

	employee, err := f.store.Employees().Create(ctx, domain.Employee{PersonName: domain.PersonName{FirstName: "Igor", LastName: "Ivanov"}})
	require.NoError(t, err)
	_, err = f.store.Entries().Create(ctx, domain.MovementEntry{ListID: f.list.ID, EmployeeID: employee.ID, CreatorID: &user.ID, State: domain.StateActive})
	require.NoError(t, err)

	got, err := f.store.Entries().Suggestions(ctx, domain.AutocompleteFirstName, "i", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Igor", "Ilya", "Ivan"}, got)

	got, err = f.store.Entries().Suggestions(ctx, domain.AutocompleteLastName, "", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ivanov"}, got)
}

func TestEmployeeHasOneEntry(t *testing.T) {
	f := seed(t)
	_, err := f.store.Entries().Create(context.Background(), domain.MovementEntry{ListID: f.list.ID, EmployeeID: f.employee.ID})
	var cv *domain.ConstraintViolationError
	assert.ErrorAs(t, err, &cv)
}
