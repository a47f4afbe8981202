package movement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/movementcontrol/internal/domain"
	"github.com/rpattn/movementcontrol/internal/permission"
)

func TestImportEntriesCreatesEveryRow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, permission.DefaultGrants())
	list := h.createList(t, h.commandant)

	before := h.recorder.applied
	second := driverInput()
	second.FirstName = "Пётр"
	second.Position = "  механик "

	created, err := h.svc.ImportEntries(ctx, h.manager, h.facility.Slug, list.ID, []domain.EntryInput{driverInput(), second})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "механик", created[1].Employee.Position)
	assert.Equal(t, h.manager.ID(), created[0].CreatorID)
	assert.Equal(t, before+2, h.recorder.applied)

	page, err := h.svc.ListEntries(ctx, h.facility.Slug, list.ID, domain.EntryFilter{}, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalRows)
}

func TestImportEntriesIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, permission.DefaultGrants())
	list := h.createList(t, h.commandant)

	broken := driverInput()
	broken.LastName = ""
	_, err := h.svc.ImportEntries(ctx, h.commandant, h.facility.Slug, list.ID, []domain.EntryInput{driverInput(), broken})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "entries[1].last_name")

	senior := true
	withSenior := driverInput()
	withSenior.IsSenior = &senior
	_, err = h.svc.ImportEntries(ctx, h.manager, h.facility.Slug, list.ID, []domain.EntryInput{driverInput(), withSenior})
	var denied *domain.PermissionDeniedError
	require.ErrorAs(t, err, &denied)

	require.NoError(t, h.svc.DeleteList(ctx, h.commandant, h.facility.Slug, list.ID))
	_, err = h.svc.ImportEntries(ctx, h.commandant, h.facility.Slug, list.ID, []domain.EntryInput{driverInput()})
	var conflict *domain.ConstraintViolationError
	require.ErrorAs(t, err, &conflict)

	page, err := h.svc.ListEntries(ctx, h.facility.Slug, list.ID, domain.EntryFilter{IncludeDeleted: true}, domain.PageRequest{})
	require.NoError(t, err)
	assert.Zero(t, page.TotalRows)
}

func TestImportEntriesRejectsEmptyBatch(t *testing.T) {
	h := newHarness(t, permission.DefaultGrants())
	list := h.createList(t, h.commandant)

	_, err := h.svc.ImportEntries(context.Background(), h.commandant, h.facility.Slug, list.ID, nil)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "entries")
}

func TestImportEntriesRejectsInvalidUTF8(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, permission.DefaultGrants())
	list := h.createList(t, h.commandant)

	garbled := driverInput()
	garbled.LastName = "\xc8\xe2\xe0\xed\xee\xe2"
	_, err := h.svc.ImportEntries(ctx, h.commandant, h.facility.Slug, list.ID, []domain.EntryInput{garbled})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "entries[0].last_name")

	page, err := h.svc.ListEntries(ctx, h.facility.Slug, list.ID, domain.EntryFilter{}, domain.PageRequest{})
	require.NoError(t, err)
	assert.Zero(t, page.TotalRows)
}
