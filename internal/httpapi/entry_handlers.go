package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rpattn/movementcontrol/internal/auth"
	"github.com/rpattn/movementcontrol/internal/domain"
)

// entryPath parses the list and entry ids of an entry route.
func entryPath(c *gin.Context) (listID, entryID int64, err error) {
	if listID, err = idParam(c, "list", "movement list"); err != nil {
		return 0, 0, err
	}
	if entryID, err = idParam(c, "entry", "movement entry"); err != nil {
		return 0, 0, err
	}
	return listID, entryID, nil
}

func (a *API) listEntries(c *gin.Context) {
	ctx := c.Request.Context()
	listID, err := idParam(c, "list", "movement list")
	if err != nil {
		a.writeError(c, err)
		return
	}
	page, err := pageParams(c)
	if err != nil {
		a.writeError(c, err)
		return
	}
	filter := domain.EntryFilter{
		Search:         strings.TrimSpace(c.Query("q")),
		IncludeDeleted: boolQuery(c, "include_deleted"),
	}

	result, err := a.svc.ListEntries(ctx, c.Param("facility"), listID, filter, page)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.Page[entryResponse]{
		Items:       a.entryResponses(ctx, auth.ActorFromContext(ctx), result.Items),
		TotalRows:   result.TotalRows,
		TotalPages:  result.TotalPages,
		CurrentPage: result.CurrentPage,
		PageSize:    result.PageSize,
	})
}

func (a *API) getEntry(c *gin.Context) {
	ctx := c.Request.Context()
	listID, entryID, err := entryPath(c)
	if err != nil {
		a.writeError(c, err)
		return
	}
	entry, err := a.svc.GetEntry(ctx, c.Param("facility"), listID, entryID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a.entryResponses(ctx, auth.ActorFromContext(ctx), []domain.EntryDetail{entry})[0])
}

func (a *API) createEntry(c *gin.Context) {
	ctx := c.Request.Context()
	listID, err := idParam(c, "list", "movement list")
	if err != nil {
		a.writeError(c, err)
		return
	}
	var in domain.EntryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		a.writeError(c, badRequest("body", "malformed JSON"))
		return
	}

	actor := auth.ActorFromContext(ctx)
	entry, err := a.svc.CreateEntry(ctx, actor, c.Param("facility"), listID, in)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a.entryResponses(ctx, actor, []domain.EntryDetail{entry})[0])
}

func (a *API) editEntry(c *gin.Context) {
	ctx := c.Request.Context()
	listID, entryID, err := entryPath(c)
	if err != nil {
		a.writeError(c, err)
		return
	}
	var in domain.EntryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		a.writeError(c, badRequest("body", "malformed JSON"))
		return
	}

	actor := auth.ActorFromContext(ctx)
	entry, err := a.svc.EditEntry(ctx, actor, c.Param("facility"), listID, entryID, in)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a.entryResponses(ctx, actor, []domain.EntryDetail{entry})[0])
}

func (a *API) deleteEntry(c *gin.Context) {
	ctx := c.Request.Context()
	listID, entryID, err := entryPath(c)
	if err != nil {
		a.writeError(c, err)
		return
	}
	if err := a.svc.DeleteEntry(ctx, auth.ActorFromContext(ctx), c.Param("facility"), listID, entryID); err != nil {
		a.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) entryHistory(c *gin.Context) {
	ctx := c.Request.Context()
	listID, entryID, err := entryPath(c)
	if err != nil {
		a.writeError(c, err)
		return
	}
	views, err := a.svc.EntryHistory(ctx, c.Param("facility"), listID, entryID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": a.historyItems(ctx, views)})
}
