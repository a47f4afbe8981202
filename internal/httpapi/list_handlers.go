package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rpattn/movementcontrol/internal/auth"
	"github.com/rpattn/movementcontrol/internal/domain"
	"github.com/rpattn/movementcontrol/internal/report"
)

func (a *API) listLists(c *gin.Context) {
	ctx := c.Request.Context()
	filter, err := a.listFilter(c)
	if err != nil {
		a.writeError(c, err)
		return
	}
	page, err := pageParams(c)
	if err != nil {
		a.writeError(c, err)
		return
	}

	result, err := a.svc.ListLists(ctx, c.Param("facility"), filter, page)
	if err != nil {
		a.writeError(c, err)
		return
	}
	items := a.listResponses(ctx, auth.ActorFromContext(ctx), result.Items)
	c.JSON(http.StatusOK, domain.Page[listResponse]{
		Items:       items,
		TotalRows:   result.TotalRows,
		TotalPages:  result.TotalPages,
		CurrentPage: result.CurrentPage,
		PageSize:    result.PageSize,
	})
}

func (a *API) getList(c *gin.Context) {
	ctx := c.Request.Context()
	listID, err := idParam(c, "list", "movement list")
	if err != nil {
		a.writeError(c, err)
		return
	}
	list, err := a.svc.GetList(ctx, c.Param("facility"), listID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a.listResponses(ctx, auth.ActorFromContext(ctx), []domain.MovementList{list})[0])
}

// scheduled parses the scheduled_datetime of a request body.
func (a *API) scheduled(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, ok := parseDateTime(raw, a.opts.Location)
	if !ok {
		return time.Time{}, badRequest("scheduled_datetime", "must be a date-time")
	}
	return t, nil
}

func (a *API) createList(c *gin.Context) {
	ctx := c.Request.Context()
	var req listRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.writeError(c, badRequest("body", "malformed JSON"))
		return
	}
	when, err := a.scheduled(req.ScheduledDatetime)
	if err != nil {
		a.writeError(c, err)
		return
	}

	actor := auth.ActorFromContext(ctx)
	list, err := a.svc.CreateList(ctx, actor, c.Param("facility"), domain.ListInput{
		Type:              domain.ListType(req.Type),
		ScheduledDatetime: when,
		Place:             req.Place,
		Watch:             req.Watch,
	})
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a.listResponses(ctx, actor, []domain.MovementList{list})[0])
}

func (a *API) editList(c *gin.Context) {
	ctx := c.Request.Context()
	listID, err := idParam(c, "list", "movement list")
	if err != nil {
		a.writeError(c, err)
		return
	}
	var req listRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.writeError(c, badRequest("body", "malformed JSON"))
		return
	}
	when, err := a.scheduled(req.ScheduledDatetime)
	if err != nil {
		a.writeError(c, err)
		return
	}

	actor := auth.ActorFromContext(ctx)
	list, err := a.svc.EditList(ctx, actor, c.Param("facility"), listID, domain.ListChanges{
		ScheduledDatetime: when,
		Place:             req.Place,
		Watch:             req.Watch,
	})
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a.listResponses(ctx, actor, []domain.MovementList{list})[0])
}

func (a *API) deleteList(c *gin.Context) {
	ctx := c.Request.Context()
	listID, err := idParam(c, "list", "movement list")
	if err != nil {
		a.writeError(c, err)
		return
	}
	if err := a.svc.DeleteList(ctx, auth.ActorFromContext(ctx), c.Param("facility"), listID); err != nil {
		a.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) listHistory(c *gin.Context) {
	ctx := c.Request.Context()
	listID, err := idParam(c, "list", "movement list")
	if err != nil {
		a.writeError(c, err)
		return
	}
	views, err := a.svc.ListHistory(ctx, c.Param("facility"), listID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": a.historyItems(ctx, views)})
}

func (a *API) exportList(format report.Format) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		listID, err := idParam(c, "list", "movement list")
		if err != nil {
			a.writeError(c, err)
			return
		}
		export, err := a.svc.ExportList(ctx, c.Param("facility"), listID)
		if err != nil {
			a.writeError(c, err)
			return
		}

		doc := report.NewDocument(export, a.opts.Location, time.Now())
		name := report.FileName(export.Facility.Slug, export.List.ScheduledDatetime, a.opts.Location, format)
		var buf bytes.Buffer
		if err := a.renderer.Render(&buf, doc, format); err != nil {
			a.logger.Error("failed to render report",
				zap.String("format", string(format)),
				zap.Int64("list_id", listID),
				zap.Error(err),
			)
			a.writeError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
		c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
	}
}
