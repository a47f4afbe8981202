package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rpattn/movementcontrol/internal/auth"
	"github.com/rpattn/movementcontrol/internal/domain"
)

func (a *API) listFacilities(c *gin.Context) {
	facilities, err := a.svc.ListFacilities(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": facilities})
}

func (a *API) createFacility(c *gin.Context) {
	var in domain.FacilityInput
	if err := c.ShouldBindJSON(&in); err != nil {
		a.writeError(c, badRequest("body", "malformed JSON"))
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)

	facility, err := a.svc.CreateFacility(c.Request.Context(), auth.ActorFromContext(c.Request.Context()), in)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, facility)
}

func (a *API) deleteFacility(c *gin.Context) {
	ctx := c.Request.Context()
	if err := a.svc.DeleteFacility(ctx, auth.ActorFromContext(ctx), c.Param("facility")); err != nil {
		a.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) autocomplete(c *gin.Context) {
	values, err := a.svc.Autocomplete(c.Request.Context(), c.Param("field"), c.Query("q"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": values})
}

func (a *API) deleteEmployee(c *gin.Context) {
	id, err := idParam(c, "employee", "employee")
	if err != nil {
		a.writeError(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := a.svc.DeleteEmployee(ctx, auth.ActorFromContext(ctx), id); err != nil {
		a.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
