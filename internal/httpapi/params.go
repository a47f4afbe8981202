package httpapi

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rpattn/movementcontrol/internal/domain"
)

// idParam parses a numeric path segment. Malformed ids are reported as
// missing records.
func idParam(c *gin.Context, name, entity string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewNotFound(entity, raw)
	}
	return id, nil
}

func pageParams(c *gin.Context) (domain.PageRequest, error) {
	var page domain.PageRequest
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > domain.MaxPage {
			return page, badRequest("page", fmt.Sprintf("must be an integer between 1 and %d", domain.MaxPage))
		}
		page.Page = n
	}
	if raw := c.Query("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return page, badRequest("page_size", "must be a positive integer")
		}
		page.PageSize = n
	}
	return page, nil
}

func boolQuery(c *gin.Context, name string) bool {
	v, _ := strconv.ParseBool(c.Query(name))
	return v
}

var localLayouts = []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

// parseDateTime accepts RFC 3339 or a local wall-clock time in loc.
func parseDateTime(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), true
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func (a *API) listFilter(c *gin.Context) (domain.ListFilter, error) {
	filter := domain.ListFilter{IncludeDeleted: boolQuery(c, "include_deleted")}
	verr := domain.NewValidationError()

	if raw := c.Query("type"); raw != "" {
		t, err := domain.ParseListType(raw)
		if err != nil {
			verr.Add("type", "must be ARRIVING or LEAVING")
		} else {
			filter.Type = &t
		}
	}
	if raw := c.Query("from"); raw != "" {
		if t, ok := parseDateTime(raw, a.opts.Location); ok {
			filter.ScheduledFrom = &t
		} else {
			verr.Add("from", "must be a date or date-time")
		}
	}
	if raw := c.Query("to"); raw != "" {
		if t, ok := parseDateTime(raw, a.opts.Location); ok {
			filter.ScheduledTo = &t
		} else {
			verr.Add("to", "must be a date or date-time")
		}
	}
	if raw := c.Query("creator"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			verr.Add("creator", "must be a user id")
		} else {
			filter.CreatorID = &id
		}
	}
	return filter, verr.OrNil()
}
