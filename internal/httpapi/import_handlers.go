package httpapi

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rpattn/movementcontrol/internal/auth"
	"github.com/rpattn/movementcontrol/internal/ingestion"
)

const maxUploadSize = 8 << 20

type importResponse struct {
	ingestion.Roster
	InvalidRows int             `json:"invalid_rows"`
	Created     []entryResponse `json:"created,omitempty"`
	Error       string          `json:"error,omitempty"`
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxUploadSize))
}

// importEntries places a CSV or XLSX roster on the list. With dry_run=true
// the parsed rows are returned and nothing is written.
func (a *API) importEntries(c *gin.Context) {
	ctx := c.Request.Context()
	listID, err := idParam(c, "list", "movement list")
	if err != nil {
		a.writeError(c, err)
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		a.writeError(c, badRequest("file", "a CSV or XLSX file is required"))
		return
	}
	if header.Size > maxUploadSize {
		a.writeError(c, badRequest("file", fmt.Sprintf("must be at most %d MiB", maxUploadSize>>20)))
		return
	}
	var headerRow *int
	if raw := c.PostForm("header_row"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			a.writeError(c, badRequest("header_row", "must be a positive row number"))
			return
		}
		headerRow = &n
	}

	payload, err := readUpload(header)
	if err != nil {
		a.writeError(c, err)
		return
	}
	roster, err := ingestion.ReadRoster(header.Filename, payload, headerRow)
	if err != nil {
		a.writeError(c, badRequest("file", err.Error()))
		return
	}
	resp := importResponse{Roster: roster, InvalidRows: roster.InvalidRows()}

	if boolQuery(c, "dry_run") {
		if _, err := a.svc.GetList(ctx, c.Param("facility"), listID); err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
		return
	}
	if resp.InvalidRows > 0 {
		resp.Error = "validation failed"
		c.JSON(http.StatusBadRequest, resp)
		return
	}

	actor := auth.ActorFromContext(ctx)
	created, err := a.svc.ImportEntries(ctx, actor, c.Param("facility"), listID, roster.Inputs())
	if err != nil {
		a.writeError(c, err)
		return
	}
	resp.Created = a.entryResponses(ctx, actor, created)
	c.JSON(http.StatusCreated, resp)
}
