package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rpattn/movementcontrol/internal/auth"
	"github.com/rpattn/movementcontrol/internal/domain"
	"github.com/rpattn/movementcontrol/internal/middleware"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeError maps domain errors onto status codes. Anything unrecognised is
// logged and reported as a generic 500.
func (a *API) writeError(c *gin.Context, err error) {
	var (
		validation *domain.ValidationError
		notFound   *domain.NotFoundError
		denied     *domain.PermissionDeniedError
		conflict   *domain.ConstraintViolationError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: validation.Fields})
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.As(err, &denied):
		c.JSON(http.StatusForbidden, errorResponse{Error: denied.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: notFound.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, errorResponse{Error: conflict.Error()})
	default:
		a.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", middleware.RequestIDFrom(c)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func badRequest(field, message string) error {
	verr := domain.NewValidationError()
	verr.Add(field, message)
	return verr
}
