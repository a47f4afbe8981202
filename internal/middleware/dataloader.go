package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rpattn/movementcontrol/internal/repository"
	"github.com/rpattn/movementcontrol/internal/userloader"
)

type ctxKey string

const userLoaderKey ctxKey = "userLoader"

// DataLoaderMiddleware attaches a per-request user loader to the request context
func DataLoaderMiddleware(repo repository.UserRepository, wait time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		loader := userloader.NewUserLoader(repo, wait)
		ctx := context.WithValue(c.Request.Context(), userLoaderKey, loader)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// UserLoaderFromContext retrieves the user loader from context
func UserLoaderFromContext(ctx context.Context) *userloader.UserLoader {
	if l, ok := ctx.Value(userLoaderKey).(*userloader.UserLoader); ok {
		return l
	}
	return nil
}
